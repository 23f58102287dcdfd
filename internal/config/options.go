package config

import (
	"fmt"
	"strconv"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
	"github.com/kestrel-insar/ifgram.network/internal/raster"
)

// Options collects every switch of a network-modification run. Nil and
// zero-valued fields leave the corresponding rule disabled, so a partial
// set of options is safe. The struct marshals to the criteria JSON kept
// in the run history.
type Options struct {
	// Coherence-based rule and its modifiers.
	CoherenceBased  *bool          `json:"coherence_based,omitempty"`
	KeepMinSpanTree *bool          `json:"keep_min_span_tree,omitempty"`
	MinCoherence    *float64       `json:"min_coherence,omitempty"`
	MaskFile        *string        `json:"mask_file,omitempty"`
	AOIPix          *raster.Box    `json:"aoi_pix,omitempty"`
	AOIGeo          *raster.GeoBox `json:"aoi_geo,omitempty"`

	// Baseline thresholds.
	TempBaseMax *float64 `json:"temp_base_max,omitempty"`
	PerpBaseMax *float64 `json:"perp_base_max,omitempty"`

	// Explicit pair selections.
	ReferenceFile *string       `json:"reference_file,omitempty"`
	ExcludeIndex  []string      `json:"exclude_index,omitempty"`
	ExcludeDate   []ifgram.Date `json:"exclude_date,omitempty"`
	StartDate     ifgram.Date   `json:"start_date,omitempty"`
	EndDate       ifgram.Date   `json:"end_date,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// Enabled reports whether any option that can drop a pair is switched
// on. Modifiers of the coherence rule (minCoherence, mask, AOI,
// keepMinSpanTree) do not count on their own.
func (o *Options) Enabled() bool {
	if o.CoherenceBased != nil && *o.CoherenceBased {
		return true
	}
	if o.TempBaseMax != nil || o.PerpBaseMax != nil || o.ReferenceFile != nil {
		return true
	}
	if len(o.ExcludeIndex) > 0 || len(o.ExcludeDate) > 0 {
		return true
	}
	return o.StartDate != "" || o.EndDate != ""
}

// Validate checks that the enabled option values are usable.
func (o *Options) Validate() error {
	if o.MinCoherence != nil {
		if *o.MinCoherence < 0 || *o.MinCoherence > 1 {
			return fmt.Errorf("min coherence must be between 0 and 1, got %g", *o.MinCoherence)
		}
	}
	if o.TempBaseMax != nil && *o.TempBaseMax <= 0 {
		return fmt.Errorf("max temporal baseline must be positive, got %g", *o.TempBaseMax)
	}
	if o.PerpBaseMax != nil && *o.PerpBaseMax <= 0 {
		return fmt.Errorf("max perpendicular baseline must be positive, got %g", *o.PerpBaseMax)
	}
	if o.StartDate != "" && o.EndDate != "" && o.EndDate.Before(o.StartDate) {
		return fmt.Errorf("end date %s is before start date %s", o.EndDate, o.StartDate)
	}
	return nil
}

// ApplyTemplate overlays the network.* template keys onto o. Template
// values win over values already set: the original pipeline reads the
// command line first and lets the template override it. A key resolved
// to "no" leaves o untouched, except the two yes/no rule switches which
// the template sets either way; excludeIfgIndex appends to any indices
// already given.
func (o *Options) ApplyTemplate(t Template) error {
	if value, found := t.lookup("network.coherenceBased"); found {
		b := parseYes(value)
		o.CoherenceBased = &b
	}
	if value, found := t.lookup("network.keepMinSpanTree"); found {
		b := parseYes(value)
		o.KeepMinSpanTree = &b
	}
	if value, ok := t.resolve("network.minCoherence"); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("network.minCoherence: %w", err)
		}
		o.MinCoherence = &f
	}
	if value, ok := t.resolve("network.maskFile"); ok {
		o.MaskFile = &value
	}
	if value, ok := t.resolve("network.maskAoi.yx"); ok {
		box, err := raster.ParseBox(value)
		if err != nil {
			return fmt.Errorf("network.maskAoi.yx: %w", err)
		}
		o.AOIPix = &box
	}
	if value, ok := t.resolve("network.maskAoi.lalo"); ok {
		box, err := raster.ParseGeoBox(value)
		if err != nil {
			return fmt.Errorf("network.maskAoi.lalo: %w", err)
		}
		o.AOIGeo = &box
	}
	if value, ok := t.resolve("network.tempBaseMax"); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("network.tempBaseMax: %w", err)
		}
		o.TempBaseMax = &f
	}
	if value, ok := t.resolve("network.perpBaseMax"); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("network.perpBaseMax: %w", err)
		}
		o.PerpBaseMax = &f
	}
	if value, ok := t.resolve("network.referenceFile"); ok {
		o.ReferenceFile = &value
	}
	if value, ok := t.resolve("network.excludeIfgIndex"); ok {
		o.ExcludeIndex = append(o.ExcludeIndex, splitList(value)...)
	}
	if value, ok := t.resolve("network.excludeDate"); ok {
		dates, err := ifgram.NormalizeDates(splitList(value))
		if err != nil {
			return fmt.Errorf("network.excludeDate: %w", err)
		}
		o.ExcludeDate = dates
	}
	if value, ok := t.resolve("network.startDate"); ok {
		d, err := ifgram.NormalizeDate(value)
		if err != nil {
			return fmt.Errorf("network.startDate: %w", err)
		}
		o.StartDate = d
	}
	if value, ok := t.resolve("network.endDate"); ok {
		d, err := ifgram.NormalizeDate(value)
		if err != nil {
			return fmt.Errorf("network.endDate: %w", err)
		}
		o.EndDate = d
	}
	return nil
}

// parseYes reads the yes/no values of the template rule switches.
// Anything other than "yes" counts as no.
func parseYes(value string) bool {
	switch value {
	case "yes", "y", "Yes", "YES", "1", "true":
		return true
	}
	return false
}
