package network

import (
	"fmt"
	"log"
	"math"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
)

// Snapshot is the immutable in-memory view of a loaded stack that drop
// decisioning runs against. Pairs carries the full pair universe in
// stack order; the maps are keyed by those pairs. Dropped holds the
// currently persisted flags and may carry explicit false entries.
type Snapshot struct {
	Pairs   []ifgram.Pair
	TBase   map[ifgram.Pair]int
	PBase   map[ifgram.Pair]float64
	Dropped map[ifgram.Pair]bool
}

// ReferenceRule keeps only the pairs present in a reference network.
type ReferenceRule struct {
	Keep []ifgram.Pair
}

// CoherenceRule drops pairs whose spatial-average coherence falls below
// MinCoherence. With KeepMinSpanTree set, pairs on the minimum spanning
// tree of the date graph survive regardless of their coherence, so the
// network never loses connectivity it could have kept. Coherence runs
// parallel to the snapshot's pair order.
type CoherenceRule struct {
	MinCoherence    float64
	KeepMinSpanTree bool
	Coherence       []float64
}

// PairSelector supplies a manual drop selection. Implementations block
// until the user finishes; ok reports whether a selection was made
// (false means the user aborted and the network must stay as it is).
// perpBase carries the per-date perpendicular baseline series for
// display alongside the pair list.
type PairSelector interface {
	Select(pairs []ifgram.Pair, dates []ifgram.Date, perpBase map[ifgram.Date]float64) (drop []ifgram.Pair, ok bool, err error)
}

// Criteria names the enabled drop rules for one run. Nil or zero-value
// fields disable their rule; every enabled rule contributes drops
// independently and the contributions are unioned.
type Criteria struct {
	// Reference drops pairs absent from a reference network's keep list.
	Reference *ReferenceRule

	// Coherence drops low-coherence pairs, optionally protecting the
	// minimum spanning tree.
	Coherence *CoherenceRule

	// TempBaseMax drops pairs whose absolute temporal baseline exceeds
	// the limit in days.
	TempBaseMax *float64

	// PerpBaseMax drops pairs whose absolute perpendicular baseline
	// exceeds the limit in meters.
	PerpBaseMax *float64

	// ExcludeIndex drops pairs at the given zero-based stack positions.
	// Out-of-range positions are ignored.
	ExcludeIndex []int

	// ExcludeDates drops every pair touching one of the given dates.
	ExcludeDates []ifgram.Date

	// StartDate drops pairs with an endpoint earlier than the bound;
	// EndDate drops pairs with an endpoint later than it. Empty
	// disables the bound.
	StartDate ifgram.Date
	EndDate   ifgram.Date

	// Selector runs a manual selection as the final rule.
	Selector PairSelector
}

// Enabled reports whether any rule is active.
func (c Criteria) Enabled() bool {
	return c.Reference != nil || c.Coherence != nil ||
		c.TempBaseMax != nil || c.PerpBaseMax != nil ||
		len(c.ExcludeIndex) > 0 || len(c.ExcludeDates) > 0 ||
		c.StartDate != "" || c.EndDate != "" ||
		c.Selector != nil
}

// ComputeDropSet reduces the criteria to a sorted drop set over the
// snapshot's pair universe. ok is false when no write-back is needed:
// either the computed set matches the persisted flags or the manual
// selection was aborted. Errors abort the run with no decision.
func ComputeDropSet(snap *Snapshot, c Criteria) (drop []ifgram.Pair, ok bool, err error) {
	dropSet := make(map[ifgram.Pair]bool)

	if c.Reference != nil {
		keep := make(map[ifgram.Pair]bool, len(c.Reference.Keep))
		for _, p := range c.Reference.Keep {
			keep[p] = true
		}
		for _, p := range snap.Pairs {
			if !keep[p] {
				dropSet[p] = true
			}
		}
	}

	if c.Coherence != nil {
		ruleDrop, err := coherenceDrop(snap, c.Coherence)
		if err != nil {
			return nil, false, err
		}
		for _, p := range ruleDrop {
			dropSet[p] = true
		}
	}

	if c.TempBaseMax != nil {
		for _, p := range snap.Pairs {
			if math.Abs(float64(snap.TBase[p])) > *c.TempBaseMax {
				dropSet[p] = true
			}
		}
	}

	if c.PerpBaseMax != nil {
		for _, p := range snap.Pairs {
			if math.Abs(snap.PBase[p]) > *c.PerpBaseMax {
				dropSet[p] = true
			}
		}
	}

	for _, i := range c.ExcludeIndex {
		if i < 0 || i >= len(snap.Pairs) {
			continue
		}
		dropSet[snap.Pairs[i]] = true
	}

	if len(c.ExcludeDates) > 0 {
		excluded := make(map[ifgram.Date]bool, len(c.ExcludeDates))
		for _, d := range c.ExcludeDates {
			excluded[d] = true
		}
		for _, p := range snap.Pairs {
			if excluded[p.Master] || excluded[p.Slave] {
				dropSet[p] = true
			}
		}
	}

	if c.StartDate != "" {
		for _, p := range snap.Pairs {
			if p.Master.Before(c.StartDate) || p.Slave.Before(c.StartDate) {
				dropSet[p] = true
			}
		}
	}

	if c.EndDate != "" {
		for _, p := range snap.Pairs {
			if c.EndDate.Before(p.Master) || c.EndDate.Before(p.Slave) {
				dropSet[p] = true
			}
		}
	}

	if c.Selector != nil {
		selected, proceed, err := runSelector(snap, c.Selector)
		if err != nil {
			return nil, false, err
		}
		if !proceed {
			log.Printf("manual selection aborted; leaving the network unchanged")
			return nil, false, nil
		}
		for _, p := range selected {
			dropSet[p] = true
		}
	}

	drop = make([]ifgram.Pair, 0, len(dropSet))
	for p := range dropSet {
		drop = append(drop, p)
	}
	ifgram.SortPairs(drop)

	if sameDropSet(drop, snap.Dropped) {
		log.Printf("drop set matches the stored network (%d dropped); no update needed", len(drop))
		return nil, false, nil
	}
	return drop, true, nil
}

func coherenceDrop(snap *Snapshot, rule *CoherenceRule) ([]ifgram.Pair, error) {
	if len(rule.Coherence) != len(snap.Pairs) {
		return nil, fmt.Errorf("%w: have %d values for %d pairs", ErrMissingCoherence, len(rule.Coherence), len(snap.Pairs))
	}
	var mst map[ifgram.Pair]bool
	if rule.KeepMinSpanTree {
		var err error
		mst, err = MinSpanTree(snap.Pairs, rule.Coherence)
		if err != nil {
			return nil, err
		}
	}
	var drop []ifgram.Pair
	for i, p := range snap.Pairs {
		if rule.Coherence[i] >= rule.MinCoherence {
			continue
		}
		if mst[p] {
			continue
		}
		drop = append(drop, p)
	}
	return drop, nil
}

// runSelector feeds the selector the full pair universe plus the
// per-date baseline series and filters the returned selection down to
// pairs that actually exist in the stack.
func runSelector(snap *Snapshot, sel PairSelector) ([]ifgram.Pair, bool, error) {
	dates := ifgram.DatesOf(snap.Pairs)
	series, err := PerpBaselineSeries(snap.Pairs, snap.PBase)
	if err != nil {
		return nil, false, err
	}
	selected, proceed, err := sel.Select(snap.Pairs, dates, series)
	if err != nil || !proceed {
		return nil, proceed, err
	}
	inStack := make(map[ifgram.Pair]bool, len(snap.Pairs))
	for _, p := range snap.Pairs {
		inStack[p] = true
	}
	kept := selected[:0]
	for _, p := range selected {
		if inStack[p] {
			kept = append(kept, p)
		}
	}
	return kept, true, nil
}

func sameDropSet(drop []ifgram.Pair, current map[ifgram.Pair]bool) bool {
	n := 0
	for _, dropped := range current {
		if dropped {
			n++
		}
	}
	if n != len(drop) {
		return false
	}
	for _, p := range drop {
		if !current[p] {
			return false
		}
	}
	return true
}
