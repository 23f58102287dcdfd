package stackdb

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
	"github.com/kestrel-insar/ifgram.network/internal/raster"
)

// ErrNoRaster reports a pair without a stored coherence raster.
var ErrNoRaster = errors.New("no coherence raster")

// PutCoherenceRaster stores a pair's coherence raster, replacing any
// prior one. The pair must already be in the stack.
func (db *DB) PutCoherenceRaster(p ifgram.Pair, g *raster.Grid) error {
	blob, err := raster.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to serialize coherence raster for %s: %w", p, err)
	}
	_, err = db.Exec(`
		INSERT OR REPLACE INTO coherence_rasters (date12, width, height, raster)
		VALUES (?, ?, ?, ?)
	`, p.String(), g.Width, g.Height, blob)
	if err != nil {
		return fmt.Errorf("failed to store coherence raster for %s: %w", p, err)
	}
	return nil
}

// CoherenceRaster loads a pair's coherence raster. A pair without one
// fails with ErrNoRaster.
func (db *DB) CoherenceRaster(p ifgram.Pair) (*raster.Grid, error) {
	var blob []byte
	err := db.QueryRow(`SELECT raster FROM coherence_rasters WHERE date12 = ?`, p.String()).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w for %s", ErrNoRaster, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coherence raster for %s: %w", p, err)
	}
	g, err := raster.Unmarshal(blob)
	if err != nil {
		return nil, fmt.Errorf("coherence raster for %s: %w", p, err)
	}
	return g, nil
}

// SpatialAverageCoherence computes the mean coherence of every pair in
// stack order, restricted by an optional nonzero mask and an optional
// pixel box (nil means whole scene). A pair without a stored raster
// gets NaN and a warning; the filter engine decides whether that is
// fatal.
func (db *DB) SpatialAverageCoherence(mask *raster.Grid, box *raster.Box) ([]float64, error) {
	pairs, err := db.Pairs()
	if err != nil {
		return nil, err
	}
	coh := make([]float64, len(pairs))
	for i, p := range pairs {
		g, err := db.CoherenceRaster(p)
		if errors.Is(err, ErrNoRaster) {
			log.Printf("Warning: no coherence raster for %s", p)
			coh[i] = math.NaN()
			continue
		}
		if err != nil {
			return nil, err
		}
		b := g.Bounds()
		if box != nil {
			b = *box
		}
		mean, err := raster.Mean(g, mask, b)
		if err != nil {
			return nil, fmt.Errorf("coherence average for %s: %w", p, err)
		}
		coh[i] = mean
	}
	return coh, nil
}

// TemporalAverageCoherence computes the per-pixel mean coherence across
// the stack's pairs, skipping NaN samples pixel by pixel. With
// keptOnly set, dropped pairs are left out of the average. All rasters
// must share one size.
func (db *DB) TemporalAverageCoherence(keptOnly bool) (*raster.Grid, error) {
	records, err := db.Records()
	if err != nil {
		return nil, err
	}

	var sum []float64
	var count []int
	var out *raster.Grid
	used := 0
	for _, rec := range records {
		if keptOnly && rec.Dropped {
			continue
		}
		g, err := db.CoherenceRaster(rec.Pair)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = raster.NewGrid(g.Width, g.Height)
			sum = make([]float64, len(g.Data))
			count = make([]int, len(g.Data))
		} else if g.Width != out.Width || g.Height != out.Height {
			return nil, fmt.Errorf("coherence raster for %s is %dx%d, want %dx%d",
				rec.Pair, g.Width, g.Height, out.Width, out.Height)
		}
		for i, v := range g.Data {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			sum[i] += f
			count[i]++
		}
		used++
	}
	if out == nil {
		return nil, fmt.Errorf("no coherence rasters to average")
	}
	for i := range out.Data {
		if count[i] == 0 {
			out.Data[i] = float32(math.NaN())
			continue
		}
		out.Data[i] = float32(sum[i] / float64(count[i]))
	}
	log.Printf("averaged %d coherence rasters (%dx%d)", used, out.Width, out.Height)
	return out, nil
}
