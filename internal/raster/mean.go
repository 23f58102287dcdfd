package raster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the spatial average of the grid's finite samples inside
// box, optionally restricted to pixels where mask is nonzero. NaN and
// Inf samples are skipped; if no sample qualifies the result is NaN.
func Mean(g *Grid, mask *Grid, box Box) (float64, error) {
	if mask != nil && (mask.Width != g.Width || mask.Height != g.Height) {
		return 0, fmt.Errorf("mask size %dx%d does not match raster %dx%d",
			mask.Width, mask.Height, g.Width, g.Height)
	}
	box = box.Intersect(g.Bounds())
	if box.Empty() {
		return math.NaN(), nil
	}

	vals := make([]float64, 0, (box.Y1-box.Y0)*(box.X1-box.X0))
	for y := box.Y0; y < box.Y1; y++ {
		for x := box.X0; x < box.X1; x++ {
			if mask != nil && mask.At(y, x) == 0 {
				continue
			}
			v := float64(g.At(y, x))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	return stat.Mean(vals, nil), nil
}
