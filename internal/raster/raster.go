// Package raster holds the 2-D sample grids the network tools consume:
// coherence rasters, pixel masks, and the area-of-interest boxes used to
// restrict spatial statistics to part of a scene.
//
// Grids serialize to gob+gzip blobs for database storage and ship as
// standalone single-raster database files for masks.
package raster

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
)

// Grid is a row-major raster of float32 samples. Data holds exactly
// Width*Height values; sample (y, x) lives at Data[y*Width+x].
type Grid struct {
	Width  int
	Height int
	Data   []float32
}

// NewGrid allocates a zero-filled raster.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Data: make([]float32, width*height)}
}

// At returns the sample at row y, column x.
func (g *Grid) At(y, x int) float32 {
	return g.Data[y*g.Width+x]
}

// Set stores a sample at row y, column x.
func (g *Grid) Set(y, x int, v float32) {
	g.Data[y*g.Width+x] = v
}

// Bounds returns the box covering the whole raster.
func (g *Grid) Bounds() Box {
	return Box{Y1: g.Height, X1: g.Width}
}

// Marshal compresses the grid using gob encoding and gzip compression.
func Marshal(g *Grid) ([]byte, error) {
	if len(g.Data) != g.Width*g.Height {
		return nil, fmt.Errorf("grid data length %d does not match %dx%d", len(g.Data), g.Width, g.Height)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(g); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decompresses and decodes a grid from a gob+gzip blob.
func Unmarshal(blob []byte) (*Grid, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty raster blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var g Grid
	dec := gob.NewDecoder(gz)
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode raster: %w", err)
	}
	if len(g.Data) != g.Width*g.Height {
		return nil, fmt.Errorf("decoded raster data length %d does not match %dx%d", len(g.Data), g.Width, g.Height)
	}
	return &g, nil
}
