package raster

import (
	"fmt"
	"strconv"
	"strings"
)

// Box is a half-open pixel rectangle covering rows [Y0, Y1) and
// columns [X0, X1).
type Box struct {
	Y0, X0 int
	Y1, X1 int
}

// ParseBox parses a "y0:y1,x0:x1" area-of-interest string. The bounds
// within each range may appear in either order.
func ParseBox(s string) (Box, error) {
	ys, xs, err := splitRanges(s)
	if err != nil {
		return Box{}, err
	}
	y0, y1, err := parseIntRange(ys)
	if err != nil {
		return Box{}, fmt.Errorf("invalid box %q: %w", s, err)
	}
	x0, x1, err := parseIntRange(xs)
	if err != nil {
		return Box{}, fmt.Errorf("invalid box %q: %w", s, err)
	}
	return Box{Y0: y0, X0: x0, Y1: y1, X1: x1}, nil
}

func splitRanges(s string) (string, string, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid box %q: want two comma-separated ranges", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

func parseIntRange(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range %q must be lo:hi", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.Y0 >= b.Y1 || b.X0 >= b.X1
}

// Contains reports whether pixel (y, x) falls inside the box.
func (b Box) Contains(y, x int) bool {
	return y >= b.Y0 && y < b.Y1 && x >= b.X0 && x < b.X1
}

// Intersect returns the largest box contained in both b and other. The
// result may be empty.
func (b Box) Intersect(other Box) Box {
	if other.Y0 > b.Y0 {
		b.Y0 = other.Y0
	}
	if other.X0 > b.X0 {
		b.X0 = other.X0
	}
	if other.Y1 < b.Y1 {
		b.Y1 = other.Y1
	}
	if other.X1 < b.X1 {
		b.X1 = other.X1
	}
	return b
}

// String returns the y0:y1,x0:x1 form.
func (b Box) String() string {
	return fmt.Sprintf("%d:%d,%d:%d", b.Y0, b.Y1, b.X0, b.X1)
}

// GeoBox is a geographic area of interest bounded by latitudes
// [South, North] and longitudes [West, East] in degrees.
type GeoBox struct {
	South, North float64
	West, East   float64
}

// ParseGeoBox parses a "lat0:lat1,lon0:lon1" string. The bounds within
// each range may appear in either order.
func ParseGeoBox(s string) (GeoBox, error) {
	lats, lons, err := splitRanges(s)
	if err != nil {
		return GeoBox{}, err
	}
	s0, n1, err := parseFloatRange(lats)
	if err != nil {
		return GeoBox{}, fmt.Errorf("invalid geo box %q: %w", s, err)
	}
	w0, e1, err := parseFloatRange(lons)
	if err != nil {
		return GeoBox{}, fmt.Errorf("invalid geo box %q: %w", s, err)
	}
	return GeoBox{South: s0, North: n1, West: w0, East: e1}, nil
}

func parseFloatRange(s string) (float64, float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range %q must be lo:hi", s)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}

// GeoLocator converts a geographic area of interest into pixel
// coordinates. Implementations wrap a geometry lookup table for the
// stack; without one, geographic boxes cannot be used.
type GeoLocator interface {
	PixelBox(GeoBox) (Box, error)
}
