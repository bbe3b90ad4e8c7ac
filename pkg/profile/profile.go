// Package profile generates the 2-D outlines and dense polycone tables
// that detector solids are extruded or revolved from.
//
// Every function is pure: it validates its dimensions, returns a freshly
// allocated slice and never retains it.
package profile

import (
	"math"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
)

// DefaultSteps is the number of samples in a dense polycone table.
const DefaultSteps = 500

// DefaultCornerPoints is the number of points per rounded corner.
const DefaultCornerPoints = 20

// RoundedBox returns the outline of a square of side length side whose
// corners are quarter circles of radius rounding/2, centered on the origin.
//
// The outline has 4n points, n per corner, traced clockwise from the
// (-,-) corner. With rounding == 0 the corners collapse and exactly the
// four corners of the square are returned. With rounding == side the arcs
// meet end to end and the shared points are kept once, leaving 4(n-1).
func RoundedBox(side, rounding float64, n int) ([]geom.Point2D, error) {
	if err := errors.Positive("side length", side); err != nil {
		return nil, err
	}
	if rounding < 0 || math.IsNaN(rounding) {
		return nil, errors.Dimension("rounding radius", rounding, "must not be negative")
	}
	if rounding > side {
		return nil, errors.Dimension("rounding radius", rounding, "exceeds side length %g", side)
	}
	if n < 2 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "points per corner = %d: need at least 2", n)
	}

	h := side / 2
	if rounding == 0 {
		return []geom.Point2D{{U: -h, V: -h}, {U: -h, V: h}, {U: h, V: h}, {U: h, V: -h}}, nil
	}

	r := rounding / 2
	c := h - r
	// Corner centers and the angle each arc starts from, in clockwise order.
	corners := [4]struct {
		cu, cv, start float64
	}{
		{-c, -c, 3 * math.Pi / 2},
		{-c, c, math.Pi},
		{c, c, math.Pi / 2},
		{c, -c, 0},
	}

	// A full rounding leaves no straight edge: each arc starts where the
	// previous one ended.
	first := 0
	if c == 0 {
		first = 1
	}

	pts := make([]geom.Point2D, 0, 4*n)
	step := (math.Pi / 2) / float64(n-1)
	for _, k := range corners {
		for i := first; i < n; i++ {
			// Clockwise sweep: the angle decreases along each arc.
			a := k.start - float64(i)*step
			s, co := math.Sincos(a)
			pts = append(pts, geom.Point2D{U: k.cu + r*co, V: k.cv + r*s})
		}
	}
	return pts, nil
}
