// Package polycone reduces dense revolved-profile tables to the few
// control points a polycone solid needs.
//
// Optimize selects a subset of the input samples. Linear interpolation
// between the selected samples reproduces every input sample within a
// tolerance. Selected samples are copied unchanged, the first and last
// samples are always selected, and a doubled height (a step in the
// profile) keeps both of its samples.
//
// The selection is made in two passes:
//
//  1. The table is cut into runs at its endpoints, at every step and at
//     every sample where the inner or outer radius turns from growing to
//     shrinking (or back). Inside a run both radii are monotone in height.
//  2. Each run is reduced by recursive splitting. The sample farthest from
//     the chord between the run's kept ends is kept if its distance
//     exceeds the tolerance, and the two halves are reduced in turn.
//
// Both passes make the same choices when handed their own output, so
// Optimize(Optimize(p)) == Optimize(p).
package polycone

import (
	"math"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
)

// DefaultTolerance is the maximum radial deviation, in mm, between the
// dense table and the interpolated optimized table.
const DefaultTolerance = 1e-3

type options struct {
	tolerance float64
}

// Option configures Optimize.
type Option func(*options)

// WithTolerance sets the maximum allowed radial deviation in mm.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// Optimize returns the reduced table for points. The input is not modified.
//
// It fails with INVALID_PROFILE if points is empty, contains non-finite
// values or a sample with inner > outer or inner < 0, if the heights
// change direction, or if the tolerance is negative.
func Optimize(points []geom.ProfilePoint, opts ...Option) ([]geom.ProfilePoint, error) {
	o := options{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tolerance < 0 || math.IsNaN(o.tolerance) {
		return nil, errors.New(errors.ErrCodeInvalidProfile, "tolerance %g must not be negative", o.tolerance)
	}
	if err := Validate(points); err != nil {
		return nil, err
	}

	keep := breakpoints(points)
	for _, r := range runs(keep) {
		split(points, r[0], r[1], o.tolerance, keep)
	}

	out := make([]geom.ProfilePoint, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out, nil
}

// Validate checks that points is a usable polycone table.
func Validate(points []geom.ProfilePoint) error {
	if len(points) == 0 {
		return errors.New(errors.ErrCodeInvalidProfile, "profile has no samples")
	}
	dir := 0
	for i, p := range points {
		if !finite(p.Height) || !finite(p.Inner) || !finite(p.Outer) {
			return errors.New(errors.ErrCodeInvalidProfile, "sample %d is not finite: %+v", i, p)
		}
		if p.Inner < 0 || p.Inner > p.Outer {
			return errors.New(errors.ErrCodeInvalidProfile,
				"sample %d: inner radius %g must lie in [0, outer radius %g]", i, p.Inner, p.Outer)
		}
		if i == 0 {
			continue
		}
		s := sign(p.Height - points[i-1].Height)
		if s != 0 && dir != 0 && s != dir {
			return errors.New(errors.ErrCodeInvalidProfile,
				"height changes direction at sample %d (%g after %g)", i, p.Height, points[i-1].Height)
		}
		if s != 0 {
			dir = s
		}
	}
	return nil
}

// breakpoints marks the samples every reduction must keep: the endpoints,
// both samples of each step and the turning points of each radius.
func breakpoints(points []geom.ProfilePoint) []bool {
	n := len(points)
	keep := make([]bool, n)
	keep[0] = true
	keep[n-1] = true

	var innerDir, outerDir int
	for i := 1; i < n; i++ {
		prev, cur := points[i-1], points[i]
		if cur.Height == prev.Height {
			keep[i-1] = true
			keep[i] = true
		}
		if turns(&innerDir, cur.Inner-prev.Inner) {
			keep[i-1] = true
		}
		if turns(&outerDir, cur.Outer-prev.Outer) {
			keep[i-1] = true
		}
	}
	return keep
}

// turns records the direction of delta in dir and reports whether it
// reverses the direction seen so far. Flat stretches carry the previous
// direction forward.
func turns(dir *int, delta float64) bool {
	s := sign(delta)
	if s == 0 {
		return false
	}
	reversed := *dir != 0 && s != *dir
	*dir = s
	return reversed
}

// runs returns the [start, end] index pairs between consecutive kept samples
// that have samples in between.
func runs(keep []bool) [][2]int {
	var out [][2]int
	last := 0
	for i := 1; i < len(keep); i++ {
		if !keep[i] {
			continue
		}
		if i-last > 1 {
			out = append(out, [2]int{last, i})
		}
		last = i
	}
	return out
}

// split keeps the samples of points[a:b+1] needed to stay within tol of the
// chords between kept samples.
func split(points []geom.ProfilePoint, a, b int, tol float64, keep []bool) {
	stack := [][2]int{{a, b}}
	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		lo, hi := seg[0], seg[1]
		if hi-lo < 2 {
			continue
		}

		worst, at := -1.0, -1
		for k := lo + 1; k < hi; k++ {
			if d := deviation(points[lo], points[hi], points[k]); d > worst {
				worst, at = d, k
			}
		}
		if worst <= tol {
			continue
		}
		keep[at] = true
		stack = append(stack, [2]int{lo, at}, [2]int{at, hi})
	}
}

// deviation is the larger of the inner and outer radius errors at p when
// interpolating linearly in height between a and b.
func deviation(a, b, p geom.ProfilePoint) float64 {
	t := 0.0
	if dh := b.Height - a.Height; dh != 0 {
		t = (p.Height - a.Height) / dh
	}
	inner := a.Inner + t*(b.Inner-a.Inner)
	outer := a.Outer + t*(b.Outer-a.Outer)
	return math.Max(math.Abs(p.Inner-inner), math.Abs(p.Outer-outer))
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
