package profile

import (
	"math"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
)

// arc evaluates sqrt(1 - x^2) with x clamped to [-1, 1], so floating-point
// overshoot at the ends of a taper never produces NaN.
func arc(x float64) float64 {
	x = math.Max(-1, math.Min(1, x))
	return math.Sqrt(1 - x*x)
}

// SphericalCapTaper returns the outer radius at height h of a body of
// radius r whose face at h = 0 is rounded by an arc of radius a.
//
// Above the taper (h >= a) the radius is r. Inside it the radius follows
// (r - a) + a*sqrt(1 - ((h - a)/a)^2), which for a == r is a hemispherical
// dome reaching zero at h = 0. Heights below zero yield zero.
func SphericalCapTaper(h, r, a float64) float64 {
	switch {
	case h < 0:
		return 0
	case a <= 0 || h >= a:
		return r
	}
	return (r - a) + a*arc((h-a)/a)
}

// BoreholeTaper returns the inner radius at height h of a bore of radius r
// whose rounded bottom sits at height start and opens toward larger heights.
//
// Below start the radius is zero, above start + r it is r, and in between
// it follows a quarter circle.
func BoreholeTaper(h, start, r float64) float64 {
	switch {
	case r <= 0 || h < start:
		return 0
	case h >= start+r:
		return r
	}
	return r * arc((h-(start+r))/r)
}

// CrystalSpec describes a closed-end coaxial crystal. The front face lies
// at height 0 and the borehole enters from the back face at Length.
type CrystalSpec struct {
	Length     float64 // crystal length
	Radius     float64 // outer radius
	FaceRadius float64 // rounding of the front edge, 0 for a sharp edge
	HoleDepth  float64 // bore depth measured from the back face, 0 for none
	HoleRadius float64 // bore radius, 0 for none
}

// Validate checks the crystal dimensions for consistency.
func (s CrystalSpec) Validate() error {
	if err := errors.Positive("detector length", s.Length); err != nil {
		return err
	}
	if err := errors.Positive("detector radius", s.Radius); err != nil {
		return err
	}
	switch {
	case s.FaceRadius < 0:
		return errors.Dimension("face radius", s.FaceRadius, "must not be negative")
	case s.FaceRadius > s.Radius:
		return errors.Dimension("face radius", s.FaceRadius, "exceeds detector radius %g", s.Radius)
	case s.FaceRadius > s.Length:
		return errors.Dimension("face radius", s.FaceRadius, "exceeds detector length %g", s.Length)
	case s.HoleRadius < 0:
		return errors.Dimension("hole radius", s.HoleRadius, "must not be negative")
	case s.HoleRadius >= s.Radius:
		return errors.Dimension("hole radius", s.HoleRadius, "must be smaller than detector radius %g", s.Radius)
	case s.HoleDepth < 0:
		return errors.Dimension("hole depth", s.HoleDepth, "must not be negative")
	case s.HoleDepth > s.Length:
		return errors.Dimension("hole depth", s.HoleDepth, "exceeds detector length %g", s.Length)
	}
	return nil
}

func (s CrystalSpec) hasHole() bool {
	return s.HoleRadius > 0 && s.HoleDepth > 0
}

// Crystal returns a dense table of steps samples describing the crystal,
// ordered from the back face (height Length) to the front face (height 0).
func Crystal(s CrystalSpec, steps int) ([]geom.ProfilePoint, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if steps < 2 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "profile steps = %d: need at least 2", steps)
	}

	holeStart := s.Length - s.HoleDepth
	pts := make([]geom.ProfilePoint, steps)
	for i := range pts {
		h := heightAt(s.Length, i, steps)
		p := geom.ProfilePoint{
			Height: h,
			Outer:  SphericalCapTaper(h, s.Radius, s.FaceRadius),
		}
		if s.hasHole() {
			p.Inner = BoreholeTaper(h, holeStart, s.HoleRadius)
		}
		if p.Inner > p.Outer {
			return nil, errors.Dimension("hole depth", s.HoleDepth,
				"bore (radius %g) breaks through the rounded face at height %.4g", s.HoleRadius, h)
		}
		pts[i] = p
	}
	return pts, nil
}

// ColdFinger returns a dense table for a solid rod of the given length and
// radius with a hemispherical tip at height 0, ordered from the base
// (height length) to the tip.
func ColdFinger(length, radius float64, steps int) ([]geom.ProfilePoint, error) {
	if err := errors.Positive("cold finger length", length); err != nil {
		return nil, err
	}
	if err := errors.Positive("cold finger radius", radius); err != nil {
		return nil, err
	}
	if steps < 2 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "profile steps = %d: need at least 2", steps)
	}

	pts := make([]geom.ProfilePoint, steps)
	for i := range pts {
		h := heightAt(length, i, steps)
		pts[i] = geom.ProfilePoint{Height: h, Outer: SphericalCapTaper(h, radius, radius)}
	}
	return pts, nil
}

// heightAt returns the i-th of steps evenly spaced heights running from
// length down to exactly zero.
func heightAt(length float64, i, steps int) float64 {
	if i == steps-1 {
		return 0
	}
	return length * (1 - float64(i)/float64(steps-1))
}
