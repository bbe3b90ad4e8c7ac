// Package geom holds the small value types shared by every geometry
// package: plane points for extrusion outlines, polycone samples, rigid
// transforms and the detector placement model.
//
// Lengths are millimeters and angles are radians throughout; the unit
// constants below convert from other scales.
package geom

import "math"

// Unit conversions into the internal millimeter/radian system.
const (
	Millimeter = 1.0
	Centimeter = 10 * Millimeter
	Meter      = 1000 * Millimeter
	Inch       = 25.4 * Millimeter
	Micrometer = 1e-3 * Millimeter

	Radian = 1.0
	Degree = math.Pi / 180
)

// Point2D is a plane coordinate of an extrusion outline.
type Point2D struct {
	U, V float64
}

// ProfilePoint is one sample of a revolved cross-section.
// Inner and Outer are radii at Height; 0 <= Inner <= Outer.
type ProfilePoint struct {
	Height float64
	Inner  float64
	Outer  float64
}

// Rotate90 returns p rotated by +90 degrees about the origin.
func (p Point2D) Rotate90() Point2D {
	return Point2D{U: -p.V, V: p.U}
}

// Near reports whether p and q agree within tol in both coordinates.
func (p Point2D) Near(q Point2D, tol float64) bool {
	return math.Abs(p.U-q.U) <= tol && math.Abs(p.V-q.V) <= tol
}
