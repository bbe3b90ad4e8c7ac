package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Placement locates a detector in the array frame.
//
// The detector's symmetry axis points from Origin along (Theta, Phi) and
// the detector face sits Distance away from Origin along it. Intrinsic
// spins the detector about its own axis. A detector is built along its
// local +z axis, front face toward -z.
type Placement struct {
	Theta     float64 // polar angle, radians
	Phi       float64 // azimuthal angle, radians
	Distance  float64 // from Origin to the front of the end cap, mm
	Intrinsic float64 // rotation about the symmetry axis, radians
	Origin    Vec     // global offset of the array center
}

// Axis returns the unit symmetry axis derived from Theta and Phi.
func (p Placement) Axis() Vec {
	st, ct := math.Sincos(p.Theta)
	sp, cp := math.Sincos(p.Phi)
	return Vec{X: st * cp, Y: st * sp, Z: ct}
}

// Rotation returns Rz(Phi)·Ry(Theta)·Rz(Intrinsic), which carries the
// local z axis onto Axis.
func (p Placement) Rotation() r3.Rotation {
	q := quat.Mul(
		quat.Number(r3.NewRotation(p.Phi, ZAxis)),
		quat.Mul(
			quat.Number(r3.NewRotation(p.Theta, YAxis)),
			quat.Number(r3.NewRotation(p.Intrinsic, ZAxis)),
		),
	)
	return normalize(r3.Rotation(q))
}

// Lateral returns the local +x axis in the global frame: the polar unit
// vector e_theta turned by Intrinsic about Axis.
func (p Placement) Lateral() Vec {
	return p.Rotation().Rotate(XAxis)
}

// At returns the global transform of a component whose center lies offset
// mm beyond the detector face along the symmetry axis.
func (p Placement) At(offset float64) Transform {
	return Transform{
		Rotation:    p.Rotation(),
		Translation: r3.Add(p.Origin, r3.Scale(p.Distance+offset, p.Axis())),
	}
}

// Local maps a point given in detector coordinates (origin on the
// symmetry axis at the detector face) to the global frame.
func (p Placement) Local(v Vec) Vec {
	return p.At(0).Apply(v)
}
