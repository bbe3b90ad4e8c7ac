package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a point or direction in space.
type Vec = r3.Vec

// Unit axes.
var (
	XAxis = Vec{X: 1}
	YAxis = Vec{Y: 1}
	ZAxis = Vec{Z: 1}
)

// Transform is a rigid motion: a rotation followed by a translation.
// The zero value is the identity.
type Transform struct {
	Rotation    r3.Rotation
	Translation Vec
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: r3.Rotation{Real: 1}}
}

// Translate returns a pure translation by v.
func Translate(v Vec) Transform {
	return Transform{Rotation: r3.Rotation{Real: 1}, Translation: v}
}

// Rotate returns a pure rotation by angle (radians) about axis.
func Rotate(angle float64, axis Vec) Transform {
	return Transform{Rotation: r3.NewRotation(angle, axis)}
}

// RotateZ returns a pure rotation by angle about the z axis.
func RotateZ(angle float64) Transform {
	return Rotate(angle, ZAxis)
}

// Moved returns t followed by a translation of v.
func (t Transform) Moved(v Vec) Transform {
	return Transform{Rotation: t.rot(), Translation: r3.Add(t.Translation, v)}
}

func (t Transform) rot() r3.Rotation {
	if t.Rotation == (r3.Rotation{}) {
		return r3.Rotation{Real: 1}
	}
	return t.Rotation
}

// Apply maps p through t.
func (t Transform) Apply(p Vec) Vec {
	return r3.Add(t.rot().Rotate(p), t.Translation)
}

// ApplyDir rotates direction d by t without translating it.
func (t Transform) ApplyDir(d Vec) Vec {
	return t.rot().Rotate(d)
}

// Compose returns the transform that applies child first and then t.
// Placing a daughter with transform child inside a mother placed with t
// yields t.Compose(child) in the mother's frame.
func (t Transform) Compose(child Transform) Transform {
	r := r3.Rotation(quat.Mul(quat.Number(t.rot()), quat.Number(child.rot())))
	return Transform{
		Rotation:    normalize(r),
		Translation: t.Apply(child.Translation),
	}
}

// IsIdentity reports whether t leaves every point unchanged within 1e-12.
func (t Transform) IsIdentity() bool {
	_, angle := t.AxisAngle()
	return math.Abs(angle) < 1e-12 && r3.Norm(t.Translation) < 1e-12
}

// AxisAngle returns the rotation of t as a unit axis and an angle in
// [0, 2π). A null rotation reports the z axis and angle 0.
func (t Transform) AxisAngle() (Vec, float64) {
	q := quat.Number(t.rot())
	n := quat.Abs(q)
	if n == 0 {
		return ZAxis, 0
	}
	q = quat.Scale(1/n, q)
	w := math.Max(-1, math.Min(1, q.Real))
	s := math.Sqrt(1 - w*w)
	if s < 1e-12 {
		return ZAxis, 0
	}
	return Vec{X: q.Imag / s, Y: q.Jmag / s, Z: q.Kmag / s}, 2 * math.Acos(w)
}

// String formats t for logs.
func (t Transform) String() string {
	axis, angle := t.AxisAngle()
	return fmt.Sprintf("rot(%.4g° about [%.3g %.3g %.3g]) + [%.4g %.4g %.4g]",
		angle/Degree, axis.X, axis.Y, axis.Z,
		t.Translation.X, t.Translation.Y, t.Translation.Z)
}

func normalize(r r3.Rotation) r3.Rotation {
	q := quat.Number(r)
	n := quat.Abs(q)
	if n == 0 || n == 1 {
		return r
	}
	return r3.Rotation(quat.Scale(1/n, q))
}
