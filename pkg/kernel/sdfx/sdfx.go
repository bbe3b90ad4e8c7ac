// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the number of marching cubes cells along the longest
// side of a solid's bounding box.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{meshCells: DefaultMeshCells}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func vec(v geom.Vec) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// matrix converts a rigid transform to an sdfx matrix.
func matrix(t geom.Transform) sdf.M44 {
	m := sdf.Translate3d(vec(t.Translation))
	if axis, angle := t.AxisAngle(); angle != 0 {
		m = m.Mul(sdf.Rotate3d(vec(axis), angle))
	}
	return m
}

// Box creates a box with the given full dimensions, centered on the origin.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "box dimensions %g x %g x %g must be positive", x, y, z)
	}
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "sdfx.Box3D")
	}
	return wrap(s), nil
}

// Tube creates a hollow cylinder of the given length along z, centered on
// the origin. An inner radius of zero gives a solid cylinder.
func (k *SdfxKernel) Tube(innerRadius, outerRadius, length float64) (kernel.Solid, error) {
	if innerRadius < 0 || outerRadius <= innerRadius || length <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension,
			"tube radii %g..%g and length %g", innerRadius, outerRadius, length)
	}
	outer, err := sdf.Cylinder3D(length, outerRadius, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "sdfx.Cylinder3D")
	}
	if innerRadius == 0 {
		return wrap(outer), nil
	}
	// The bore runs past both end faces so no skin is left behind.
	inner, err := sdf.Cylinder3D(length+2, innerRadius, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "sdfx.Cylinder3D")
	}
	return wrap(sdf.Difference3D(outer, inner)), nil
}

// Revolve creates a solid of revolution about z from (height, inner,
// outer) samples. angleSpan >= 2π revolves fully; otherwise the solid
// covers [angleStart, angleStart+angleSpan].
func (k *SdfxKernel) Revolve(points []geom.ProfilePoint, angleStart, angleSpan float64) (kernel.Solid, error) {
	if angleSpan <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "revolve span %g must be positive", angleSpan)
	}
	outline := revolveOutline(points)
	if len(outline) < 3 {
		return nil, errors.New(errors.ErrCodeInvalidProfile, "profile of %d samples encloses no area", len(points))
	}
	s2, err := sdf.Polygon2D(outline)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "sdfx.Polygon2D")
	}

	if angleSpan >= 2*math.Pi {
		s3, err := sdf.Revolve3D(s2)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "sdfx.Revolve3D")
		}
		return wrap(s3), nil
	}
	s3, err := sdf.RevolveTheta3D(s2, angleSpan)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "sdfx.RevolveTheta3D")
	}
	if angleStart != 0 {
		s3 = sdf.Transform3D(s3, sdf.RotateZ(angleStart))
	}
	return wrap(s3), nil
}

// revolveOutline traces the (radius, height) outline of a polycone: down
// the outer radii, then back up the inner radii. Repeated vertices and
// vertices in the middle of a straight run are dropped.
func revolveOutline(points []geom.ProfilePoint) []v2.Vec {
	out := make([]v2.Vec, 0, 2*len(points))
	add := func(v v2.Vec) {
		if n := len(out); n > 0 && out[n-1] == v {
			return
		}
		out = append(out, v)
	}
	for _, p := range points {
		add(v2.Vec{X: p.Outer, Y: p.Height})
	}
	for i := len(points) - 1; i >= 0; i-- {
		add(v2.Vec{X: points[i].Inner, Y: points[i].Height})
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}
	return counterClockwise(dropCollinear(out))
}

// dropCollinear removes every vertex of the closed polygon pts that lies
// between its neighbours on a straight line. Reversals are kept.
func dropCollinear(pts []v2.Vec) []v2.Vec {
	for changed := true; changed && len(pts) > 3; {
		changed = false
		for i := 0; i < len(pts) && len(pts) > 3; i++ {
			a := pts[(i+len(pts)-1)%len(pts)]
			b := pts[i]
			c := pts[(i+1)%len(pts)]
			d1 := v2.Vec{X: b.X - a.X, Y: b.Y - a.Y}
			d2 := v2.Vec{X: c.X - b.X, Y: c.Y - b.Y}
			cross := d1.X*d2.Y - d1.Y*d2.X
			dot := d1.X*d2.X + d1.Y*d2.Y
			scale := math.Hypot(d1.X, d1.Y) * math.Hypot(d2.X, d2.Y)
			if dot > 0 && math.Abs(cross) <= collinearEps*scale {
				pts = append(pts[:i], pts[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return pts
}

// collinearEps is the largest sine of the turn angle treated as straight.
const collinearEps = 1e-12

// counterClockwise returns pts in counter-clockwise order.
func counterClockwise(pts []v2.Vec) []v2.Vec {
	area := 0.0
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		area += a.X*b.Y - b.X*a.Y
	}
	if area >= 0 {
		return pts
	}
	rev := make([]v2.Vec, len(pts))
	for i, p := range pts {
		rev[len(pts)-1-i] = p
	}
	return rev
}

// Extrude sweeps a closed outline along z over [-halfLength, halfLength].
// The outline is scaled by scaleStart at -halfLength and by scaleEnd at
// +halfLength.
func (k *SdfxKernel) Extrude(points []geom.Point2D, halfLength, scaleStart, scaleEnd float64) (kernel.Solid, error) {
	if halfLength <= 0 || scaleStart <= 0 || scaleEnd <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension,
			"extrusion half length %g, scales %g and %g must be positive", halfLength, scaleStart, scaleEnd)
	}
	outline := make([]v2.Vec, 0, len(points))
	for _, p := range points {
		v := v2.Vec{X: p.U * scaleStart, Y: p.V * scaleStart}
		if n := len(outline); n > 0 && outline[n-1] == v {
			continue
		}
		outline = append(outline, v)
	}
	if n := len(outline); n > 1 && outline[0] == outline[n-1] {
		outline = outline[:n-1]
	}
	if len(outline) < 3 {
		return nil, errors.New(errors.ErrCodeInvalidProfile, "outline of %d points encloses no area", len(points))
	}
	s2, err := sdf.Polygon2D(counterClockwise(outline))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "sdfx.Polygon2D")
	}

	height := 2 * halfLength
	if scaleStart == scaleEnd {
		return wrap(sdf.Extrude3D(s2, height)), nil
	}
	r := scaleEnd / scaleStart
	return wrap(sdf.ScaleExtrude3D(s2, height, v2.Vec{X: r, Y: r})), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b))), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b))), nil
}

// Transform moves a solid by a rigid transform.
func (k *SdfxKernel) Transform(s kernel.Solid, t geom.Transform) (kernel.Solid, error) {
	return wrap(sdf.Transform3D(unwrap(s), matrix(t))), nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
