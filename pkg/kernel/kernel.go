// Package kernel defines the abstract solid-modeling interface the scene
// is built on. Backends (sdfx, the recording kernel used in tests) create
// primitive solids, combine them and turn them into triangle meshes.
//
// Solids are centered on their local origin with their symmetry axis along
// +z, the convention the detector builders place them by.
package kernel

import "github.com/chazu/detgeom/pkg/geom"

// Solid is an opaque handle to a backend solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract solid-modeling interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Tube(innerRadius, outerRadius, length float64) (Solid, error)
	Revolve(points []geom.ProfilePoint, angleStart, angleSpan float64) (Solid, error)
	Extrude(points []geom.Point2D, halfLength, scaleStart, scaleEnd float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)

	// Placement
	Transform(s Solid, t geom.Transform) (Solid, error)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
