// Package kerneltest provides a kernel.Kernel that records the solids it
// is asked to build instead of modeling them. Bounding boxes are computed
// analytically and meshes are the boxes' hulls, which is enough for tests
// of code that only threads solids through.
package kerneltest

import (
	"math"
	"sync"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// Shape is the recorded solid.
type Shape struct {
	Op       string    // "box", "tube", "revolve", "extrude", "union", "difference", "transform"
	Params   []float64 // numeric arguments in call order
	Points   int       // outline or profile length for revolve and extrude
	Operands []*Shape
	Min, Max [3]float64
}

// BoundingBox returns the axis-aligned bounding box.
func (s *Shape) BoundingBox() (min, max [3]float64) {
	return s.Min, s.Max
}

// Kernel records every call.
type Kernel struct {
	mu    sync.Mutex
	calls map[string]int
}

// New returns an empty recording kernel.
func New() *Kernel {
	return &Kernel{calls: make(map[string]int)}
}

// Calls returns how many times op was requested.
func (k *Kernel) Calls(op string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.calls[op]
}

func (k *Kernel) record(s *Shape) *Shape {
	k.mu.Lock()
	k.calls[s.Op]++
	k.mu.Unlock()
	return s
}

func shape(s kernel.Solid) *Shape {
	return s.(*Shape)
}

// Box records a centered box.
func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "box %gx%gx%g", x, y, z)
	}
	return k.record(&Shape{
		Op:     "box",
		Params: []float64{x, y, z},
		Min:    [3]float64{-x / 2, -y / 2, -z / 2},
		Max:    [3]float64{x / 2, y / 2, z / 2},
	}), nil
}

// Tube records a centered tube along z.
func (k *Kernel) Tube(rMin, rMax, length float64) (kernel.Solid, error) {
	if rMin < 0 || rMax <= rMin || length <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "tube %g..%g x %g", rMin, rMax, length)
	}
	return k.record(&Shape{
		Op:     "tube",
		Params: []float64{rMin, rMax, length},
		Min:    [3]float64{-rMax, -rMax, -length / 2},
		Max:    [3]float64{rMax, rMax, length / 2},
	}), nil
}

// Revolve records a polycone.
func (k *Kernel) Revolve(points []geom.ProfilePoint, angleStart, angleSpan float64) (kernel.Solid, error) {
	if len(points) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidProfile, "revolve needs 2 samples, got %d", len(points))
	}
	r := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		r = math.Max(r, p.Outer)
		lo = math.Min(lo, p.Height)
		hi = math.Max(hi, p.Height)
	}
	return k.record(&Shape{
		Op:     "revolve",
		Params: []float64{angleStart, angleSpan},
		Points: len(points),
		Min:    [3]float64{-r, -r, lo},
		Max:    [3]float64{r, r, hi},
	}), nil
}

// Extrude records an extruded outline.
func (k *Kernel) Extrude(points []geom.Point2D, halfLength, scaleStart, scaleEnd float64) (kernel.Solid, error) {
	if len(points) < 3 || halfLength <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "extrude of %d points over %g", len(points), halfLength)
	}
	s := math.Max(scaleStart, scaleEnd)
	min := [3]float64{math.Inf(1), math.Inf(1), -halfLength}
	max := [3]float64{math.Inf(-1), math.Inf(-1), halfLength}
	for _, p := range points {
		min[0] = math.Min(min[0], p.U*s)
		min[1] = math.Min(min[1], p.V*s)
		max[0] = math.Max(max[0], p.U*s)
		max[1] = math.Max(max[1], p.V*s)
	}
	return k.record(&Shape{
		Op:     "extrude",
		Params: []float64{halfLength, scaleStart, scaleEnd},
		Points: len(points),
		Min:    min,
		Max:    max,
	}), nil
}

// Union records a union.
func (k *Kernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb := shape(a), shape(b)
	out := &Shape{Op: "union", Operands: []*Shape{sa, sb}, Min: sa.Min, Max: sa.Max}
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Min(sa.Min[i], sb.Min[i])
		out.Max[i] = math.Max(sa.Max[i], sb.Max[i])
	}
	return k.record(out), nil
}

// Difference records a - b. The bounding box is a's.
func (k *Kernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb := shape(a), shape(b)
	return k.record(&Shape{Op: "difference", Operands: []*Shape{sa, sb}, Min: sa.Min, Max: sa.Max}), nil
}

// Transform records a rigid motion and moves the bounding box with it.
func (k *Kernel) Transform(s kernel.Solid, t geom.Transform) (kernel.Solid, error) {
	src := shape(s)
	out := &Shape{Op: "transform", Operands: []*Shape{src}}
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Inf(1)
		out.Max[i] = math.Inf(-1)
	}
	for c := 0; c < 8; c++ {
		corner := geom.Vec{X: src.Min[0], Y: src.Min[1], Z: src.Min[2]}
		if c&1 != 0 {
			corner.X = src.Max[0]
		}
		if c&2 != 0 {
			corner.Y = src.Max[1]
		}
		if c&4 != 0 {
			corner.Z = src.Max[2]
		}
		p := t.Apply(corner)
		for i, v := range [3]float64{p.X, p.Y, p.Z} {
			out.Min[i] = math.Min(out.Min[i], v)
			out.Max[i] = math.Max(out.Max[i], v)
		}
	}
	return k.record(out), nil
}

// ToMesh returns the 12-triangle hull of the solid's bounding box.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	min, max := s.BoundingBox()
	m := &kernel.Mesh{}
	for c := 0; c < 8; c++ {
		v := [3]float64{min[0], min[1], min[2]}
		for i := 0; i < 3; i++ {
			if c&(1<<i) != 0 {
				v[i] = max[i]
			}
		}
		m.Vertices = append(m.Vertices, float32(v[0]), float32(v[1]), float32(v[2]))
		m.Normals = append(m.Normals, 0, 0, 0)
	}
	// Two triangles per face of the box, corners indexed by their bit pattern.
	m.Indices = []uint32{
		0, 2, 1, 1, 2, 3, // z = min
		4, 5, 6, 5, 7, 6, // z = max
		0, 1, 4, 1, 5, 4, // y = min
		2, 6, 3, 3, 6, 7, // y = max
		0, 4, 2, 2, 4, 6, // x = min
		1, 3, 5, 3, 7, 5, // x = max
	}
	k.mu.Lock()
	k.calls["mesh"]++
	k.mu.Unlock()
	return m, nil
}
