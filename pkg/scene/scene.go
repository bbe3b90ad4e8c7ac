// Package scene is the in-memory geometry engine the detector builders
// talk to. It owns every solid, volume and placement created during a
// build and hands out opaque handles to them.
//
// A Solid is a shape, a Volume is a shape filled with a material, and a
// Placement puts a Volume inside a mother Volume with a rigid transform.
// One Volume may be placed many times. The tree of placements hangs off
// the world volume created with the World.
package scene

import (
	"sync"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/kernel"
	"github.com/chazu/detgeom/pkg/material"
)

// Defaults for the world volume.
const (
	DefaultWorldSize     = 4 * geom.Meter
	DefaultWorldMaterial = "G4_AIR"
	WorldName            = "World"
)

// Materials resolves material names and accepts custom definitions.
// *material.Table satisfies it.
type Materials interface {
	Resolve(name string) (*material.Material, error)
	Define(m material.Material) error
}

// Solid is a handle to a shape.
type Solid struct {
	id    int
	name  string
	shape kernel.Solid
}

// Name returns the name the solid was created with.
func (s *Solid) Name() string { return s.name }

// Shape returns the kernel solid behind the handle.
func (s *Solid) Shape() kernel.Solid { return s.shape }

// Volume is a handle to a solid filled with a material.
type Volume struct {
	id        int
	name      string
	solid     *Solid
	material  *material.Material
	daughters []*Placement
	placed    int
}

// Name returns the volume name.
func (v *Volume) Name() string { return v.name }

// Solid returns the volume's shape.
func (v *Volume) Solid() *Solid { return v.solid }

// Material returns the volume's material.
func (v *Volume) Material() *material.Material { return v.material }

// Placement is a handle to one placed copy of a volume.
type Placement struct {
	id        int
	name      string
	volume    *Volume
	parent    *Volume
	transform geom.Transform
}

// Name returns the placement name.
func (p *Placement) Name() string { return p.name }

// Volume returns the placed volume.
func (p *Placement) Volume() *Volume { return p.volume }

// Parent returns the mother volume.
func (p *Placement) Parent() *Volume { return p.parent }

// Transform returns the placement relative to the mother volume.
func (p *Placement) Transform() geom.Transform { return p.transform }

// World owns the geometry of one build.
type World struct {
	mu         sync.Mutex
	kernel     kernel.Kernel
	materials  Materials
	root       *Volume
	solids     []*Solid
	volumes    []*Volume
	placements []*Placement
	sensitive  []*Volume
	registered map[*Volume]bool

	size          float64
	worldMaterial string
}

// Option configures a World.
type Option func(*World)

// WithWorldSize sets the edge length of the cubic world volume.
func WithWorldSize(size float64) Option {
	return func(w *World) { w.size = size }
}

// WithWorldMaterial sets the material filling the world volume.
func WithWorldMaterial(name string) Option {
	return func(w *World) { w.worldMaterial = name }
}

// New creates a World backed by the given kernel and materials, with its
// world volume already in place.
func New(k kernel.Kernel, materials Materials, opts ...Option) (*World, error) {
	w := &World{
		kernel:        k,
		materials:     materials,
		registered:    make(map[*Volume]bool),
		size:          DefaultWorldSize,
		worldMaterial: DefaultWorldMaterial,
	}
	for _, opt := range opts {
		opt(w)
	}

	box, err := w.Box(WorldName, w.size, w.size, w.size)
	if err != nil {
		return nil, err
	}
	mat, err := w.ResolveMaterial(w.worldMaterial)
	if err != nil {
		return nil, errors.WithSubject(err, WorldName)
	}
	root, err := w.Volume(box, mat, WorldName)
	if err != nil {
		return nil, err
	}
	w.root = root
	return w, nil
}

// Root returns the world volume.
func (w *World) Root() *Volume { return w.root }

// Size returns the edge length of the world volume.
func (w *World) Size() float64 { return w.size }

// Kernel returns the kernel solids are built with.
func (w *World) Kernel() kernel.Kernel { return w.kernel }

// ResolveMaterial looks up a material by name.
func (w *World) ResolveMaterial(name string) (*material.Material, error) {
	return w.materials.Resolve(name)
}

// DefineMaterial adds a custom material to the table the world resolves
// names from.
func (w *World) DefineMaterial(m material.Material) error {
	return w.materials.Define(m)
}

// ----------------------------------------------------------------------------
// Solids
// ----------------------------------------------------------------------------

func (w *World) addSolid(name string, s kernel.Solid, err error) (*Solid, error) {
	if err != nil {
		return nil, errors.WithSubject(err, name)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	h := &Solid{id: len(w.solids), name: name, shape: s}
	w.solids = append(w.solids, h)
	return h, nil
}

// Box creates a box with full edge lengths x, y, z centered on the origin.
func (w *World) Box(name string, x, y, z float64) (*Solid, error) {
	s, err := w.kernel.Box(x, y, z)
	return w.addSolid(name, s, err)
}

// Tube creates a tube along z centered on the origin.
func (w *World) Tube(name string, innerRadius, outerRadius, length float64) (*Solid, error) {
	s, err := w.kernel.Tube(innerRadius, outerRadius, length)
	return w.addSolid(name, s, err)
}

// RevolvedProfile creates a polycone from profile samples.
func (w *World) RevolvedProfile(name string, points []geom.ProfilePoint, angleStart, angleSpan float64) (*Solid, error) {
	s, err := w.kernel.Revolve(points, angleStart, angleSpan)
	return w.addSolid(name, s, err)
}

// ExtrudedPolygon creates a prism from a closed outline spanning
// [-halfLength, halfLength] along z.
func (w *World) ExtrudedPolygon(name string, points []geom.Point2D, halfLength, scaleStart, scaleEnd float64) (*Solid, error) {
	s, err := w.kernel.Extrude(points, halfLength, scaleStart, scaleEnd)
	return w.addSolid(name, s, err)
}

// Difference creates a minus b, with b moved by t relative to a.
func (w *World) Difference(name string, a, b *Solid, t geom.Transform) (*Solid, error) {
	if err := w.owns(a, b); err != nil {
		return nil, errors.WithSubject(err, name)
	}
	moved, err := w.kernel.Transform(b.shape, t)
	if err != nil {
		return nil, errors.WithSubject(err, name)
	}
	s, err := w.kernel.Difference(a.shape, moved)
	return w.addSolid(name, s, err)
}

// Union creates a plus b, with b moved by t relative to a.
func (w *World) Union(name string, a, b *Solid, t geom.Transform) (*Solid, error) {
	if err := w.owns(a, b); err != nil {
		return nil, errors.WithSubject(err, name)
	}
	moved, err := w.kernel.Transform(b.shape, t)
	if err != nil {
		return nil, errors.WithSubject(err, name)
	}
	s, err := w.kernel.Union(a.shape, moved)
	return w.addSolid(name, s, err)
}

func (w *World) owns(solids ...*Solid) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range solids {
		if s == nil || s.id >= len(w.solids) || w.solids[s.id] != s {
			return errors.New(errors.ErrCodeInternal, "solid does not belong to this world")
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Volumes and placements
// ----------------------------------------------------------------------------

// Volume fills solid with mat.
func (w *World) Volume(solid *Solid, mat *material.Material, name string) (*Volume, error) {
	if err := w.owns(solid); err != nil {
		return nil, errors.WithSubject(err, name)
	}
	if mat == nil {
		return nil, errors.New(errors.ErrCodeUnknownMaterial, "volume %s has no material", name)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	v := &Volume{id: len(w.volumes), name: name, solid: solid, material: mat}
	w.volumes = append(w.volumes, v)
	return v, nil
}

func (w *World) ownsVolume(v *Volume) bool {
	return v != nil && v.id < len(w.volumes) && w.volumes[v.id] == v
}

// Place puts a copy of v inside parent with transform t. A nil parent
// means the world volume.
func (w *World) Place(v *Volume, t geom.Transform, parent *Volume, name string) (*Placement, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if parent == nil {
		parent = w.root
	}
	switch {
	case !w.ownsVolume(v):
		return nil, errors.New(errors.ErrCodeInternal, "placement %s: volume does not belong to this world", name)
	case !w.ownsVolume(parent):
		return nil, errors.New(errors.ErrCodeInternal, "placement %s: mother volume does not belong to this world", name)
	case v == w.root:
		return nil, errors.New(errors.ErrCodeInternal, "placement %s: the world volume cannot be placed", name)
	case v == parent || contains(v, parent):
		return nil, errors.New(errors.ErrCodeInternal, "placement %s: %s would contain itself", name, v.name)
	}

	p := &Placement{id: len(w.placements), name: name, volume: v, parent: parent, transform: t}
	w.placements = append(w.placements, p)
	parent.daughters = append(parent.daughters, p)
	v.placed++
	return p, nil
}

// contains reports whether target is placed anywhere below v.
func contains(v, target *Volume) bool {
	for _, d := range v.daughters {
		if d.volume == target || contains(d.volume, target) {
			return true
		}
	}
	return false
}

// Children returns the placements inside v in creation order.
func (w *World) Children(v *Volume) []*Placement {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Placement(nil), v.daughters...)
}

// Volumes returns every volume including the world, in creation order.
func (w *World) Volumes() []*Volume {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Volume(nil), w.volumes...)
}

// Placements returns every placement in creation order.
func (w *World) Placements() []*Placement {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Placement(nil), w.placements...)
}

// Lookup returns the first volume called name, or nil.
func (w *World) Lookup(name string) *Volume {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, v := range w.volumes {
		if v.name == name {
			return v
		}
	}
	return nil
}

// Visit is called by Walk for every placement with the placement's
// transform in the world frame and its depth below the world volume.
type Visit func(p *Placement, global geom.Transform, depth int) error

// Walk visits the placement tree depth-first in creation order. A volume
// placed several times is visited once per placement.
func (w *World) Walk(fn Visit) error {
	return w.walk(w.root, geom.Identity(), 1, fn)
}

func (w *World) walk(v *Volume, frame geom.Transform, depth int, fn Visit) error {
	for _, p := range w.Children(v) {
		global := frame.Compose(p.transform)
		if err := fn(p, global, depth); err != nil {
			return err
		}
		if err := w.walk(p.volume, global, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
