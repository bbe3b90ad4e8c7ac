// Package detector builds the volumes of a single detector instance.
//
// A detector is one of a closed set of families (Clover, Coaxial,
// Scintillator). Build walks the same linear sequence of stages for every
// family, skipping the stages a family does not have:
//
//	EndCap → Fill → Crystal → ColdFinger → Dewar → Filters → Wraps → Done
//
// Every dimension is checked and every material resolved before the first
// solid is requested, so a bad instance fails without touching the world.
// The detector is assembled along its local +z axis with the front face at
// z = 0 and carried into the array frame by its geom.Placement.
package detector

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/polycone"
	"github.com/chazu/detgeom/pkg/profile"
	"github.com/chazu/detgeom/pkg/scene"
)

// Geometry is the part of the geometry engine the builders need.
// *scene.World satisfies it.
type Geometry interface {
	ResolveMaterial(name string) (*material.Material, error)
	Box(name string, x, y, z float64) (*scene.Solid, error)
	Tube(name string, innerRadius, outerRadius, length float64) (*scene.Solid, error)
	RevolvedProfile(name string, points []geom.ProfilePoint, angleStart, angleSpan float64) (*scene.Solid, error)
	ExtrudedPolygon(name string, points []geom.Point2D, halfLength, scaleStart, scaleEnd float64) (*scene.Solid, error)
	Difference(name string, a, b *scene.Solid, t geom.Transform) (*scene.Solid, error)
	Volume(solid *scene.Solid, mat *material.Material, name string) (*scene.Volume, error)
	Place(v *scene.Volume, t geom.Transform, parent *scene.Volume, name string) (*scene.Placement, error)
}

var _ Geometry = (*scene.World)(nil)

// Family is a detector family. The set is closed: Clover, Coaxial and
// Scintillator.
type Family interface {
	// Kind returns the family name.
	Kind() string
	// Validate checks the family's dimensions.
	Validate() error

	materials() []string
	stages() map[Stage]stageFunc
}

type stageFunc func(b *builder) error

// Layer is one filter or wrap. Radius only applies to filters; zero selects
// the family's default (the end cap's outer size).
type Layer struct {
	Material  string
	Thickness float64
	Radius    float64
}

func (l Layer) validate(kind string, i int) error {
	field := fmt.Sprintf("%s %d", kind, i)
	if l.Material == "" {
		return errors.New(errors.ErrCodeUnknownMaterial, "%s has no material", field)
	}
	if err := errors.Positive(field+" thickness", l.Thickness); err != nil {
		return err
	}
	if l.Radius < 0 || math.IsNaN(l.Radius) {
		return errors.Dimension(field+" radius", l.Radius, "must not be negative")
	}
	return nil
}

// Instance is one detector of an array.
type Instance struct {
	Name      string
	Family    Family
	Placement geom.Placement
	Filters   []Layer // stacking order, nearest to the end cap first
	Wraps     []Layer // stacking order, innermost first
}

// Validate checks the instance and its family without building anything.
func (inst Instance) Validate() error {
	if inst.Name == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "detector instance has no name")
	}
	if inst.Family == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "detector %s has no family", inst.Name)
	}
	p := inst.Placement
	for _, v := range []float64{p.Theta, p.Phi, p.Intrinsic, p.Origin.X, p.Origin.Y, p.Origin.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidDimension, "placement of %s is not finite", inst.Name)
		}
	}
	if p.Distance < 0 || math.IsNaN(p.Distance) || math.IsInf(p.Distance, 0) {
		return errors.Dimension("distance from center", p.Distance, "must be finite and not negative")
	}
	if err := inst.Family.Validate(); err != nil {
		return err
	}
	for i, l := range inst.Filters {
		if err := l.validate("filter", i); err != nil {
			return err
		}
	}
	for i, l := range inst.Wraps {
		if err := l.validate("wrap", i); err != nil {
			return err
		}
	}
	return nil
}

// Result holds what Build created for one instance.
type Result struct {
	Volumes    []*scene.Volume
	Placements []*scene.Placement
	Sensitive  []*scene.Volume
}

// ----------------------------------------------------------------------------
// Options
// ----------------------------------------------------------------------------

type options struct {
	logger    *log.Logger
	tolerance float64
	steps     int
}

// Option configures Build.
type Option func(*options)

// WithLogger sets the logger stage transitions are reported to.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTolerance sets the polycone optimizer tolerance in mm.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithSteps sets the number of samples in dense polycone profiles.
func WithSteps(n int) Option {
	return func(o *options) { o.steps = n }
}

func newOptions(opts []Option) options {
	o := options{tolerance: polycone.DefaultTolerance, steps: profile.DefaultSteps}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	return o
}

// ----------------------------------------------------------------------------
// Build
// ----------------------------------------------------------------------------

// Build constructs inst inside mother (nil for the world volume) and
// returns the created volumes. Sensitive volumes are returned, not
// registered. Errors carry the instance name as their subject.
func Build(geo Geometry, mother *scene.Volume, inst Instance, opts ...Option) (Result, error) {
	o := newOptions(opts)
	if err := inst.Validate(); err != nil {
		return Result{}, errors.WithSubject(err, inst.Name)
	}

	b := &builder{
		geo:    geo,
		mother: mother,
		inst:   inst,
		opts:   o,
		log:    o.logger.With("detector", inst.Name, "family", inst.Family.Kind()),
		mats:   make(map[string]*material.Material),
	}
	if err := b.resolveMaterials(); err != nil {
		return Result{}, errors.WithSubject(err, inst.Name)
	}

	steps := inst.Family.stages()
	steps[StageFilters] = buildFilters
	steps[StageWraps] = buildWraps
	for s := StageEndCap; s < StageDone; s++ {
		fn := steps[s]
		if fn == nil {
			continue
		}
		b.stage = s
		b.log.Debug("stage", "stage", s)
		if err := fn(b); err != nil {
			return Result{}, errors.WithSubject(errors.WithSubject(err, s.String()), inst.Name)
		}
	}
	b.stage = StageDone
	b.log.Debug("stage", "stage", StageDone, "volumes", len(b.res.Volumes), "sensitive", len(b.res.Sensitive))
	return b.res, nil
}

// builder carries the state threaded from one stage to the next.
type builder struct {
	geo    Geometry
	mother *scene.Volume
	inst   Instance
	opts   options
	log    *log.Logger
	mats   map[string]*material.Material
	stage  Stage
	res    Result

	// Set by the EndCap and Fill stages for the stages after them.
	endCaps        []*scene.Volume
	fill           *scene.Volume
	fillLength     float64
	endCapLength   float64 // axial extent covered by wraps
	endCapOuter    float64 // outer radius, or outer side length for square caps
	endCapSquare   bool
	endCapRounding float64
	backOfEndCap   float64 // axial position the dewar attaches to
}

func (b *builder) resolveMaterials() error {
	names := b.inst.Family.materials()
	for _, l := range b.inst.Filters {
		names = append(names, l.Material)
	}
	for _, l := range b.inst.Wraps {
		names = append(names, l.Material)
	}
	for _, name := range names {
		if _, ok := b.mats[name]; ok {
			continue
		}
		m, err := b.geo.ResolveMaterial(name)
		if err != nil {
			return err
		}
		b.mats[name] = m
	}
	return nil
}

// name prefixes part with the instance name.
func (b *builder) name(part string) string {
	return b.inst.Name + "_" + part
}

// volume fills solid with a material resolved up front.
func (b *builder) volume(solid *scene.Solid, mat, part string) (*scene.Volume, error) {
	v, err := b.geo.Volume(solid, b.mats[mat], b.name(part))
	if err != nil {
		return nil, err
	}
	b.res.Volumes = append(b.res.Volumes, v)
	return v, nil
}

// place puts v inside parent, or inside the mother volume with a transform
// derived from the instance placement when parent is nil.
func (b *builder) place(v *scene.Volume, t geom.Transform, parent *scene.Volume, part string) error {
	if parent == nil {
		parent = b.mother
	}
	p, err := b.geo.Place(v, t, parent, b.name(part))
	if err != nil {
		return err
	}
	b.res.Placements = append(b.res.Placements, p)
	return nil
}

// axial returns the global transform of a part centered offset mm behind
// the detector face.
func (b *builder) axial(offset float64) geom.Transform {
	return b.inst.Placement.At(offset)
}

// along returns a transform inside a parent volume shifted along local z.
func along(z float64) geom.Transform {
	return geom.Translate(geom.Vec{Z: z})
}

// tube creates and places a tube in one step.
func (b *builder) tube(part, mat string, rMin, rMax, length float64, t geom.Transform, parent *scene.Volume) (*scene.Volume, error) {
	s, err := b.geo.Tube(b.name(part+"_solid"), rMin, rMax, length)
	if err != nil {
		return nil, err
	}
	v, err := b.volume(s, mat, part)
	if err != nil {
		return nil, err
	}
	return v, b.place(v, t, parent, part)
}

// polycone optimizes a dense table and revolves it into a full solid.
func (b *builder) polycone(part string, dense []geom.ProfilePoint) (*scene.Solid, error) {
	pts, err := polycone.Optimize(dense, polycone.WithTolerance(b.opts.tolerance))
	if err != nil {
		return nil, errors.WithSubject(err, part)
	}
	b.log.Debug("polycone", "part", part, "dense", len(dense), "optimized", len(pts))
	return b.geo.RevolvedProfile(b.name(part+"_solid"), pts, 0, 2*math.Pi)
}
