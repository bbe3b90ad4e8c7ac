// Package array assembles a detector array: every detector of a catalogue,
// in catalogue order, followed by the targets at its center.
//
// The catalogue is plain data built by the caller (usually by the DSL in
// package engine). Construction is all or nothing from the point of view
// of the sensitive-volume registry: volumes are registered only once every
// detector and target has been built and the world has passed validation.
package array

import (
	"io"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/detgeom/pkg/detector"
	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/scene"
	"github.com/chazu/detgeom/pkg/target"
)

// Geometry is the geometry engine as seen by the assembler.
// *scene.World satisfies it.
type Geometry interface {
	target.Geometry
	RegisterSensitive(volumes ...*scene.Volume) error
	Validate() []scene.ValidationError
}

var _ Geometry = (*scene.World)(nil)

// Entry is one detector of the catalogue. A nil Origin places the detector
// around the shared array origin; an explicit one mounts it elsewhere, for
// example on a separate beam line.
type Entry struct {
	detector.Instance
	Origin *geom.Vec
}

// Source is a target placed at Origin, relative to the array origin.
type Source struct {
	target.Target
	Origin geom.Vec
}

// Catalogue is the ordered list of what to build.
type Catalogue struct {
	Entries   []Entry
	Targets   []Source
	UseTarget bool // build Targets; when false they are ignored
}

// Validate checks every entry and that instance names are unique.
func (c *Catalogue) Validate() error {
	seen := make(map[string]bool, len(c.Entries))
	for _, e := range c.Entries {
		if err := e.Instance.Validate(); err != nil {
			return errors.WithSubject(err, e.Name)
		}
		if seen[e.Name] {
			return errors.New(errors.ErrCodeInvalidConfig, "detector name %q is used twice", e.Name)
		}
		seen[e.Name] = true
	}
	for i, s := range c.Targets {
		if s.Target == nil {
			return errors.New(errors.ErrCodeInvalidConfig, "target %d is empty", i)
		}
		if seen[s.Name()] {
			return errors.New(errors.ErrCodeInvalidConfig, "name %q is used twice", s.Name())
		}
		seen[s.Name()] = true
	}
	return nil
}

// Built is a constructed detector.
type Built struct {
	Name   string
	Kind   string
	Result detector.Result
}

// Result is what Construct produced.
type Result struct {
	Detectors []Built
	Sensitive []*scene.Volume // in catalogue order
	Sources   []*scene.Volume // one per target
	Warnings  []scene.ValidationError
}

type options struct {
	logger     *log.Logger
	origin     geom.Vec
	detOptions []detector.Option
}

// Option configures an Assembler.
type Option func(*options)

// WithLogger sets the logger progress is reported to.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOrigin sets the shared array origin used by entries without their
// own.
func WithOrigin(v geom.Vec) Option {
	return func(o *options) { o.origin = v }
}

// WithDetectorOptions passes options on to every detector.Build call.
func WithDetectorOptions(opts ...detector.Option) Option {
	return func(o *options) { o.detOptions = append(o.detOptions, opts...) }
}

// Assembler builds one catalogue into one geometry.
type Assembler struct {
	geo  Geometry
	cat  Catalogue
	opts options
	done bool
}

// NewAssembler returns an Assembler for cat.
func NewAssembler(geo Geometry, cat Catalogue, opts ...Option) *Assembler {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	return &Assembler{geo: geo, cat: cat, opts: o}
}

// Construct builds the catalogue inside mother (nil for the world volume).
// It may be called once. The first failure aborts the build and leaves the
// sensitive-volume registry untouched.
func (a *Assembler) Construct(mother *scene.Volume) (Result, error) {
	if a.done {
		return Result{}, errors.New(errors.ErrCodeInvalidConfig, "catalogue has already been constructed")
	}
	a.done = true
	if err := a.cat.Validate(); err != nil {
		return Result{}, err
	}

	logger := a.opts.logger
	detOpts := append([]detector.Option{detector.WithLogger(logger)}, a.opts.detOptions...)

	var res Result
	for i, e := range a.cat.Entries {
		inst := e.Instance
		inst.Placement.Origin = a.opts.origin
		if e.Origin != nil {
			inst.Placement.Origin = *e.Origin
		}
		logger.Info("building detector", "detector", inst.Name, "family", inst.Family.Kind(),
			"n", i+1, "of", len(a.cat.Entries))

		built, err := detector.Build(a.geo, mother, inst, detOpts...)
		if err != nil {
			return Result{}, err
		}
		res.Detectors = append(res.Detectors, Built{Name: inst.Name, Kind: inst.Family.Kind(), Result: built})
		res.Sensitive = append(res.Sensitive, built.Sensitive...)
	}

	if a.cat.UseTarget {
		for _, s := range a.cat.Targets {
			logger.Info("building target", "target", s.Name())
			src, err := s.Construct(a.geo, mother, r3.Add(a.opts.origin, s.Origin))
			if err != nil {
				return Result{}, err
			}
			res.Sources = append(res.Sources, src)
		}
	}

	findings := a.geo.Validate()
	if errs := scene.Errors(findings); len(errs) > 0 {
		return Result{}, errors.New(errors.ErrCodeInvalidConfig, "geometry failed validation: %v", errs[0])
	}
	for _, f := range findings {
		logger.Warn(f.Message, "subject", f.Subject)
		res.Warnings = append(res.Warnings, f)
	}

	if err := a.geo.RegisterSensitive(res.Sensitive...); err != nil {
		return Result{}, err
	}
	logger.Info("array built", "detectors", len(res.Detectors), "sensitive", len(res.Sensitive), "sources", len(res.Sources))
	return res, nil
}
