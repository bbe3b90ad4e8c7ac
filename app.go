package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/chazu/detgeom/pkg/array"
	"github.com/chazu/detgeom/pkg/collection"
	"github.com/chazu/detgeom/pkg/config"
	"github.com/chazu/detgeom/pkg/detector"
	"github.com/chazu/detgeom/pkg/engine"
	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/kernel"
	"github.com/chazu/detgeom/pkg/kernel/sdfx"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/polycone"
	"github.com/chazu/detgeom/pkg/render"
	"github.com/chazu/detgeom/pkg/scene"
	"github.com/chazu/detgeom/pkg/tessellate"
)

// App turns catalogue source into a built world. It holds the run
// configuration and is safe to reuse across builds.
type App struct {
	engine *engine.Engine
	cfg    config.Config
	logger *log.Logger
}

// BuildResult is the outcome of one Build. When Errors is non-empty the
// catalogue did not evaluate and nothing was built.
type BuildResult struct {
	ID        uuid.UUID
	World     *scene.World
	Detectors []array.Built
	Sensitive []string
	Sources   []string
	Volumes   int
	Warnings  []scene.ValidationError
	Errors    []engine.EvalError
}

// NewApp creates an App with the given configuration. A nil logger discards.
func NewApp(cfg config.Config, logger *log.Logger) *App {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &App{
		engine: engine.NewEngine(engine.WithLogger(logger)),
		cfg:    cfg,
		logger: logger,
	}
}

// Build evaluates source and constructs the resulting array in a fresh
// world. DSL errors are reported in BuildResult.Errors; anything else that
// stops the build is returned as an error.
func (a *App) Build(source string) (*BuildResult, error) {
	result := &BuildResult{ID: uuid.New()}

	// Step 1: evaluate the catalogue.
	cat, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if len(evalErrs) > 0 {
		result.Errors = evalErrs
		return result, nil
	}
	if a.cfg.Target.Enabled != nil {
		cat.UseTarget = *a.cfg.Target.Enabled
	}

	// Step 2: a world backed by the sdfx kernel.
	w, err := a.newWorld()
	if err != nil {
		return nil, err
	}

	// Step 3: build detectors and targets.
	asm := array.NewAssembler(w, *cat,
		array.WithLogger(a.logger),
		array.WithDetectorOptions(
			detector.WithTolerance(a.cfg.Optimizer.Tolerance),
			detector.WithSteps(a.cfg.Profile.Steps),
		),
	)
	res, err := asm.Construct(nil)
	if err != nil {
		return nil, err
	}

	// Step 4: summarize.
	result.World = w
	result.Detectors = res.Detectors
	result.Sensitive = lo.Map(res.Sensitive, func(v *scene.Volume, _ int) string { return v.Name() })
	result.Sources = lo.Map(res.Sources, func(v *scene.Volume, _ int) string { return v.Name() })
	result.Volumes = len(w.Volumes()) - 1
	result.Warnings = res.Warnings
	a.logger.Debug("build done", "id", result.ID, "volumes", result.Volumes)
	return result, nil
}

// BuildFile reads a catalogue from path and builds it.
func (a *App) BuildFile(path string) (*BuildResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read catalogue %s", path)
	}
	return a.Build(string(source))
}

func (a *App) newWorld() (*scene.World, error) {
	tbl, err := a.materials()
	if err != nil {
		return nil, err
	}
	k := sdfx.New(sdfx.WithMeshCells(a.cfg.Mesh.Cells))
	return scene.New(k, tbl,
		scene.WithWorldSize(a.cfg.World.Size),
		scene.WithWorldMaterial(a.cfg.World.Material),
	)
}

// materials returns the built-in table extended with the configured
// materials.
func (a *App) materials() (*material.Table, error) {
	tbl, err := material.NewTable()
	if err != nil {
		return nil, err
	}
	if err := a.cfg.Apply(tbl); err != nil {
		return nil, err
	}
	return tbl, nil
}

// ----------------------------------------------------------------------------
// Export
// ----------------------------------------------------------------------------

// Manifest describes an export directory.
type Manifest struct {
	Build     string          `toml:"build"`
	Created   time.Time       `toml:"created"`
	MeshCells int             `toml:"mesh_cells"`
	Parts     []ManifestEntry `toml:"part"`
}

// ManifestEntry is one exported STL file.
type ManifestEntry struct {
	Name      string `toml:"name"`
	Material  string `toml:"material"`
	File      string `toml:"file"`
	Triangles int    `toml:"triangles"`
}

// ManifestFile is the name of the manifest written next to the STL files.
const ManifestFile = "manifest.toml"

// Export meshes the built world and writes one binary STL per placement
// into dir, plus a manifest. Files are numbered in walk order.
func (a *App) Export(ctx context.Context, res *BuildResult, dir string, sensitiveOnly bool) (*Manifest, error) {
	if res == nil || res.World == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "nothing to export")
	}
	opts := []tessellate.Option{
		tessellate.WithWorkers(a.cfg.Mesh.Workers),
		tessellate.WithLogger(a.logger),
	}
	if sensitiveOnly {
		opts = append(opts, tessellate.SensitiveOnly())
	}
	meshes, err := tessellate.Tessellate(ctx, res.World, opts...)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	m := &Manifest{Build: res.ID.String(), Created: time.Now().UTC(), MeshCells: a.cfg.Mesh.Cells}
	for i, mesh := range meshes {
		file := fmt.Sprintf("%03d_%s.stl", i, mesh.PartName)
		if err := writeSTLFile(filepath.Join(dir, file), mesh); err != nil {
			return nil, err
		}
		m.Parts = append(m.Parts, ManifestEntry{
			Name:      mesh.PartName,
			Material:  mesh.Material,
			File:      file,
			Triangles: mesh.TriangleCount(),
		})
	}

	err = writeFile(filepath.Join(dir, ManifestFile), func(f *os.File) error {
		return toml.NewEncoder(f).Encode(m)
	})
	if err != nil {
		return nil, fmt.Errorf("export: write manifest: %w", err)
	}
	return m, nil
}

func writeSTLFile(path string, mesh *kernel.Mesh) error {
	return writeFile(path, func(f *os.File) error { return render.WriteSTL(f, mesh) })
}

// ----------------------------------------------------------------------------
// Profiles
// ----------------------------------------------------------------------------

// ProfileResult is a crystal profile before and after optimization.
type ProfileResult struct {
	Collection   string
	Dense        []geom.ProfilePoint
	Optimized    []geom.ProfilePoint
	MaxDeviation float64
}

// Profile computes the dense crystal profile of a coaxial collection and
// its optimized reduction.
func (a *App) Profile(name string) (*ProfileResult, error) {
	fam, ok := collection.Lookup(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown collection %q", name)
	}
	coax, ok := fam.(*detector.Coaxial)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"collection %q is a %s detector; only coaxial crystals are revolved profiles", name, fam.Kind())
	}

	dense, err := coax.CrystalProfile(a.cfg.Profile.Steps)
	if err != nil {
		return nil, errors.WithSubject(err, name)
	}
	optimized, err := polycone.Optimize(dense, polycone.WithTolerance(a.cfg.Optimizer.Tolerance))
	if err != nil {
		return nil, errors.WithSubject(err, name)
	}
	dev, err := polycone.MaxDeviation(dense, optimized)
	if err != nil {
		return nil, errors.WithSubject(err, name)
	}
	a.logger.Debug("profile optimized", "collection", name, "dense", len(dense), "optimized", len(optimized))
	return &ProfileResult{Collection: name, Dense: dense, Optimized: optimized, MaxDeviation: dev}, nil
}

// Materials returns the material table the builds use, sorted by name.
func (a *App) Materials() ([]*material.Material, error) {
	tbl, err := a.materials()
	if err != nil {
		return nil, err
	}
	out := make([]*material.Material, 0, tbl.Len())
	for _, name := range tbl.Names() {
		m, err := tbl.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
