// Package config holds the run configuration: how a catalogue is built,
// as opposed to what it contains. It is read from a TOML file; every key
// is optional and unknown keys are rejected.
//
//	[optimizer]
//	tolerance = 0.001   # mm
//
//	[profile]
//	steps = 500
//
//	[world]
//	size = 4000         # mm, edge of the cubic world
//	material = "G4_AIR"
//
//	[mesh]
//	cells = 200
//	workers = 0         # 0: one per CPU
//
//	[target]
//	enabled = false     # omit to follow the catalogue
//
//	[plot]
//	width = 8           # inches
//	height = 5
//
//	[[material]]
//	name = "BGO"
//	density = 7.13
//	components = [
//	  {element = "Bi", fraction = 0.6710},
//	  {element = "Ge", fraction = 0.1745},
//	  {element = "O", fraction = 0.1545},
//	]
package config

import (
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/kernel/sdfx"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/polycone"
	"github.com/chazu/detgeom/pkg/profile"
	"github.com/chazu/detgeom/pkg/scene"
)

// Config is the run configuration.
type Config struct {
	Optimizer Optimizer           `toml:"optimizer"`
	Profile   Profile             `toml:"profile"`
	World     World               `toml:"world"`
	Mesh      Mesh                `toml:"mesh"`
	Target    Target              `toml:"target"`
	Plot      Plot                `toml:"plot"`
	Materials []material.Material `toml:"material"`
}

// Optimizer configures the polycone reduction.
type Optimizer struct {
	Tolerance float64 `toml:"tolerance"`
}

// Profile configures dense profile sampling.
type Profile struct {
	Steps int `toml:"steps"`
}

// World configures the world volume.
type World struct {
	Size     float64 `toml:"size"`
	Material string  `toml:"material"`
}

// Mesh configures tessellation for exports.
type Mesh struct {
	Cells   int `toml:"cells"`
	Workers int `toml:"workers"`
}

// Target overrides whether the catalogue's targets are built.
type Target struct {
	Enabled *bool `toml:"enabled"`
}

// Plot configures profile plots, in inches.
type Plot struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Optimizer: Optimizer{Tolerance: polycone.DefaultTolerance},
		Profile:   Profile{Steps: profile.DefaultSteps},
		World:     World{Size: scene.DefaultWorldSize, Material: scene.DefaultWorldMaterial},
		Mesh:      Mesh{Cells: sdfx.DefaultMeshCells},
		Plot:      Plot{Width: 8, Height: 5},
	}
}

// Load reads the configuration at path. A missing file yields Default.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open %s", path)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, errors.WithSubject(err, path)
	}
	return cfg, nil
}

// Decode reads a configuration from r on top of Default.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode configuration")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if err := errors.Positive("optimizer.tolerance", c.Optimizer.Tolerance); err != nil {
		return err
	}
	if c.Profile.Steps < 2 {
		return errors.New(errors.ErrCodeInvalidConfig, "profile.steps = %d: need at least 2", c.Profile.Steps)
	}
	if err := errors.Positive("world.size", c.World.Size); err != nil {
		return err
	}
	if c.World.Material == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "world.material is empty")
	}
	if c.Mesh.Cells < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "mesh.cells = %d: must be positive", c.Mesh.Cells)
	}
	if c.Mesh.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "mesh.workers = %d: must not be negative", c.Mesh.Workers)
	}
	if err := errors.Positive("plot.width", c.Plot.Width); err != nil {
		return err
	}
	if err := errors.Positive("plot.height", c.Plot.Height); err != nil {
		return err
	}
	for _, m := range c.Materials {
		if m.State == "" {
			m.State = material.Solid
		}
		if err := m.Validate(); err != nil {
			return errors.WithSubject(err, "material")
		}
	}
	return nil
}

// Apply defines the configured materials in t.
func (c Config) Apply(t *material.Table) error {
	for _, m := range c.Materials {
		if m.State == "" {
			m.State = material.Solid
		}
		if err := t.Define(m); err != nil {
			return err
		}
	}
	return nil
}
