package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/material"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
[optimizer]
tolerance = 0.01

[world]
material = "G4_Galactic"

[target]
enabled = false

[[material]]
name = "BGO"
density = 7.13
components = [
  {element = "Bi", fraction = 0.6710},
  {element = "Ge", fraction = 0.1745},
  {element = "O", fraction = 0.1545},
]
`))
	require.NoError(t, err)

	want := Default()
	want.Optimizer.Tolerance = 0.01
	want.World.Material = "G4_Galactic"
	off := false
	want.Target.Enabled = &off
	want.Materials = []material.Material{{
		Name:    "BGO",
		Density: 7.13,
		Components: []material.Component{
			{Element: "Bi", Fraction: 0.6710},
			{Element: "Ge", Fraction: 0.1745},
			{Element: "O", Fraction: 0.1545},
		},
	}}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		toml string
		code errors.Code
		want string
	}{
		{"unknown key", "[optimizer]\ntolrance = 1", errors.ErrCodeInvalidConfig, "optimizer.tolrance"},
		{"unknown section", "[render]\ncells = 1", errors.ErrCodeInvalidConfig, "render"},
		{"zero tolerance", "[optimizer]\ntolerance = 0", errors.ErrCodeInvalidDimension, "optimizer.tolerance"},
		{"too few steps", "[profile]\nsteps = 1", errors.ErrCodeInvalidConfig, "profile.steps"},
		{"no world material", "[world]\nmaterial = \"\"", errors.ErrCodeInvalidConfig, "world.material"},
		{"negative workers", "[mesh]\nworkers = -1", errors.ErrCodeInvalidConfig, "mesh.workers"},
		{"bad fractions", "[[material]]\nname = \"X\"\ndensity = 1\ncomponents = [{element = \"H\", fraction = 0.5}]",
			errors.ErrCodeInvalidDimension, "must add up to 1"},
		{"syntax", "[optimizer", errors.ErrCodeInvalidConfig, "decode configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.toml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestLoadCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte("[mesh]\ncels = 10\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, path, errors.SubjectOf(err))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestApplyDefinesMaterials(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
[[material]]
name = "PbGlass"
density = 4.1
`))
	require.NoError(t, err)

	tbl, err := material.NewTable()
	require.NoError(t, err)
	require.NoError(t, cfg.Apply(tbl))

	m, err := tbl.Resolve("PbGlass")
	require.NoError(t, err)
	assert.Equal(t, material.Solid, m.State)
	assert.InDelta(t, 4.1, m.Density, 1e-12)
}
