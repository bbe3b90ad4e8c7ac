package collection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/detgeom/pkg/detector"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/kernel/kerneltest"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/scene"
)

func TestNamesSorted(t *testing.T) {
	names := Names()
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "clover-yale")
	assert.Contains(t, names, "coaxial-molly")
	assert.Len(t, names, 6)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("clover-unknown")
	assert.False(t, ok)
}

func TestLookupReturnsCopies(t *testing.T) {
	a, ok := Lookup("coaxial-molly")
	require.True(t, ok)
	b, _ := Lookup("coaxial-molly")

	ca := a.(*detector.Coaxial)
	ca.DetectorRadius = 1
	ca.Dewar.Offset = 0
	cb := b.(*detector.Coaxial)
	assert.Equal(t, 50.0, cb.DetectorRadius)
	assert.Equal(t, 90.0, cb.Dewar.Offset)
}

// Every preset must be buildable as it stands.
func TestPresetsBuild(t *testing.T) {
	tbl, err := material.NewTable()
	require.NoError(t, err)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			fam, _ := Lookup(name)
			require.NoError(t, fam.Validate())

			w, err := scene.New(kerneltest.New(), tbl)
			require.NoError(t, err)
			res, err := detector.Build(w, nil, detector.Instance{
				Name:      name,
				Family:    fam,
				Placement: geom.Placement{Distance: 100},
				Filters:   []detector.Layer{{Material: "G4_Cu", Thickness: 1}},
				Wraps:     []detector.Layer{{Material: "G4_Pb", Thickness: 1}},
			})
			require.NoError(t, err)
			assert.NotEmpty(t, res.Sensitive)
		})
	}
}

func TestScintillatorSizes(t *testing.T) {
	tests := []struct {
		name           string
		radius, length float64
		material       string
	}{
		{"cebr3-2x2", 25.4, 50.8, "CeBr3"},
		{"labr3-3x3", 38.1, 76.2, "LaBr3_Ce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fam, ok := Lookup(tt.name)
			require.True(t, ok)
			s := fam.(*detector.Scintillator)
			// The preset names give diameter x length in inches.
			assert.InDelta(t, tt.radius, s.CrystalRadius, 1e-9)
			assert.InDelta(t, 2*s.CrystalRadius, s.CrystalLength, 1e-9)
			assert.InDelta(t, tt.length, s.CrystalLength, 1e-9)
			assert.Equal(t, tt.material, s.CrystalMaterial)
		})
	}
}
