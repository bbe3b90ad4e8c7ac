// Package target builds the non-detector volumes at the center of the
// array: enriched isotope samples in their holders.
//
// Each target returns the volume that holds the radioactive or irradiated
// material as its source volume. Enriched materials are defined in the
// world's material table the first time a target is constructed.
package target

import (
	"sort"

	"github.com/chazu/detgeom/pkg/detector"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/scene"
)

// Geometry is the geometry engine as seen by targets.
type Geometry interface {
	detector.Geometry
	DefineMaterial(m material.Material) error
}

var _ Geometry = (*scene.World)(nil)

// Target is a source or target assembly.
type Target interface {
	Name() string
	// Construct builds the target centered on origin inside mother (nil
	// for the world volume) and returns its source volume.
	Construct(geo Geometry, mother *scene.Volume, origin geom.Vec) (*scene.Volume, error)
}

var presets = map[string]func() Target{
	"mo92":  func() Target { return Mo92() },
	"zr90":  func() Target { return Zr90() },
	"ce140": func() Target { return Ce140() },
}

// Lookup returns a fresh copy of the named target preset.
func Lookup(name string) (Target, bool) {
	fn, ok := presets[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

// Names returns the preset names, sorted.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cylinder creates, fills and places a tube centered at z above origin.
func cylinder(geo Geometry, mother *scene.Volume, origin geom.Vec, name string,
	rMin, rMax, length float64, mat *material.Material, z float64) (*scene.Volume, error) {
	s, err := geo.Tube(name+"_solid", rMin, rMax, length)
	if err != nil {
		return nil, err
	}
	v, err := geo.Volume(s, mat, name)
	if err != nil {
		return nil, err
	}
	if _, err := geo.Place(v, geom.Translate(geom.Vec{X: origin.X, Y: origin.Y, Z: origin.Z + z}), mother, name); err != nil {
		return nil, err
	}
	return v, nil
}
