package target

import (
	"math"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/scene"
)

// FramedDisc is an enriched disc sealed in polyethylene: a ring around the
// disc, a cover disc on each face and a square plate with a round hole
// that holds the assembly. The polyethylene thicknesses follow from its
// total mass, distributed as the sample maker did.
type FramedDisc struct {
	Label    string
	Material string // enriched material name
	Isotopes []material.Component

	Diameter       float64 // of the enriched disc
	TotalThickness float64 // disc plus both polyethylene covers
	Mass           float64 // enriched material, g

	PlasticMass     float64 // all polyethylene, g
	PlasticDensity  float64 // g/cm3
	PlateSide       float64
	PlasticMaterial string
}

var _ Target = (*FramedDisc)(nil)

// Name implements Target.
func (f *FramedDisc) Name() string { return f.Label }

// volume converts a mass in g at density g/cm3 to mm3.
func volume(mass, density float64) float64 { return mass / density * 1000 }

// framedDims holds the derived dimensions of a FramedDisc.
type framedDims struct {
	radius         float64 // enriched disc
	thickness      float64 // enriched disc
	shell          float64 // polyethylene ring and cover thickness
	holeRadius     float64
	coverThickness float64
	plateThickness float64
}

func (f *FramedDisc) dims() (framedDims, error) {
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"diameter", f.Diameter},
		{"total thickness", f.TotalThickness},
		{"mass", f.Mass},
		{"plastic mass", f.PlasticMass},
		{"plastic density", f.PlasticDensity},
		{"plate side", f.PlateSide},
	} {
		if err := errors.Positive(c.name, c.value); err != nil {
			return framedDims{}, err
		}
	}

	var d framedDims
	d.radius = f.Diameter / 2
	d.shell = volume(f.PlasticMass/2, f.PlasticDensity) / (f.PlateSide * f.PlateSide)
	d.thickness = f.TotalThickness - 2*d.shell
	if d.thickness <= 0 {
		return framedDims{}, errors.Dimension("total thickness", f.TotalThickness,
			"leaves no room for the disc between covers of %g", d.shell)
	}

	discMass := math.Pi * d.radius * d.radius * d.shell * f.PlasticDensity / 1000
	shellMass := 2 * math.Pi * d.radius * d.shell * d.thickness * f.PlasticDensity / 1000
	plateMass := f.PlasticMass - 2*discMass - shellMass
	d.holeRadius = d.radius + d.shell
	if 2*d.holeRadius >= f.PlateSide {
		return framedDims{}, errors.Dimension("plate side", f.PlateSide, "leaves no frame around a hole of radius %g", d.holeRadius)
	}
	if plateMass <= 0 {
		return framedDims{}, errors.Dimension("plastic mass", f.PlasticMass, "is used up before the square plate")
	}
	hole := math.Pi * d.holeRadius * d.holeRadius
	d.plateThickness = volume(plateMass, f.PlasticDensity) / (f.PlateSide*f.PlateSide - hole)
	d.coverThickness = volume(discMass, f.PlasticDensity) / hole
	return d, nil
}

// Construct implements Target.
func (f *FramedDisc) Construct(geo Geometry, mother *scene.Volume, origin geom.Vec) (*scene.Volume, error) {
	d, err := f.dims()
	if err != nil {
		return nil, errors.WithSubject(err, f.Label)
	}
	source, err := f.construct(geo, mother, origin, d)
	return source, errors.WithSubject(err, f.Label)
}

func (f *FramedDisc) construct(geo Geometry, mother *scene.Volume, origin geom.Vec, d framedDims) (*scene.Volume, error) {
	pe, err := geo.ResolveMaterial(f.PlasticMaterial)
	if err != nil {
		return nil, err
	}
	m, err := material.Enriched(f.Material, f.Isotopes, f.Mass, d.radius, d.thickness)
	if err != nil {
		return nil, err
	}
	if err := geo.DefineMaterial(m); err != nil {
		return nil, err
	}
	enriched, err := geo.ResolveMaterial(m.Name)
	if err != nil {
		return nil, err
	}

	source, err := cylinder(geo, mother, origin, f.Label, 0, d.radius, d.thickness, enriched, 0)
	if err != nil {
		return nil, err
	}
	if _, err := cylinder(geo, mother, origin, f.Label+"_pe_shell", d.radius, d.holeRadius, d.thickness, pe, 0); err != nil {
		return nil, err
	}
	cover := (d.thickness + d.coverThickness) / 2
	if _, err := cylinder(geo, mother, origin, f.Label+"_pe_top", 0, d.holeRadius, d.coverThickness, pe, cover); err != nil {
		return nil, err
	}
	if _, err := cylinder(geo, mother, origin, f.Label+"_pe_bottom", 0, d.holeRadius, d.coverThickness, pe, -cover); err != nil {
		return nil, err
	}

	square, err := geo.Box(f.Label+"_pe_square", f.PlateSide, f.PlateSide, d.plateThickness)
	if err != nil {
		return nil, err
	}
	hole, err := geo.Tube(f.Label+"_pe_hole", 0, d.holeRadius, 2*d.plateThickness)
	if err != nil {
		return nil, err
	}
	plate, err := geo.Difference(f.Label+"_pe_squarehole_solid", square, hole, geom.Identity())
	if err != nil {
		return nil, err
	}
	pv, err := geo.Volume(plate, pe, f.Label+"_pe_squarehole")
	if err != nil {
		return nil, err
	}
	if _, err := geo.Place(pv, geom.Translate(origin), mother, f.Label+"_pe_squarehole"); err != nil {
		return nil, err
	}
	return source, nil
}

// Ce140 returns the enriched 140Ce sample in its polyethylene frame.
func Ce140() *FramedDisc {
	return &FramedDisc{
		Label:    "target_140Ce",
		Material: "mat_140Ce",
		Isotopes: []material.Component{
			{Element: "140Ce", Fraction: 0.995},
			{Element: "142Ce", Fraction: 0.005},
		},
		Diameter:        20 * geom.Millimeter,
		TotalThickness:  4 * geom.Millimeter,
		Mass:            3.0,
		PlasticMass:     1.0,
		PlasticDensity:  0.94,
		PlateSide:       30 * geom.Millimeter,
		PlasticMaterial: "G4_POLYETHYLENE",
	}
}
