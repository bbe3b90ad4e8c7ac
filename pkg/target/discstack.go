package target

import (
	"fmt"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/scene"
)

// Disc is one enriched sample disc.
type Disc struct {
	Material string  // name the enriched material is defined under
	Mass     float64 // g
}

// DiscStack is a stack of enriched discs of equal size in a polyethylene
// container closed by a lid at each end. The first disc is centered on the
// origin and is the source volume; the others follow along +z.
type DiscStack struct {
	Label    string
	Isotopes []material.Component
	Discs    []Disc

	DiscRadius    float64
	DiscThickness float64

	ContainerLength      float64
	ContainerInnerRadius float64
	ContainerOuterRadius float64
	LidThickness         float64
	LidRadius            float64
	ContainerMaterial    string
}

var _ Target = (*DiscStack)(nil)

// Name implements Target.
func (d *DiscStack) Name() string { return d.Label }

// Validate checks the stack dimensions.
func (d *DiscStack) Validate() error {
	if len(d.Discs) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "disc stack has no discs")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"disc radius", d.DiscRadius},
		{"disc thickness", d.DiscThickness},
		{"container length", d.ContainerLength},
		{"container outer radius", d.ContainerOuterRadius},
		{"lid thickness", d.LidThickness},
		{"lid radius", d.LidRadius},
	} {
		if err := errors.Positive(f.name, f.value); err != nil {
			return err
		}
	}
	stack := float64(len(d.Discs))*d.DiscThickness + 2*d.LidThickness
	switch {
	case d.ContainerInnerRadius < 0 || d.ContainerInnerRadius >= d.ContainerOuterRadius:
		return errors.Dimension("container inner radius", d.ContainerInnerRadius,
			"must lie in [0, %g)", d.ContainerOuterRadius)
	case d.DiscRadius > d.ContainerInnerRadius:
		return errors.Dimension("disc radius", d.DiscRadius, "does not fit the container (inner radius %g)", d.ContainerInnerRadius)
	case d.ContainerLength < stack:
		return errors.Dimension("container length", d.ContainerLength, "shorter than discs and lids (%g)", stack)
	}
	return nil
}

// Construct implements Target.
func (d *DiscStack) Construct(geo Geometry, mother *scene.Volume, origin geom.Vec) (*scene.Volume, error) {
	if err := d.Validate(); err != nil {
		return nil, errors.WithSubject(err, d.Label)
	}
	source, err := d.construct(geo, mother, origin)
	return source, errors.WithSubject(err, d.Label)
}

func (d *DiscStack) construct(geo Geometry, mother *scene.Volume, origin geom.Vec) (*scene.Volume, error) {
	pe, err := geo.ResolveMaterial(d.ContainerMaterial)
	if err != nil {
		return nil, err
	}
	mats := make([]*material.Material, len(d.Discs))
	for i, disc := range d.Discs {
		m, err := material.Enriched(disc.Material, d.Isotopes, disc.Mass, d.DiscRadius, d.DiscThickness)
		if err != nil {
			return nil, err
		}
		if err := geo.DefineMaterial(m); err != nil {
			return nil, err
		}
		if mats[i], err = geo.ResolveMaterial(m.Name); err != nil {
			return nil, err
		}
	}

	t, lid := d.DiscThickness, d.LidThickness
	var source *scene.Volume
	for i := range d.Discs {
		name := fmt.Sprintf("%s_disc_%d", d.Label, i+1)
		v, err := cylinder(geo, mother, origin, name, 0, d.DiscRadius, t, mats[i], float64(i)*t)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			source = v
		}
	}

	top := float64(len(d.Discs)-1)*t + t/2 + lid/2
	if _, err := cylinder(geo, mother, origin, d.Label+"_lid_bottom", 0, d.LidRadius, lid, pe, -(t/2 + lid/2)); err != nil {
		return nil, err
	}
	if _, err := cylinder(geo, mother, origin, d.Label+"_lid_top", 0, d.LidRadius, lid, pe, top); err != nil {
		return nil, err
	}
	if _, err := cylinder(geo, mother, origin, d.Label+"_container", d.ContainerInnerRadius, d.ContainerOuterRadius,
		d.ContainerLength, pe, -(t/2+lid)+d.ContainerLength/2); err != nil {
		return nil, err
	}
	return source, nil
}

// container returns the polyethylene container the GSI samples ship in.
func container(label string) *DiscStack {
	return &DiscStack{
		Label:                label,
		DiscRadius:           9 * geom.Millimeter,
		DiscThickness:        3 * geom.Millimeter,
		ContainerLength:      20 * geom.Millimeter,
		ContainerInnerRadius: 9.75 * geom.Millimeter,
		ContainerOuterRadius: 11 * geom.Millimeter,
		LidThickness:         2 * geom.Millimeter,
		LidRadius:            10 * geom.Millimeter,
		ContainerMaterial:    "G4_POLYETHYLENE",
	}
}

// Mo92 returns the two enriched 92Mo discs.
func Mo92() *DiscStack {
	d := container("target_92Mo")
	d.Isotopes = []material.Component{
		{Element: "92Mo", Fraction: 0.9520},
		{Element: "94Mo", Fraction: 0.0090},
		{Element: "95Mo", Fraction: 0.0099},
		{Element: "96Mo", Fraction: 0.0090},
		{Element: "97Mo", Fraction: 0.0047},
		{Element: "98Mo", Fraction: 0.0120},
		{Element: "100Mo", Fraction: 0.0039},
	}
	d.Discs = []Disc{
		{Material: "mat_92Mo1", Mass: 2.274505},
		{Material: "mat_92Mo2", Mass: 2.26359},
	}
	return d
}

// Zr90 returns the two enriched 90Zr discs.
func Zr90() *DiscStack {
	d := container("target_90Zr")
	d.Isotopes = []material.Component{
		{Element: "90Zr", Fraction: 0.9887},
		{Element: "91Zr", Fraction: 0.0069},
		{Element: "92Zr", Fraction: 0.0030},
		{Element: "94Zr", Fraction: 0.0012},
		{Element: "96Zr", Fraction: 0.0002},
	}
	d.Discs = []Disc{
		{Material: "mat_90Zr1", Mass: 2.02958},
		{Material: "mat_90Zr2", Mass: 2.02958},
	}
	return d
}
