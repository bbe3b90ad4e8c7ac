package detector

import (
	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/profile"
)

// Coaxial is a single closed-end coaxial germanium crystal held in a mount
// cup inside a cylindrical end cap.
//
// The crystal and the cold finger reaching into its bore are polycones:
// dense radius tables from package profile reduced by package polycone.
type Coaxial struct {
	DetectorRadius     float64
	DetectorLength     float64
	DetectorFaceRadius float64 // rounding of the crystal's front edge
	HoleDepth          float64
	HoleRadius         float64
	CrystalMaterial    string

	MountCupThickness     float64 // side wall and face
	MountCupBaseThickness float64
	MountCupLength        float64 // outer length including face and base
	MountCupMaterial      string

	EndCapToCrystalGapFront float64
	EndCapToCrystalGapSide  float64
	EndCapThickness         float64
	EndCapWindowThickness   float64
	EndCapMaterial          string
	EndCapWindowMaterial    string
	VacuumMaterial          string

	ColdFingerRadius           float64 // 0 for none
	ColdFingerPenetrationDepth float64 // how far the tip reaches into the crystal
	ColdFingerMaterial         string

	Dewar *Dewar // nil for none
}

var _ Family = (*Coaxial)(nil)

// Kind implements Family.
func (c *Coaxial) Kind() string { return "coaxial" }

func (c *Coaxial) endCapInner() float64 {
	return c.DetectorRadius + c.MountCupThickness + c.EndCapToCrystalGapSide
}

func (c *Coaxial) endCapOuter() float64 { return c.endCapInner() + c.EndCapThickness }

func (c *Coaxial) endCapSideLength() float64 {
	return c.MountCupLength + c.EndCapToCrystalGapFront
}

func (c *Coaxial) mountCupSideLength() float64 {
	return c.MountCupLength - c.MountCupThickness - c.MountCupBaseThickness
}

// ColdFingerLength returns the length of the cold finger from the back of
// the end cap to its tip.
func (c *Coaxial) ColdFingerLength() float64 {
	return c.ColdFingerPenetrationDepth + c.mountCupSideLength() + c.MountCupBaseThickness - c.DetectorLength
}

// Crystal returns the crystal's dimensions as a profile.CrystalSpec.
func (c *Coaxial) Crystal() profile.CrystalSpec {
	return profile.CrystalSpec{
		Length:     c.DetectorLength,
		Radius:     c.DetectorRadius,
		FaceRadius: c.DetectorFaceRadius,
		HoleDepth:  c.HoleDepth,
		HoleRadius: c.HoleRadius,
	}
}

// Validate implements Family.
func (c *Coaxial) Validate() error {
	if err := c.Crystal().Validate(); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"mount cup thickness", c.MountCupThickness},
		{"mount cup base thickness", c.MountCupBaseThickness},
		{"mount cup length", c.MountCupLength},
		{"end cap thickness", c.EndCapThickness},
		{"end cap window thickness", c.EndCapWindowThickness},
		{"mount cup side length", c.mountCupSideLength()},
	} {
		if err := errors.Positive(f.name, f.value); err != nil {
			return err
		}
	}
	switch {
	case c.EndCapToCrystalGapFront < 0:
		return errors.Dimension("end cap to crystal gap front", c.EndCapToCrystalGapFront, "must not be negative")
	case c.EndCapToCrystalGapSide < 0:
		return errors.Dimension("end cap to crystal gap side", c.EndCapToCrystalGapSide, "must not be negative")
	case c.DetectorLength > c.mountCupSideLength():
		return errors.Dimension("mount cup length", c.MountCupLength,
			"leaves %g inside the cup for a crystal of length %g", c.mountCupSideLength(), c.DetectorLength)
	case c.HoleRadius >= c.DetectorRadius+c.MountCupThickness:
		return errors.Dimension("hole radius", c.HoleRadius, "cuts through the mount cup base")
	case c.ColdFingerRadius < 0:
		return errors.Dimension("cold finger radius", c.ColdFingerRadius, "must not be negative")
	}
	if c.ColdFingerRadius > 0 {
		if err := errors.Positive("cold finger length", c.ColdFingerLength()); err != nil {
			return err
		}
		if c.ColdFingerPenetrationDepth < 0 {
			return errors.Dimension("cold finger penetration depth", c.ColdFingerPenetrationDepth, "must not be negative")
		}
		if c.ColdFingerPenetrationDepth > 0 {
			if c.ColdFingerPenetrationDepth > c.HoleDepth {
				return errors.Dimension("cold finger penetration depth", c.ColdFingerPenetrationDepth,
					"exceeds hole depth %g", c.HoleDepth)
			}
			if c.ColdFingerRadius >= c.HoleRadius {
				return errors.Dimension("cold finger radius", c.ColdFingerRadius,
					"does not fit into a hole of radius %g", c.HoleRadius)
			}
		}
	}
	if c.Dewar != nil {
		return c.Dewar.Validate()
	}
	return nil
}

func (c *Coaxial) materials() []string {
	names := []string{c.CrystalMaterial, c.MountCupMaterial, c.EndCapMaterial, c.EndCapWindowMaterial, c.VacuumMaterial}
	if c.ColdFingerRadius > 0 {
		names = append(names, c.ColdFingerMaterial)
	}
	if c.Dewar != nil {
		names = append(names, c.Dewar.materials()...)
	}
	return names
}

func (c *Coaxial) stages() map[Stage]stageFunc {
	s := map[Stage]stageFunc{
		StageEndCap:  c.buildEndCap,
		StageFill:    c.buildFill,
		StageCrystal: c.buildCrystal,
	}
	if c.ColdFingerRadius > 0 {
		s[StageColdFinger] = c.buildColdFinger
	}
	if c.Dewar != nil {
		s[StageDewar] = func(b *builder) error { return buildDewar(b, c.Dewar) }
	}
	return s
}

// CrystalProfile returns the dense crystal table with the given number of
// samples.
func (c *Coaxial) CrystalProfile(steps int) ([]geom.ProfilePoint, error) {
	return profile.Crystal(c.Crystal(), steps)
}

// ColdFingerProfile returns the dense cold finger table.
func (c *Coaxial) ColdFingerProfile(steps int) ([]geom.ProfilePoint, error) {
	return profile.ColdFinger(c.ColdFingerLength(), c.ColdFingerRadius, steps)
}

func (c *Coaxial) buildEndCap(b *builder) error {
	side := c.endCapSideLength()
	win := c.EndCapWindowThickness
	if _, err := b.tube("end_cap_side", c.EndCapMaterial, c.endCapInner(), c.endCapOuter(), side,
		b.axial(win+side/2), nil); err != nil {
		return err
	}
	if _, err := b.tube("end_cap_window", c.EndCapWindowMaterial, 0, c.endCapOuter(), win,
		b.axial(win/2), nil); err != nil {
		return err
	}
	b.endCapLength = win + side
	b.endCapOuter = c.endCapOuter()
	b.backOfEndCap = win + side
	return nil
}

func (c *Coaxial) buildFill(b *builder) error {
	side := c.endCapSideLength()
	v, err := b.tube("end_cap_vacuum", c.VacuumMaterial, 0, c.endCapInner(), side,
		b.axial(c.EndCapWindowThickness+side/2), nil)
	if err != nil {
		return err
	}
	b.fill = v
	b.fillLength = side
	return nil
}

// buildCrystal places the mount cup and the crystal inside the vacuum.
func (c *Coaxial) buildCrystal(b *builder) error {
	front := -b.fillLength/2 + c.EndCapToCrystalGapFront
	inner := c.DetectorRadius
	outer := c.DetectorRadius + c.MountCupThickness
	sideLen := c.mountCupSideLength()

	if _, err := b.tube("mount_cup_side", c.MountCupMaterial, inner, outer, sideLen,
		along(front+c.MountCupThickness+sideLen/2), b.fill); err != nil {
		return err
	}
	if _, err := b.tube("mount_cup_face", c.MountCupMaterial, 0, outer, c.MountCupThickness,
		along(front+c.MountCupThickness/2), b.fill); err != nil {
		return err
	}
	if _, err := b.tube("mount_cup_base", c.MountCupMaterial, c.HoleRadius, outer, c.MountCupBaseThickness,
		along(front+c.MountCupThickness+sideLen+c.MountCupBaseThickness/2), b.fill); err != nil {
		return err
	}

	dense, err := c.CrystalProfile(b.opts.steps)
	if err != nil {
		return err
	}
	s, err := b.polycone("crystal", dense)
	if err != nil {
		return err
	}
	v, err := b.volume(s, c.CrystalMaterial, "crystal")
	if err != nil {
		return err
	}
	if err := b.place(v, along(front+c.MountCupThickness), b.fill, "crystal"); err != nil {
		return err
	}
	b.res.Sensitive = append(b.res.Sensitive, v)
	return nil
}

// buildColdFinger places the domed cold finger so that its base sits at
// the back of the vacuum and its tip reaches into the bore.
func (c *Coaxial) buildColdFinger(b *builder) error {
	length := c.ColdFingerLength()
	dense, err := c.ColdFingerProfile(b.opts.steps)
	if err != nil {
		return err
	}
	s, err := b.polycone("cold_finger", dense)
	if err != nil {
		return err
	}
	v, err := b.volume(s, c.ColdFingerMaterial, "cold_finger")
	if err != nil {
		return err
	}
	return b.place(v, along(b.fillLength/2-length), b.fill, "cold_finger")
}
