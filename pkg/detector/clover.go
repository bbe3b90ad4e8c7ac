package detector

import (
	"fmt"
	"math"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/profile"
	"github.com/chazu/detgeom/pkg/scene"
)

// Clover is a four-crystal germanium detector in a square cryostat with
// rounded edges.
//
// The cryostat is split into a front end cap, holding the crystals in
// vacuum with air behind them, and a wider back end cap filled with air.
// Each crystal is a cylinder clipped by four planes parallel to its axis:
// two inner flats facing the neighbouring crystals and two outer flats
// facing the end cap wall.
type Clover struct {
	CrystalRadius   float64
	CrystalLength   float64
	CrystalGap      float64 // between neighbouring crystal centers, added to 2·CrystalRadius
	FlatInner       float64 // distance of the inner flats from the crystal axis
	FlatOuter       float64 // distance of the outer flats from the crystal axis
	CrystalMaterial string

	EndCapFrontSide      float64
	EndCapFrontLength    float64
	EndCapFrontThickness float64
	EndCapFrontRounding  float64
	WindowThickness      float64
	EndCapToCrystalGap   float64 // between window and crystal face
	VacuumLength         float64

	EndCapBackSide      float64
	EndCapBackLength    float64
	EndCapBackThickness float64
	EndCapBackRounding  float64

	EndCapMaterial string
	VacuumMaterial string
	AirMaterial    string

	Dewar *Dewar // nil for none
}

var _ Family = (*Clover)(nil)

// Kind implements Family.
func (c *Clover) Kind() string { return "clover" }

// CrystalCenter returns the offset of the first crystal from the cryostat
// axis. The others sit at the same offset in the other three quadrants.
func (c *Clover) CrystalCenter() float64 {
	return c.CrystalRadius + c.CrystalGap/2
}

func (c *Clover) vacuumSide() float64 { return c.EndCapFrontSide - 2*c.EndCapFrontThickness }

func (c *Clover) airFrontLength() float64 {
	return c.EndCapFrontLength - c.WindowThickness - c.EndCapFrontThickness - c.VacuumLength
}

// Validate implements Family.
func (c *Clover) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"crystal radius", c.CrystalRadius},
		{"crystal length", c.CrystalLength},
		{"inner flat distance", c.FlatInner},
		{"outer flat distance", c.FlatOuter},
		{"front end cap side length", c.EndCapFrontSide},
		{"front end cap length", c.EndCapFrontLength},
		{"front end cap thickness", c.EndCapFrontThickness},
		{"window thickness", c.WindowThickness},
		{"vacuum length", c.VacuumLength},
		{"back end cap side length", c.EndCapBackSide},
		{"back end cap length", c.EndCapBackLength},
		{"back end cap thickness", c.EndCapBackThickness},
		{"vacuum side length", c.vacuumSide()},
		{"front air length", c.airFrontLength()},
		{"back air side length", c.EndCapBackSide - 2*c.EndCapBackThickness},
		{"back air length", c.EndCapBackLength - 2*c.EndCapBackThickness},
	} {
		if err := errors.Positive(f.name, f.value); err != nil {
			return err
		}
	}

	switch {
	case c.CrystalGap < 0:
		return errors.Dimension("crystal gap", c.CrystalGap, "must not be negative")
	case c.EndCapToCrystalGap < 0:
		return errors.Dimension("end cap to crystal gap", c.EndCapToCrystalGap, "must not be negative")
	case c.FlatInner > c.CrystalRadius:
		return errors.Dimension("inner flat distance", c.FlatInner, "exceeds crystal radius %g", c.CrystalRadius)
	case c.FlatOuter > c.CrystalRadius:
		return errors.Dimension("outer flat distance", c.FlatOuter, "exceeds crystal radius %g", c.CrystalRadius)
	case c.EndCapToCrystalGap+c.CrystalLength > c.VacuumLength:
		return errors.Dimension("vacuum length", c.VacuumLength,
			"too short for crystal length %g behind a gap of %g", c.CrystalLength, c.EndCapToCrystalGap)
	case c.CrystalCenter()+c.FlatOuter > c.vacuumSide()/2:
		return errors.Dimension("vacuum side length", c.vacuumSide(),
			"crystals reach %g from the axis", c.CrystalCenter()+c.FlatOuter)
	}
	for _, r := range []struct {
		name     string
		rounding float64
		side     float64
	}{
		{"front end cap rounding", c.EndCapFrontRounding, c.vacuumSide()},
		{"back end cap rounding", c.EndCapBackRounding, c.EndCapBackSide - 2*c.EndCapBackThickness},
	} {
		if r.rounding < 0 || r.rounding > r.side {
			return errors.Dimension(r.name, r.rounding, "must lie in [0, %g]", r.side)
		}
	}
	if c.Dewar != nil {
		return c.Dewar.Validate()
	}
	return nil
}

func (c *Clover) materials() []string {
	names := []string{c.CrystalMaterial, c.EndCapMaterial, c.VacuumMaterial, c.AirMaterial}
	if c.Dewar != nil {
		names = append(names, c.Dewar.materials()...)
	}
	return names
}

func (c *Clover) stages() map[Stage]stageFunc {
	s := map[Stage]stageFunc{
		StageEndCap:  c.buildEndCap,
		StageFill:    c.buildFill,
		StageCrystal: c.buildCrystals,
	}
	if c.Dewar != nil {
		s[StageDewar] = func(b *builder) error { return buildDewar(b, c.Dewar) }
	}
	return s
}

// roundedBox extrudes a rounded square of the given side over length.
func (c *Clover) roundedBox(b *builder, part string, side, length, rounding float64) (*scene.Solid, error) {
	outline, err := profile.RoundedBox(side, rounding, profile.DefaultCornerPoints)
	if err != nil {
		return nil, err
	}
	return b.geo.ExtrudedPolygon(b.name(part+"_solid"), outline, length/2, 1, 1)
}

// buildEndCap places the front and back end caps as solid blocks of end
// cap material; the Fill stage hollows them out by placing daughters.
func (c *Clover) buildEndCap(b *builder) error {
	front, err := c.roundedBox(b, "end_cap_front", c.EndCapFrontSide, c.EndCapFrontLength, c.EndCapFrontRounding)
	if err != nil {
		return err
	}
	fv, err := b.volume(front, c.EndCapMaterial, "end_cap_front")
	if err != nil {
		return err
	}
	if err := b.place(fv, b.axial(c.EndCapFrontLength/2), nil, "end_cap_front"); err != nil {
		return err
	}

	back, err := c.roundedBox(b, "end_cap_back", c.EndCapBackSide, c.EndCapBackLength, c.EndCapBackRounding)
	if err != nil {
		return err
	}
	bv, err := b.volume(back, c.EndCapMaterial, "end_cap_back")
	if err != nil {
		return err
	}
	if err := b.place(bv, b.axial(c.EndCapFrontLength+c.EndCapBackLength/2), nil, "end_cap_back"); err != nil {
		return err
	}

	b.endCaps = []*scene.Volume{fv, bv}
	b.endCapLength = c.EndCapFrontLength
	b.endCapOuter = c.EndCapFrontSide
	b.endCapSquare = true
	b.endCapRounding = c.EndCapFrontRounding
	b.backOfEndCap = c.EndCapFrontLength + c.EndCapBackLength
	return nil
}

// buildFill places the vacuum behind the window and the air behind the
// vacuum inside the front end cap, and the air inside the back end cap.
func (c *Clover) buildFill(b *builder) error {
	front, back := b.endCaps[0], b.endCaps[1]
	side := c.vacuumSide()

	vac, err := c.roundedBox(b, "vacuum", side, c.VacuumLength, c.EndCapFrontRounding)
	if err != nil {
		return err
	}
	vv, err := b.volume(vac, c.VacuumMaterial, "vacuum")
	if err != nil {
		return err
	}
	z := -c.EndCapFrontLength/2 + c.WindowThickness
	if err := b.place(vv, along(z+c.VacuumLength/2), front, "vacuum"); err != nil {
		return err
	}

	airLen := c.airFrontLength()
	air, err := c.roundedBox(b, "air_front", side, airLen, c.EndCapFrontRounding)
	if err != nil {
		return err
	}
	av, err := b.volume(air, c.AirMaterial, "air_front")
	if err != nil {
		return err
	}
	if err := b.place(av, along(z+c.VacuumLength+airLen/2), front, "air_front"); err != nil {
		return err
	}

	backAir, err := c.roundedBox(b, "air_back", c.EndCapBackSide-2*c.EndCapBackThickness,
		c.EndCapBackLength-2*c.EndCapBackThickness, c.EndCapBackRounding)
	if err != nil {
		return err
	}
	bav, err := b.volume(backAir, c.AirMaterial, "air_back")
	if err != nil {
		return err
	}
	if err := b.place(bav, geom.Identity(), back, "air_back"); err != nil {
		return err
	}

	b.fill = vv
	b.fillLength = c.VacuumLength
	return nil
}

// buildCrystals clips one crystal and places four copies of it, one per
// quadrant, each turned so its outer flats face the end cap wall.
func (c *Clover) buildCrystals(b *builder) error {
	r := c.CrystalRadius
	raw, err := b.geo.Tube(b.name("crystal_original"), 0, r, c.CrystalLength)
	if err != nil {
		return err
	}
	cut, err := b.geo.Box(b.name("crystal_cut"), 2*r, 2*r, 2*c.CrystalLength)
	if err != nil {
		return err
	}

	clipped := raw
	for i, at := range []geom.Vec{
		{X: r + c.FlatOuter},
		{X: -r - c.FlatInner},
		{Y: -r - c.FlatInner},
		{Y: r + c.FlatOuter},
	} {
		clipped, err = b.geo.Difference(b.name(fmt.Sprintf("crystal_step%d", i+1)), clipped, cut, geom.Translate(at))
		if err != nil {
			return err
		}
	}

	d := c.CrystalCenter()
	z := -c.VacuumLength/2 + c.EndCapToCrystalGap + c.CrystalLength/2
	quadrants := [4]geom.Vec{{X: d, Y: d}, {X: -d, Y: d}, {X: -d, Y: -d}, {X: d, Y: -d}}
	for k, q := range quadrants {
		part := fmt.Sprintf("crystal_%d", k+1)
		v, err := b.volume(clipped, c.CrystalMaterial, part)
		if err != nil {
			return err
		}
		t := geom.RotateZ(float64(k) * math.Pi / 2).Moved(geom.Vec{X: q.X, Y: q.Y, Z: z})
		if err := b.place(v, t, b.fill, part); err != nil {
			return err
		}
		b.res.Sensitive = append(b.res.Sensitive, v)
	}
	return nil
}
