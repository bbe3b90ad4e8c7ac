package detector

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/kernel/kerneltest"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/scene"
)

func newWorld(t *testing.T) (*scene.World, *kerneltest.Kernel) {
	t.Helper()
	tbl, err := material.NewTable()
	require.NoError(t, err)
	k := kerneltest.New()
	w, err := scene.New(k, tbl)
	require.NoError(t, err)
	return w, k
}

func testCoaxial() *Coaxial {
	return &Coaxial{
		DetectorRadius:     30,
		DetectorLength:     80,
		DetectorFaceRadius: 10,
		HoleDepth:          60,
		HoleRadius:         5,
		CrystalMaterial:    "G4_Ge",

		MountCupThickness:     0.8,
		MountCupBaseThickness: 3,
		MountCupLength:        110,
		MountCupMaterial:      "G4_Al",

		EndCapToCrystalGapFront: 4,
		EndCapToCrystalGapSide:  3,
		EndCapThickness:         1,
		EndCapWindowThickness:   0.5,
		EndCapMaterial:          "G4_Al",
		EndCapWindowMaterial:    "G4_Al",
		VacuumMaterial:          "G4_Galactic",

		ColdFingerRadius:           4,
		ColdFingerPenetrationDepth: 40,
		ColdFingerMaterial:         "G4_Cu",
	}
}

func testClover() *Clover {
	return &Clover{
		CrystalRadius:   25,
		CrystalLength:   70,
		CrystalGap:      0.2,
		FlatInner:       22,
		FlatOuter:       23,
		CrystalMaterial: "G4_Ge",

		EndCapFrontSide:      101,
		EndCapFrontLength:    140,
		EndCapFrontThickness: 1.5,
		EndCapFrontRounding:  15,
		WindowThickness:      1.5,
		EndCapToCrystalGap:   10,
		VacuumLength:         100,

		EndCapBackSide:      120,
		EndCapBackLength:    160,
		EndCapBackThickness: 2,
		EndCapBackRounding:  30,

		EndCapMaterial: "G4_Al",
		VacuumMaterial: "G4_Galactic",
		AirMaterial:    "G4_AIR",
	}
}

func testDewar() *Dewar {
	return &Dewar{
		ConnectionRadius:   20,
		ConnectionLength:   100,
		ConnectionMaterial: "G4_Al",
		Length:             300,
		OuterRadius:        110,
		WallThickness:      2,
		Material:           "G4_Al",
	}
}

// positions returns the world-frame origin of every placement by name.
func positions(t *testing.T, w *scene.World) map[string]geom.Vec {
	t.Helper()
	out := make(map[string]geom.Vec)
	require.NoError(t, w.Walk(func(p *scene.Placement, global geom.Transform, _ int) error {
		out[p.Name()] = global.Apply(geom.Vec{})
		return nil
	}))
	return out
}

func TestCoaxialScenario(t *testing.T) {
	w, k := newWorld(t)
	inst := Instance{Name: "ge1", Family: testCoaxial(), Placement: geom.Placement{Distance: 100}}

	res, err := Build(w, nil, inst)
	require.NoError(t, err)
	require.Len(t, res.Sensitive, 1)
	assert.Equal(t, "ge1_crystal", res.Sensitive[0].Name())
	assert.Equal(t, "G4_Ge", res.Sensitive[0].Material().Name)

	// crystal and cold finger
	assert.Equal(t, 2, k.Calls("revolve"))
	crystal := res.Sensitive[0].Solid().Shape().(*kerneltest.Shape)
	assert.Less(t, crystal.Points, 500/3)
	assert.GreaterOrEqual(t, crystal.Points, 2)

	// end cap side, window, vacuum, three mount cup parts, crystal, cold finger
	assert.Len(t, res.Volumes, 8)
	assert.Len(t, res.Placements, 8)
	assert.Empty(t, w.Sensitive(), "Build must not register")
}

func TestCoaxialPlacement(t *testing.T) {
	w, _ := newWorld(t)
	c := testCoaxial()
	inst := Instance{Name: "ge1", Family: c, Placement: geom.Placement{Distance: 100}}
	_, err := Build(w, nil, inst)
	require.NoError(t, err)

	pos := positions(t, w)
	side := c.MountCupLength + c.EndCapToCrystalGapFront
	assert.InDelta(t, 100+0.25, pos["ge1_end_cap_window"].Z, 1e-9)
	assert.InDelta(t, 100+0.5+side/2, pos["ge1_end_cap_vacuum"].Z, 1e-9)
	// crystal face sits behind the front gap and the mount cup face
	assert.InDelta(t, 100+0.5+4+0.8, pos["ge1_crystal"].Z, 1e-9)
	// cold finger base ends at the back of the vacuum
	assert.InDelta(t, 100+0.5+side-c.ColdFingerLength(), pos["ge1_cold_finger"].Z, 1e-9)
}

func TestCoaxialWithoutColdFinger(t *testing.T) {
	w, k := newWorld(t)
	c := testCoaxial()
	c.ColdFingerRadius = 0
	c.ColdFingerMaterial = "not resolved when unused"

	res, err := Build(w, nil, Instance{Name: "ge1", Family: c})
	require.NoError(t, err)
	assert.Equal(t, 1, k.Calls("revolve"))
	assert.Len(t, res.Volumes, 7)
}

func TestCloverScenario(t *testing.T) {
	w, _ := newWorld(t)
	c := testClover()
	res, err := Build(w, nil, Instance{Name: "clover", Family: c, Placement: geom.Placement{Distance: 80}})
	require.NoError(t, err)
	require.Len(t, res.Sensitive, 4)

	d := c.CrystalRadius + c.CrystalGap/2
	want := [4][2]float64{{d, d}, {-d, d}, {-d, -d}, {d, -d}}
	pos := positions(t, w)
	for i, v := range res.Sensitive {
		require.Equal(t, "clover_crystal_"+string(rune('1'+i)), v.Name())
		p := pos[v.Name()]
		assert.InDelta(t, want[i][0], p.X, 1e-9, v.Name())
		assert.InDelta(t, want[i][1], p.Y, 1e-9, v.Name())

		sh := v.Solid().Shape().(*kerneltest.Shape)
		assert.Equal(t, "difference", sh.Op)
	}

	// All four share one clipped solid cut four times.
	assert.Same(t, res.Sensitive[0].Solid(), res.Sensitive[3].Solid())
	depth := 0
	for sh := res.Sensitive[0].Solid().Shape().(*kerneltest.Shape); sh.Op == "difference"; sh = sh.Operands[0] {
		depth++
	}
	assert.Equal(t, 4, depth)
}

func TestCloverCrystalsTurnOuterFlatsOutward(t *testing.T) {
	w, _ := newWorld(t)
	c := testClover()
	res, err := Build(w, nil, Instance{Name: "c", Family: c})
	require.NoError(t, err)

	// The outer flats of crystal 1 face +x and +y. After placement every
	// crystal's outer flats face away from the cryostat axis.
	outer := geom.Vec{X: c.FlatOuter, Y: c.FlatOuter}
	require.NoError(t, w.Walk(func(p *scene.Placement, global geom.Transform, _ int) error {
		for _, v := range res.Sensitive {
			if p.Volume() != v {
				continue
			}
			center := global.Apply(geom.Vec{})
			corner := global.Apply(outer)
			assert.Greater(t, math.Abs(corner.X), math.Abs(center.X), p.Name())
			assert.Greater(t, math.Abs(corner.Y), math.Abs(center.Y), p.Name())
		}
		return nil
	}))
}

func TestInvalidDimension(t *testing.T) {
	tests := []struct {
		name   string
		family Family
		field  string
	}{
		{"hole wider than crystal", func() Family { c := testCoaxial(); c.HoleRadius = 35; return c }(), "hole radius"},
		{"negative crystal radius", func() Family { c := testCoaxial(); c.DetectorRadius = -1; return c }(), "detector radius"},
		{"short mount cup", func() Family { c := testCoaxial(); c.MountCupLength = 50; return c }(), "mount cup"},
		{"cold finger too long", func() Family { c := testCoaxial(); c.ColdFingerPenetrationDepth = 70; return c }(), "penetration"},
		{"clover vacuum too short", func() Family { c := testClover(); c.VacuumLength = 60; return c }(), "vacuum length"},
		{"clover no front air", func() Family { c := testClover(); c.VacuumLength = 137; return c }(), "front air length"},
		{"clover crystals too wide", func() Family { c := testClover(); c.CrystalGap = 4; return c }(), "vacuum side length"},
		{"clover flat beyond radius", func() Family { c := testClover(); c.FlatOuter = 26; return c }(), "outer flat"},
		{"dewar walls", func() Family { c := testClover(); c.Dewar = testDewar(); c.Dewar.Length = 3; return c }(), "dewar side length"},
		{"scintillator window", &Scintillator{CrystalRadius: 1, CrystalLength: 1, HousingThickness: 1}, "window thickness"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, k := newWorld(t)
			_, err := Build(w, nil, Instance{Name: "det", Family: tt.family})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidDimension), err.Error())
			assert.Equal(t, "det", errors.SubjectOf(err))
			assert.Contains(t, err.Error(), tt.field)
			assert.Equal(t, 0, k.Calls("tube"), "no solid may be built")
			assert.Len(t, w.Volumes(), 1)
		})
	}
}

func TestUnknownMaterial(t *testing.T) {
	w, k := newWorld(t)
	c := testClover()
	c.EndCapMaterial = "G4_Unobtainium"

	_, err := Build(w, nil, Instance{Name: "clover", Family: c})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownMaterial))
	assert.Contains(t, err.Error(), "G4_Unobtainium")
	assert.Equal(t, "clover", errors.SubjectOf(err))
	assert.Empty(t, w.Sensitive())
	assert.Len(t, w.Volumes(), 1)
	assert.Equal(t, 0, k.Calls("extrude"))
}

func TestUnknownFilterMaterial(t *testing.T) {
	w, _ := newWorld(t)
	inst := Instance{Name: "ge", Family: testCoaxial(), Filters: []Layer{{Material: "lead?", Thickness: 1}}}
	_, err := Build(w, nil, inst)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownMaterial))
	assert.Len(t, w.Volumes(), 1)
}

func TestInstanceValidate(t *testing.T) {
	tests := []struct {
		name string
		inst Instance
		code errors.Code
	}{
		{"no name", Instance{Family: testClover()}, errors.ErrCodeInvalidConfig},
		{"no family", Instance{Name: "x"}, errors.ErrCodeInvalidConfig},
		{"negative distance", Instance{Name: "x", Family: testClover(), Placement: geom.Placement{Distance: -1}}, errors.ErrCodeInvalidDimension},
		{"nan angle", Instance{Name: "x", Family: testClover(), Placement: geom.Placement{Theta: math.NaN()}}, errors.ErrCodeInvalidDimension},
		{"zero filter", Instance{Name: "x", Family: testClover(), Filters: []Layer{{Material: "G4_Cu"}}}, errors.ErrCodeInvalidDimension},
		{"wrap without material", Instance{Name: "x", Family: testClover(), Wraps: []Layer{{Thickness: 1}}}, errors.ErrCodeUnknownMaterial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inst.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestFiltersStackTowardCenter(t *testing.T) {
	w, _ := newWorld(t)
	inst := Instance{
		Name:      "ge",
		Family:    testCoaxial(),
		Placement: geom.Placement{Distance: 100},
		Filters: []Layer{
			{Material: "G4_Cu", Thickness: 1},
			{Material: "G4_Pb", Thickness: 2, Radius: 20},
			{Material: "G4_Sn", Thickness: 0.5},
		},
	}
	_, err := Build(w, nil, inst)
	require.NoError(t, err)

	pos := positions(t, w)
	assert.InDelta(t, 99.5, pos["ge_filter_0"].Z, 1e-9)
	assert.InDelta(t, 98.0, pos["ge_filter_1"].Z, 1e-9)
	assert.InDelta(t, 96.75, pos["ge_filter_2"].Z, 1e-9)

	f1 := w.Lookup("ge_filter_1")
	require.NotNil(t, f1)
	assert.Equal(t, "G4_Pb", f1.Material().Name)
	assert.Equal(t, []float64{0, 20, 2}, f1.Solid().Shape().(*kerneltest.Shape).Params)

	c := testCoaxial()
	f0 := w.Lookup("ge_filter_0").Solid().Shape().(*kerneltest.Shape)
	assert.InDelta(t, c.endCapOuter(), f0.Params[1], 1e-12)
}

func TestFiltersFollowTiltedAxis(t *testing.T) {
	w, _ := newWorld(t)
	p := geom.Placement{Theta: math.Pi / 2, Phi: math.Pi / 2, Distance: 50, Origin: geom.Vec{Z: 10}}
	inst := Instance{Name: "ge", Family: testCoaxial(), Placement: p, Filters: []Layer{{Material: "G4_Cu", Thickness: 2}}}
	_, err := Build(w, nil, inst)
	require.NoError(t, err)

	got := positions(t, w)["ge_filter_0"]
	assert.InDelta(t, 0, got.X, 1e-9)
	assert.InDelta(t, 49, got.Y, 1e-9)
	assert.InDelta(t, 10, got.Z, 1e-9)
}

func TestWrapsStackOutward(t *testing.T) {
	w, _ := newWorld(t)
	c := testCoaxial()
	inst := Instance{
		Name:   "ge",
		Family: c,
		Wraps:  []Layer{{Material: "G4_Pb", Thickness: 1}, {Material: "G4_Cu", Thickness: 0.5}},
	}
	_, err := Build(w, nil, inst)
	require.NoError(t, err)

	length := c.EndCapWindowThickness + c.endCapSideLength()
	r := c.endCapOuter()
	w0 := w.Lookup("ge_wrap_0").Solid().Shape().(*kerneltest.Shape)
	w1 := w.Lookup("ge_wrap_1").Solid().Shape().(*kerneltest.Shape)
	assert.InDeltaSlice(t, []float64{r, r + 1, length}, w0.Params, 1e-12)
	assert.InDeltaSlice(t, []float64{r + 1, r + 1.5, length}, w1.Params, 1e-12)
	assert.InDelta(t, length/2, positions(t, w)["ge_wrap_0"].Z, 1e-9)
}

func TestCloverLayersAreSquare(t *testing.T) {
	w, k := newWorld(t)
	inst := Instance{
		Name:    "clover",
		Family:  testClover(),
		Filters: []Layer{{Material: "G4_Cu", Thickness: 1}},
		Wraps:   []Layer{{Material: "G4_Pb", Thickness: 2}},
	}
	_, err := Build(w, nil, inst)
	require.NoError(t, err)

	// end caps, vacuum, two airs, filter, wrap outer and cut
	assert.Equal(t, 8, k.Calls("extrude"))
	wrap := w.Lookup("clover_wrap_0").Solid().Shape().(*kerneltest.Shape)
	assert.Equal(t, "difference", wrap.Op)
	assert.InDelta(t, (101+4)/2.0, wrap.Max[0], 1e-9)
}

func TestDewarOffsetFollowsLateralAxis(t *testing.T) {
	w, _ := newWorld(t)
	c := testCoaxial()
	c.Dewar = testDewar()
	c.Dewar.Offset = 30
	inst := Instance{Name: "ge", Family: c, Placement: geom.Placement{Theta: math.Pi / 2, Distance: 100}}
	res, err := Build(w, nil, inst)
	require.NoError(t, err)
	assert.Len(t, res.Volumes, 12)

	pos := positions(t, w)
	back := 100 + c.EndCapWindowThickness + c.endCapSideLength()
	// connection stays on the symmetry axis (+x here)
	assert.InDelta(t, back+50, pos["ge_connection"].X, 1e-9)
	assert.InDelta(t, 0, pos["ge_connection"].Z, 1e-9)
	// e_theta at theta = 90° points along -z
	assert.InDelta(t, back+100+1, pos["ge_dewar_face"].X, 1e-9)
	assert.InDelta(t, -30, pos["ge_dewar_face"].Z, 1e-9)
	assert.InDelta(t, back+100+300-1, pos["ge_dewar_base"].X, 1e-9)
}

func TestCloverDewar(t *testing.T) {
	w, _ := newWorld(t)
	c := testClover()
	c.Dewar = testDewar()
	_, err := Build(w, nil, Instance{Name: "c", Family: c, Placement: geom.Placement{Distance: 10}})
	require.NoError(t, err)
	pos := positions(t, w)
	assert.InDelta(t, 10+140+160+50, pos["c_connection"].Z, 1e-9)
	assert.InDelta(t, 10+140+160+100+150, pos["c_dewar_side"].Z, 1e-9)
}

func TestScintillator(t *testing.T) {
	w, _ := newWorld(t)
	s := &Scintillator{
		CrystalRadius:      25.4,
		CrystalLength:      50.8,
		CrystalMaterial:    "CeBr3",
		ReflectorThickness: 0.5,
		ReflectorMaterial:  "G4_TEFLON",
		HousingThickness:   0.5,
		WindowThickness:    0.5,
		HousingMaterial:    "G4_Al",
	}
	res, err := Build(w, nil, Instance{Name: "cebr", Family: s, Placement: geom.Placement{Distance: 70}})
	require.NoError(t, err)
	require.Len(t, res.Sensitive, 1)
	assert.Equal(t, "CeBr3", res.Sensitive[0].Material().Name)
	// crystal center: window, front reflector, half crystal
	assert.InDelta(t, 70+0.5+0.5+25.4, positions(t, w)["cebr_crystal"].Z, 1e-9)
}

type failingGeometry struct {
	*scene.World
	fail string
}

func (f failingGeometry) Tube(name string, rMin, rMax, length float64) (*scene.Solid, error) {
	if strings.HasPrefix(name, f.fail) {
		return nil, errors.New(errors.ErrCodeInternal, "kernel refused %s", name)
	}
	return f.World.Tube(name, rMin, rMax, length)
}

func TestStageErrorsNameStage(t *testing.T) {
	w, _ := newWorld(t)
	geo := failingGeometry{World: w, fail: "ge_mount_cup_face"}
	_, err := Build(geo, nil, Instance{Name: "ge", Family: testCoaxial()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInternal))
	assert.Equal(t, "ge: crystal", errors.SubjectOf(err))
}

func TestBuildLogsStages(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	w, _ := newWorld(t)
	_, err := Build(w, nil, Instance{Name: "ge", Family: testCoaxial()}, WithLogger(logger), WithSteps(200))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "detector=ge")
	assert.Contains(t, out, "dense=200")
	assert.Contains(t, out, "stage=done")
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "end cap", StageEndCap.String())
	assert.Equal(t, "cold finger", StageColdFinger.String())
	assert.Equal(t, "Stage(42)", Stage(42).String())
}
