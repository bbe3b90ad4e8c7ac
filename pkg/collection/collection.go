// Package collection holds the named detector property sets used by the
// catalogue DSL. Lookup hands out a fresh copy on every call, so callers
// may adjust a preset without affecting anyone else.
package collection

import (
	"sort"

	"github.com/chazu/detgeom/pkg/detector"
	"github.com/chazu/detgeom/pkg/geom"
)

var presets = map[string]func() detector.Family{
	"clover-yale":         cloverYale,
	"coaxial-tunl-60":     coaxialTUNL60,
	"coaxial-zero-degree": coaxialZeroDegree,
	"coaxial-molly":       coaxialMolly,
	"cebr3-2x2":           func() detector.Family { return scintillator(2, 2, "CeBr3") },
	"labr3-3x3":           func() detector.Family { return scintillator(3, 3, "LaBr3_Ce") },
}

// Lookup returns a copy of the named property set.
func Lookup(name string) (detector.Family, bool) {
	fn, ok := presets[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

// Names returns the names of all property sets, sorted.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dewar returns the standard cryostat dewar: a 30 l reservoir on a 10 cm
// connection arm.
func Dewar() *detector.Dewar {
	return &detector.Dewar{
		ConnectionRadius:   20 * geom.Millimeter,
		ConnectionLength:   100 * geom.Millimeter,
		ConnectionMaterial: "G4_Al",
		Length:             300 * geom.Millimeter,
		OuterRadius:        111 * geom.Millimeter,
		WallThickness:      2 * geom.Millimeter,
		Material:           "G4_Al",
	}
}

func cloverYale() detector.Family {
	return &detector.Clover{
		CrystalRadius:   25 * geom.Millimeter,
		CrystalLength:   70 * geom.Millimeter,
		CrystalGap:      0.2 * geom.Millimeter,
		FlatInner:       22 * geom.Millimeter,
		FlatOuter:       23 * geom.Millimeter,
		CrystalMaterial: "G4_Ge",

		EndCapFrontSide:      101 * geom.Millimeter,
		EndCapFrontLength:    140 * geom.Millimeter,
		EndCapFrontThickness: 1.5 * geom.Millimeter,
		EndCapFrontRounding:  15 * geom.Millimeter,
		WindowThickness:      1.5 * geom.Millimeter,
		EndCapToCrystalGap:   10 * geom.Millimeter,
		VacuumLength:         100 * geom.Millimeter,

		EndCapBackSide:      120 * geom.Millimeter,
		EndCapBackLength:    160 * geom.Millimeter,
		EndCapBackThickness: 2 * geom.Millimeter,
		EndCapBackRounding:  30 * geom.Millimeter,

		EndCapMaterial: "G4_Al",
		VacuumMaterial: "G4_Galactic",
		AirMaterial:    "G4_AIR",
	}
}

// coaxial returns the parts shared by the coaxial detectors: aluminium end
// cap and mount cup, copper cold finger.
func coaxial() *detector.Coaxial {
	return &detector.Coaxial{
		CrystalMaterial:       "G4_Ge",
		MountCupThickness:     0.8 * geom.Millimeter,
		MountCupBaseThickness: 3 * geom.Millimeter,
		MountCupMaterial:      "G4_Al",

		EndCapToCrystalGapFront: 4 * geom.Millimeter,
		EndCapToCrystalGapSide:  3.5 * geom.Millimeter,
		EndCapThickness:         1 * geom.Millimeter,
		EndCapWindowThickness:   0.5 * geom.Millimeter,
		EndCapMaterial:          "G4_Al",
		EndCapWindowMaterial:    "G4_Al",
		VacuumMaterial:          "G4_Galactic",

		ColdFingerRadius:   4 * geom.Millimeter,
		ColdFingerMaterial: "G4_Cu",
	}
}

func coaxialTUNL60() detector.Family {
	c := coaxial()
	c.DetectorRadius = 32 * geom.Millimeter
	c.DetectorLength = 72 * geom.Millimeter
	c.DetectorFaceRadius = 8 * geom.Millimeter
	c.HoleDepth = 60 * geom.Millimeter
	c.HoleRadius = 5 * geom.Millimeter
	c.MountCupLength = 105 * geom.Millimeter
	c.ColdFingerPenetrationDepth = 50 * geom.Millimeter
	return c
}

func coaxialZeroDegree() detector.Family {
	c := coaxial()
	c.DetectorRadius = 40 * geom.Millimeter
	c.DetectorLength = 80 * geom.Millimeter
	c.DetectorFaceRadius = 8 * geom.Millimeter
	c.HoleDepth = 65 * geom.Millimeter
	c.HoleRadius = 5 * geom.Millimeter
	c.MountCupLength = 120 * geom.Millimeter
	c.EndCapWindowMaterial = "G4_Be"
	c.ColdFingerPenetrationDepth = 55 * geom.Millimeter
	return c
}

func coaxialMolly() detector.Family {
	c := coaxial()
	c.DetectorRadius = 50 * geom.Millimeter
	c.DetectorLength = 90 * geom.Millimeter
	c.DetectorFaceRadius = 10 * geom.Millimeter
	c.HoleDepth = 75 * geom.Millimeter
	c.HoleRadius = 6 * geom.Millimeter
	c.MountCupLength = 130 * geom.Millimeter
	c.EndCapThickness = 1.5 * geom.Millimeter
	c.ColdFingerRadius = 5 * geom.Millimeter
	c.ColdFingerPenetrationDepth = 65 * geom.Millimeter
	c.Dewar = Dewar()
	c.Dewar.Offset = 90 * geom.Millimeter
	return c
}

// scintillator returns a cylindrical crystal of the given diameter and
// length, both in inches.
func scintillator(diameter, length float64, mat string) detector.Family {
	return &detector.Scintillator{
		CrystalRadius:      diameter / 2 * geom.Inch,
		CrystalLength:      length * geom.Inch,
		CrystalMaterial:    mat,
		ReflectorThickness: 0.5 * geom.Millimeter,
		ReflectorMaterial:  "G4_MAGNESIUM_OXIDE",
		HousingThickness:   0.5 * geom.Millimeter,
		WindowThickness:    0.5 * geom.Millimeter,
		HousingMaterial:    "G4_Al",
	}
}
