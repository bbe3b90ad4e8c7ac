package material

import (
	"math"

	"github.com/chazu/detgeom/pkg/errors"
)

// DiscDensity returns the density in g/cm3 of a disc of the given mass (g),
// radius and thickness (mm).
func DiscDensity(mass, radius, thickness float64) (float64, error) {
	if err := errors.Positive("mass", mass); err != nil {
		return 0, err
	}
	if err := errors.Positive("disc radius", radius); err != nil {
		return 0, err
	}
	if err := errors.Positive("disc thickness", thickness); err != nil {
		return 0, err
	}
	volume := math.Pi * radius * radius * thickness / 1000 // mm3 to cm3
	return mass / volume, nil
}

// Enriched returns a single-element material whose isotopic abundances are
// given by isotopes and whose density is mass / volume of a disc.
func Enriched(name string, isotopes []Component, mass, radius, thickness float64) (Material, error) {
	rho, err := DiscDensity(mass, radius, thickness)
	if err != nil {
		return Material{}, errors.WithSubject(err, name)
	}
	m := Material{
		Name:       name,
		Density:    rho,
		State:      Solid,
		Components: append([]Component(nil), isotopes...),
	}
	return m, m.Validate()
}
