package detector

import "github.com/chazu/detgeom/pkg/errors"

// Scintillator is a bare cylindrical scintillation crystal (CeBr3, LaBr3)
// surrounded by a reflector inside a thin housing with an entrance window.
type Scintillator struct {
	CrystalRadius   float64
	CrystalLength   float64
	CrystalMaterial string

	ReflectorThickness float64 // around the crystal side and in front of it
	ReflectorMaterial  string

	HousingThickness float64
	WindowThickness  float64
	HousingMaterial  string
}

var _ Family = (*Scintillator)(nil)

// Kind implements Family.
func (s *Scintillator) Kind() string { return "scintillator" }

func (s *Scintillator) housingInner() float64 { return s.CrystalRadius + s.ReflectorThickness }
func (s *Scintillator) housingOuter() float64 { return s.housingInner() + s.HousingThickness }
func (s *Scintillator) sideLength() float64   { return s.ReflectorThickness + s.CrystalLength }

// Validate implements Family.
func (s *Scintillator) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"crystal radius", s.CrystalRadius},
		{"crystal length", s.CrystalLength},
		{"housing thickness", s.HousingThickness},
		{"window thickness", s.WindowThickness},
	} {
		if err := errors.Positive(f.name, f.value); err != nil {
			return err
		}
	}
	if s.ReflectorThickness < 0 {
		return errors.Dimension("reflector thickness", s.ReflectorThickness, "must not be negative")
	}
	return nil
}

func (s *Scintillator) materials() []string {
	return []string{s.CrystalMaterial, s.ReflectorMaterial, s.HousingMaterial}
}

func (s *Scintillator) stages() map[Stage]stageFunc {
	return map[Stage]stageFunc{
		StageEndCap:  s.buildHousing,
		StageFill:    s.buildReflector,
		StageCrystal: s.buildCrystal,
	}
}

func (s *Scintillator) buildHousing(b *builder) error {
	side, win := s.sideLength(), s.WindowThickness
	if _, err := b.tube("housing_side", s.HousingMaterial, s.housingInner(), s.housingOuter(), side,
		b.axial(win+side/2), nil); err != nil {
		return err
	}
	if _, err := b.tube("housing_window", s.HousingMaterial, 0, s.housingOuter(), win,
		b.axial(win/2), nil); err != nil {
		return err
	}
	b.endCapLength = win + side
	b.endCapOuter = s.housingOuter()
	b.backOfEndCap = win + side
	return nil
}

// buildReflector fills the housing. The crystal is placed inside it, so
// the reflector is what remains around and in front of the crystal.
func (s *Scintillator) buildReflector(b *builder) error {
	side := s.sideLength()
	v, err := b.tube("reflector", s.ReflectorMaterial, 0, s.housingInner(), side,
		b.axial(s.WindowThickness+side/2), nil)
	if err != nil {
		return err
	}
	b.fill = v
	b.fillLength = side
	return nil
}

func (s *Scintillator) buildCrystal(b *builder) error {
	v, err := b.tube("crystal", s.CrystalMaterial, 0, s.CrystalRadius, s.CrystalLength,
		along(-b.fillLength/2+s.ReflectorThickness+s.CrystalLength/2), b.fill)
	if err != nil {
		return err
	}
	b.res.Sensitive = append(b.res.Sensitive, v)
	return nil
}
