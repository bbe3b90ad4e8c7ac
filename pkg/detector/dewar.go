package detector

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/detgeom/pkg/errors"
)

// Dewar is the cryogen reservoir behind a germanium detector, attached by
// a connection tube along the symmetry axis.
type Dewar struct {
	ConnectionRadius   float64
	ConnectionLength   float64
	ConnectionMaterial string

	Length        float64 // outer length including face and base
	OuterRadius   float64
	WallThickness float64
	Material      string

	// Offset shifts the dewar away from the symmetry axis along the
	// detector's lateral direction. The connection tube stays on axis.
	Offset float64
}

// Validate checks the dewar dimensions.
func (d *Dewar) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"connection radius", d.ConnectionRadius},
		{"connection length", d.ConnectionLength},
		{"dewar length", d.Length},
		{"dewar outer radius", d.OuterRadius},
		{"dewar wall thickness", d.WallThickness},
	} {
		if err := errors.Positive(f.name, f.value); err != nil {
			return err
		}
	}
	if side := d.Length - 2*d.WallThickness; side <= 0 {
		return errors.Dimension("dewar side length", side, "dewar length %g leaves no room between face and base", d.Length)
	}
	if d.WallThickness >= d.OuterRadius {
		return errors.Dimension("dewar wall thickness", d.WallThickness, "must be smaller than outer radius %g", d.OuterRadius)
	}
	return nil
}

func (d *Dewar) materials() []string {
	return []string{d.ConnectionMaterial, d.Material}
}

// buildDewar places the connection tube and the dewar face, side and base
// behind the end cap.
func buildDewar(b *builder, d *Dewar) error {
	start := b.backOfEndCap
	wall := d.WallThickness
	side := d.Length - 2*wall

	if _, err := b.tube("connection", d.ConnectionMaterial, 0, d.ConnectionRadius, d.ConnectionLength,
		b.axial(start+d.ConnectionLength/2), nil); err != nil {
		return err
	}

	start += d.ConnectionLength
	shift := r3.Scale(d.Offset, b.inst.Placement.Lateral())
	parts := []struct {
		part      string
		rMin, len float64
		center    float64
	}{
		{"dewar_face", 0, wall, start + wall/2},
		{"dewar_side", d.OuterRadius - wall, side, start + wall + side/2},
		{"dewar_base", 0, wall, start + side + 1.5*wall},
	}
	for _, p := range parts {
		if _, err := b.tube(p.part, d.Material, p.rMin, d.OuterRadius, p.len,
			b.axial(p.center).Moved(shift), nil); err != nil {
			return err
		}
	}
	return nil
}
