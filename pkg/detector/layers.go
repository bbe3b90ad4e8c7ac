package detector

import (
	"fmt"

	"github.com/chazu/detgeom/pkg/profile"
	"github.com/chazu/detgeom/pkg/scene"
)

// buildFilters stacks the filters in front of the end cap, moving toward
// the array center. Filter k is centered Σ_{j<k} t_j + t_k/2 in front of
// the detector face.
func buildFilters(b *builder) error {
	z := 0.0
	for i, l := range b.inst.Filters {
		part := fmt.Sprintf("filter_%d", i)
		size := l.Radius
		if size == 0 {
			size = b.endCapOuter
		}

		var (
			s   *scene.Solid
			err error
		)
		if b.endCapSquare {
			s, err = b.squareSlab(part+"_solid", size, l.Thickness)
		} else {
			s, err = b.geo.Tube(b.name(part+"_solid"), 0, size, l.Thickness)
		}
		if err != nil {
			return err
		}
		v, err := b.volume(s, l.Material, part)
		if err != nil {
			return err
		}
		if err := b.place(v, b.axial(-(z + l.Thickness/2)), nil, part); err != nil {
			return err
		}
		z += l.Thickness
	}
	return nil
}

// buildWraps wraps the end cap in layers stacked radially outward, each as
// long as the end cap.
func buildWraps(b *builder) error {
	inner := b.endCapOuter
	for i, l := range b.inst.Wraps {
		part := fmt.Sprintf("wrap_%d", i)

		var (
			s     *scene.Solid
			err   error
			outer float64
		)
		if b.endCapSquare {
			outer = inner + 2*l.Thickness
			s, err = b.squareShell(part+"_solid", inner, outer, b.endCapLength)
		} else {
			outer = inner + l.Thickness
			s, err = b.geo.Tube(b.name(part+"_solid"), inner, outer, b.endCapLength)
		}
		if err != nil {
			return err
		}
		v, err := b.volume(s, l.Material, part)
		if err != nil {
			return err
		}
		if err := b.place(v, b.axial(b.endCapLength/2), nil, part); err != nil {
			return err
		}
		inner = outer
	}
	return nil
}

// squareSlab extrudes a rounded square of the given side over length,
// using the end cap's corner rounding.
func (b *builder) squareSlab(name string, side, length float64) (*scene.Solid, error) {
	outline, err := profile.RoundedBox(side, min(b.endCapRounding, side), profile.DefaultCornerPoints)
	if err != nil {
		return nil, err
	}
	return b.geo.ExtrudedPolygon(b.name(name), outline, length/2, 1, 1)
}

// squareShell is a rounded-square tube: a slab of side outer with a
// through-cut of side inner.
func (b *builder) squareShell(name string, inner, outer, length float64) (*scene.Solid, error) {
	out, err := b.squareSlab(name+"_outer", outer, length)
	if err != nil {
		return nil, err
	}
	cut, err := b.squareSlab(name+"_cut", inner, length+2)
	if err != nil {
		return nil, err
	}
	return b.geo.Difference(b.name(name), out, cut, along(0))
}
