package render

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"

	"github.com/chazu/detgeom/pkg/geom"
)

// DXF layer names.
const (
	LayerDense     = "Dense"
	LayerOptimized = "Optimized"
)

// WriteProfileDXF writes the half cross-section of a revolved profile to
// a DXF file at path, height along x and radius along y. The dense outline
// goes on LayerDense and the optimized one on LayerOptimized.
func WriteProfileDXF(path string, dense, optimized []geom.ProfilePoint) error {
	d := dxf.NewDrawing()
	d.AddLayer(LayerDense, dxf.DefaultColor, dxf.DefaultLineType, true)
	d.AddLayer(LayerOptimized, color.Red, dxf.DefaultLineType, false)

	for _, l := range []struct {
		layer  string
		points []geom.ProfilePoint
	}{
		{LayerDense, dense},
		{LayerOptimized, optimized},
	} {
		if err := d.ChangeLayer(l.layer); err != nil {
			return fmt.Errorf("render: dxf layer %s: %w", l.layer, err)
		}
		poly := HalfSection(l.points)
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			if _, err := d.Line(a.U, a.V, 0, b.U, b.V, 0); err != nil {
				return fmt.Errorf("render: dxf line: %w", err)
			}
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("render: save dxf: %w", err)
	}
	return nil
}

// HalfSection returns the closed outline of a profile cut through its
// axis, on one side only: up the outer radius, back down the inner one.
// U is height and V radius.
func HalfSection(points []geom.ProfilePoint) []geom.Point2D {
	if len(points) == 0 {
		return nil
	}
	poly := make([]geom.Point2D, 0, 2*len(points))
	for _, p := range points {
		poly = append(poly, geom.Point2D{U: p.Height, V: p.Outer})
	}
	for i := len(points) - 1; i >= 0; i-- {
		poly = append(poly, geom.Point2D{U: points[i].Height, V: points[i].Inner})
	}
	return poly
}
