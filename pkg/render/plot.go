package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/chazu/detgeom/pkg/geom"
)

// Default plot size.
const (
	DefaultPlotWidth  = 8 * vg.Inch
	DefaultPlotHeight = 5 * vg.Inch
)

var (
	denseColor     = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	optimizedColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}
)

// ProfilePlot draws the radii of a dense profile and its optimized
// reduction against height. Inner radii are only drawn when the profile
// has a bore.
func ProfilePlot(dense, optimized []geom.ProfilePoint, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Height (mm)"
	p.Y.Label.Text = "Radius (mm)"
	p.Add(plotter.NewGrid())

	denseOuter, err := plotter.NewLine(radii(dense, false))
	if err != nil {
		return nil, fmt.Errorf("render: dense profile: %w", err)
	}
	denseOuter.Color = denseColor
	denseOuter.Width = vg.Points(2)
	p.Add(denseOuter)
	p.Legend.Add(fmt.Sprintf("dense (%d)", len(dense)), denseOuter)

	optOuter, optPoints, err := plotter.NewLinePoints(radii(optimized, false))
	if err != nil {
		return nil, fmt.Errorf("render: optimized profile: %w", err)
	}
	optOuter.Color = optimizedColor
	optOuter.Width = vg.Points(1)
	optPoints.Color = optimizedColor
	optPoints.Radius = vg.Points(2)
	p.Add(optOuter, optPoints)
	p.Legend.Add(fmt.Sprintf("optimized (%d)", len(optimized)), optOuter, optPoints)

	if hasBore(dense) {
		denseInner, err := plotter.NewLine(radii(dense, true))
		if err != nil {
			return nil, fmt.Errorf("render: dense bore: %w", err)
		}
		denseInner.Color = denseColor
		denseInner.Width = vg.Points(2)
		denseInner.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

		optInner, err := plotter.NewLine(radii(optimized, true))
		if err != nil {
			return nil, fmt.Errorf("render: optimized bore: %w", err)
		}
		optInner.Color = optimizedColor
		optInner.Width = vg.Points(1)
		optInner.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(denseInner, optInner)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SavePlot writes p to path; the extension picks the format (png, svg,
// pdf, ...). Zero sizes select the defaults.
func SavePlot(p *plot.Plot, path string, width, height vg.Length) error {
	if width == 0 {
		width = DefaultPlotWidth
	}
	if height == 0 {
		height = DefaultPlotHeight
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("render: save plot: %w", err)
	}
	return nil
}

func radii(points []geom.ProfilePoint, inner bool) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = pt.Height
		xys[i].Y = pt.Outer
		if inner {
			xys[i].Y = pt.Inner
		}
	}
	return xys
}

func hasBore(points []geom.ProfilePoint) bool {
	for _, pt := range points {
		if pt.Inner > 0 {
			return true
		}
	}
	return false
}
