package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/chazu/detgeom/pkg/geom"
)

// ProfileChart writes a self-contained HTML page with an interactive
// chart of a dense profile and its optimized reduction.
func ProfileChart(w io.Writer, dense, optimized []geom.ProfilePoint, title string) error {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("dense=%d optimized=%d", len(dense), len(optimized)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Height (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Radius (mm)", NameLocation: "middle", NameGap: 30}),
	)

	sc.AddSeries("dense outer", scatterData(dense, false),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	sc.AddSeries("optimized outer", scatterData(optimized, false),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	if hasBore(dense) {
		sc.AddSeries("dense inner", scatterData(dense, true),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
		sc.AddSeries("optimized inner", scatterData(optimized, true),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}

	if err := sc.Render(w); err != nil {
		return fmt.Errorf("render: profile chart: %w", err)
	}
	return nil
}

func scatterData(points []geom.ProfilePoint, inner bool) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(points))
	for _, xy := range radii(points, inner) {
		data = append(data, opts.ScatterData{Value: []interface{}{xy.X, xy.Y}})
	}
	return data
}
