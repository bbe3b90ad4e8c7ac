package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/chazu/detgeom/pkg/array"
	"github.com/chazu/detgeom/pkg/engine"
	"github.com/chazu/detgeom/pkg/material"
)

// =============================================================================
// Logging
// =============================================================================

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the elapsed time of one step when it is done.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Styles
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader.Padding(0, 1)
			}
			return styleCell
		})
}

// =============================================================================
// Reports
// =============================================================================

// writeEvalErrors prints DSL errors one per line.
func writeEvalErrors(w io.Writer, errs []engine.EvalError) {
	for _, e := range errs {
		fmt.Fprintln(w, styleError.Render(iconError)+" "+e.Error())
	}
}

// writeBuildSummary prints one row per detector followed by the totals.
func writeBuildSummary(w io.Writer, res *BuildResult) {
	fmt.Fprintln(w, styleTitle.Render("Build "+res.ID.String()))

	t := newTable("Detector", "Family", "Volumes", "Sensitive")
	for _, d := range res.Detectors {
		t.Row(d.Name, d.Kind,
			fmt.Sprint(len(d.Result.Volumes)),
			fmt.Sprint(len(d.Result.Sensitive)))
	}
	fmt.Fprintln(w, t.Render())

	kinds := lo.CountValuesBy(res.Detectors, func(d array.Built) string { return d.Kind })
	names := lo.Keys(kinds)
	sort.Strings(names)
	parts := lo.Map(names, func(k string, _ int) string { return fmt.Sprintf("%d %s", kinds[k], k) })
	fmt.Fprintln(w, styleDim.Render(strings.Join(parts, ", ")))

	for _, warn := range res.Warnings {
		fmt.Fprintln(w, styleWarning.Render(iconWarning)+" "+warn.Subject+": "+warn.Message)
	}
	fmt.Fprintf(w, "%s %d volumes, %d sensitive, %d sources\n",
		styleSuccess.Render(iconSuccess), res.Volumes, len(res.Sensitive), len(res.Sources))
}

// writeProfileReport prints the point counts of a profile reduction.
func writeProfileReport(w io.Writer, p *ProfileResult) {
	fmt.Fprintln(w, styleTitle.Render(p.Collection))
	t := newTable("Profile", "Points")
	t.Row("dense", fmt.Sprint(len(p.Dense)))
	t.Row("optimized", fmt.Sprint(len(p.Optimized)))
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, styleDim.Render(fmt.Sprintf("max deviation %.3g mm", p.MaxDeviation)))
}

// writeMaterials prints the material table.
func writeMaterials(w io.Writer, mats []*material.Material) {
	t := newTable("Name", "Density (g/cm3)", "State", "Components")
	for _, m := range mats {
		comps := lo.Map(m.Components, func(c material.Component, _ int) string {
			return fmt.Sprintf("%s %.4g", c.Element, c.Fraction)
		})
		t.Row(m.Name, fmt.Sprintf("%.4g", m.Density), string(m.State), strings.Join(comps, ", "))
	}
	fmt.Fprintln(w, t.Render())
}
