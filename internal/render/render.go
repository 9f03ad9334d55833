// Package render draws resolved charts as PNG images. Bar and scatter charts
// go through go-chart; box plots and heatmaps through gonum/plot. Choropleth,
// 3D scatter, radar and table kinds are left to the presentation shell.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/anjumanuel/digital-commerce-readiness/internal/catalogue"
	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
)

var (
	// ErrUnsupportedKind is returned for chart kinds with no PNG renderer.
	ErrUnsupportedKind = errors.New("render: chart kind has no PNG renderer")
	// ErrNoData is returned when a chart has nothing to draw.
	ErrNoData = errors.New("render: no data to draw")
)

// Option configures a render.
type Option func(*options)

type options struct {
	width, height int
}

// WithSize sets the image size in pixels.
func WithSize(width, height int) Option {
	return func(o *options) {
		if width > 0 {
			o.width = width
		}
		if height > 0 {
			o.height = height
		}
	}
}

// Supported reports whether kind can be rendered to PNG.
func Supported(kind catalogue.Kind) bool {
	switch kind {
	case catalogue.Bar, catalogue.Scatter2D, catalogue.Boxplot, catalogue.Heatmap:
		return true
	}
	return false
}

// PNG writes spec as a PNG image to w.
func PNG(w io.Writer, spec *engine.ResolvedChartSpec, opts ...Option) error {
	o := &options{width: 1024, height: 640}
	for _, opt := range opts {
		opt(o)
	}
	if spec.Data.Len() == 0 {
		return ErrNoData
	}

	switch spec.Kind {
	case catalogue.Bar:
		return barChart(w, spec, o)
	case catalogue.Scatter2D:
		return scatterChart(w, spec, o)
	case catalogue.Boxplot:
		return boxPlot(w, spec, o)
	case catalogue.Heatmap:
		return heatMap(w, spec, o)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedKind, spec.Kind)
}

// ============================================================================
// Cell helpers
// ============================================================================

func column(spec *engine.ResolvedChartSpec, role string) (int, error) {
	col := spec.Role(role)
	i := spec.Data.ColumnIndex(col)
	if i < 0 {
		return -1, fmt.Errorf("render: chart %s has no %s column", spec.ChartID, role)
	}
	return i, nil
}

func optionalColumn(spec *engine.ResolvedChartSpec, role string) int {
	if spec.Role(role) == "" {
		return -1
	}
	return spec.Data.ColumnIndex(spec.Role(role))
}

func number(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func label(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	}
	return fmt.Sprint(v)
}

func span(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	return lo, hi
}

// padded widens [lo, hi] so an axis never collapses to a single value.
func padded(lo, hi float64) (float64, float64) {
	if hi == lo {
		d := 1.0
		if lo != 0 {
			d = abs(lo) * 0.1
		}
		return lo - d, hi + d
	}
	d := (hi - lo) * 0.05
	return lo - d, hi + d
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
