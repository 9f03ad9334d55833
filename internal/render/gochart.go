package render

import (
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
)

var seriesColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorOrange,
	chart.ColorCyan,
	chart.ColorYellow,
	chart.ColorAlternateGray,
}

func barChart(w io.Writer, spec *engine.ResolvedChartSpec, o *options) error {
	xi, err := column(spec, "x")
	if err != nil {
		return err
	}
	yi, err := column(spec, "y")
	if err != nil {
		return err
	}

	var bars []chart.Value
	var values []float64
	for _, row := range spec.Data.Rows {
		v, ok := number(row[yi])
		if !ok {
			continue
		}
		bars = append(bars, chart.Value{Label: label(row[xi]), Value: v})
		values = append(values, v)
	}
	if len(bars) == 0 {
		return ErrNoData
	}

	lo, hi := span(values)
	lo = min(lo, 0)
	if hi <= lo {
		hi = lo + 1
	}

	bc := chart.BarChart{
		Title:      spec.Title,
		Width:      o.width,
		Height:     o.height,
		BarWidth:   max(8, (o.width-120)/(2*len(bars))),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 24}},
		YAxis: chart.YAxis{
			Name:  spec.Role("y"),
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

// scatterChart draws one point series per colour group. A categorical colour
// column splits the points; any other colour binding is drawn as one series.
// A numeric size column scales the dots.
func scatterChart(w io.Writer, spec *engine.ResolvedChartSpec, o *options) error {
	xi, err := column(spec, "x")
	if err != nil {
		return err
	}
	yi, err := column(spec, "y")
	if err != nil {
		return err
	}
	ci := optionalColumn(spec, "color")
	si := optionalColumn(spec, "size")

	type group struct {
		name         string
		xs, ys, size []float64
	}
	var groups []*group
	byName := make(map[string]*group)
	var allX, allY, allSize []float64

	for _, row := range spec.Data.Rows {
		x, okX := number(row[xi])
		y, okY := number(row[yi])
		if !okX || !okY {
			continue
		}
		name := spec.Title
		if ci >= 0 {
			if s, ok := row[ci].(string); ok {
				name = s
			}
		}
		g, ok := byName[name]
		if !ok {
			g = &group{name: name}
			byName[name] = g
			groups = append(groups, g)
		}
		sz := 0.0
		if si >= 0 {
			if v, ok := number(row[si]); ok {
				sz = v
				allSize = append(allSize, v)
			}
		}
		g.xs, g.ys, g.size = append(g.xs, x), append(g.ys, y), append(g.size, sz)
		allX, allY = append(allX, x), append(allY, y)
	}
	if len(allX) == 0 {
		return ErrNoData
	}

	var sizeLo, sizeHi float64
	if len(allSize) > 0 {
		sizeLo, sizeHi = span(allSize)
	}

	series := make([]chart.Series, 0, len(groups))
	for i, g := range groups {
		style := chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    5,
			DotColor:    seriesColors[i%len(seriesColors)],
		}
		if len(allSize) > 0 && sizeHi > sizeLo {
			style.DotWidthProvider = func(_, _ chart.Range, index int, _, _ float64) float64 {
				return 3 + 9*(g.size[index]-sizeLo)/(sizeHi-sizeLo)
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    g.name,
			XValues: g.xs,
			YValues: g.ys,
			Style:   style,
		})
	}

	xLo, xHi := padded(span(allX))
	yLo, yHi := padded(span(allY))
	ch := chart.Chart{
		Title:      spec.Title,
		Width:      o.width,
		Height:     o.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: spec.Role("x"), Range: &chart.ContinuousRange{Min: xLo, Max: xHi}},
		YAxis:      chart.YAxis{Name: spec.Role("y"), Range: &chart.ContinuousRange{Min: yLo, Max: yHi}},
		Series:     series,
	}
	if len(groups) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return ch.Render(chart.PNG, w)
}
