package render

import (
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
)

// pixelsPerInch converts the pixel options to gonum/plot lengths.
const pixelsPerInch = 96

func save(w io.Writer, p *plot.Plot, o *options) error {
	width := vg.Length(o.width) * vg.Inch / pixelsPerInch
	height := vg.Length(o.height) * vg.Inch / pixelsPerInch
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// boxPlot draws one box per distinct x value, in first-seen order.
func boxPlot(w io.Writer, spec *engine.ResolvedChartSpec, o *options) error {
	xi, err := column(spec, "x")
	if err != nil {
		return err
	}
	yi, err := column(spec, "y")
	if err != nil {
		return err
	}

	var names []string
	groups := make(map[string]plotter.Values)
	for _, row := range spec.Data.Rows {
		v, ok := number(row[yi])
		if !ok {
			continue
		}
		name := label(row[xi])
		if _, seen := groups[name]; !seen {
			names = append(names, name)
		}
		groups[name] = append(groups[name], v)
	}
	if len(names) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.Role("x")
	p.Y.Label.Text = spec.Role("y")

	for i, name := range names {
		box, err := plotter.NewBoxPlot(vg.Points(24), float64(i), groups[name])
		if err != nil {
			return err
		}
		p.Add(box)
	}
	p.NominalX(names...)
	p.Add(plotter.NewGrid())
	return save(w, p, o)
}

// heatMap draws a square label-by-label matrix such as a correlation table:
// the first column holds the row labels, the rest the cell values.
func heatMap(w io.Writer, spec *engine.ResolvedChartSpec, o *options) error {
	t := spec.Data
	if len(t.Columns) < 2 {
		return ErrNoData
	}
	g := &matrixGrid{cols: t.Columns[1:]}
	for _, row := range t.Rows {
		g.rows = append(g.rows, label(row[0]))
		vals := make([]float64, len(row)-1)
		for i, cell := range row[1:] {
			if v, ok := number(cell); ok {
				vals[i] = v
			} else {
				vals[i] = math.NaN()
			}
		}
		g.z = append(g.z, vals)
	}

	hm := plotter.NewHeatMap(g, palette.Heat(12, 1))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 200}

	p := plot.New()
	p.Title.Text = spec.Title
	p.Add(hm)
	p.NominalX(g.cols...)
	p.NominalY(g.rows...)
	return save(w, p, o)
}

// matrixGrid adapts a label-indexed matrix to plotter.GridXYZ. Row r is drawn
// at y = r so it lines up with the nominal y axis.
type matrixGrid struct {
	cols []string
	rows []string
	z    [][]float64
}

func (g *matrixGrid) Dims() (c, r int) { return len(g.cols), len(g.rows) }
func (g *matrixGrid) Z(c, r int) float64 { return g.z[r][c] }
func (g *matrixGrid) X(c int) float64 { return float64(c) }
func (g *matrixGrid) Y(r int) float64 { return float64(r) }
