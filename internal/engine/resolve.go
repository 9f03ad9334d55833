package engine

import (
	"fmt"

	"github.com/anjumanuel/digital-commerce-readiness/internal/catalogue"
	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

// ResolvedChartSpec is everything a renderer needs to draw one chart: the
// visual kind, the role to column mapping and the resolved rows.
type ResolvedChartSpec struct {
	ChartID   string              `json:"chart_id"`
	Title     string              `json:"title"`
	Kind      catalogue.Kind      `json:"kind"`
	Transform catalogue.Transform `json:"transform"`
	Roles     []catalogue.Binding `json:"roles"`
	Data      dataset.Table       `json:"data"`
}

// Role returns the column bound to role, or "".
func (r *ResolvedChartSpec) Role(role string) string {
	for _, b := range r.Roles {
		if b.Role == role {
			return b.Column
		}
	}
	return ""
}

// Resolve turns a catalogue entry into renderer-ready data for the given
// filter state. It has no side effects: the same inputs always yield deeply
// equal results.
func Resolve(ds *dataset.Dataset, cat *catalogue.Catalogue, fs FilterState, chartID string) (*ResolvedChartSpec, error) {
	entry, err := cat.Lookup(chartID)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithClusterColumn(cat.ClusterColumn())}

	if entry.UsesMetric() && fs.SelectedMetric == "" {
		return nil, &errs.InsufficientDataError{Transform: string(entry.Transform), Reason: "no metric selected"}
	}
	entry = bindMetric(entry, fs.SelectedMetric)

	switch entry.Scope {
	case catalogue.ScopeRegion:
		if fs.SelectedRegion == "" {
			return nil, &errs.InsufficientDataError{Transform: string(entry.Transform), Reason: "no region selected"}
		}
	default:
		// Whole-dataset charts still reject a dangling region reference.
		if fs.SelectedRegion != "" {
			if err := ValidateRegion(ds, fs.SelectedRegion); err != nil {
				return nil, err
			}
		}
		fs.SelectedRegion = ""
	}

	view, err := ApplyFilters(ds, fs, opts...)
	if err != nil {
		return nil, err
	}

	data, err := transform(entry, view, fs)
	if err != nil {
		return nil, err
	}

	for _, b := range entry.Roles {
		if !data.HasColumn(b.Column) {
			return nil, &errs.SchemaError{
				Column: b.Column,
				Reason: fmt.Sprintf("bound to role %s is absent from the %s result of chart %s", b.Role, entry.Transform, entry.ID),
			}
		}
	}

	return &ResolvedChartSpec{
		ChartID:   entry.ID,
		Title:     entry.Title,
		Kind:      entry.Kind,
		Transform: entry.Transform,
		Roles:     entry.Roles,
		Data:      data,
	}, nil
}

func transform(entry catalogue.ChartSpec, view *dataset.View, fs FilterState) (dataset.Table, error) {
	p := entry.Params
	switch entry.Transform {
	case catalogue.None:
		return view.Project(ColumnsFor(entry, view.Dataset().Columns())), nil
	case catalogue.TopN:
		top, err := TopN(view, p.N, p.SortColumn)
		if err != nil {
			return dataset.Table{}, err
		}
		return top.Project(ColumnsFor(entry, view.Dataset().Columns())), nil
	case catalogue.Threshold:
		return Threshold(view, p.Conditions).Project(ColumnsFor(entry, view.Dataset().Columns())), nil
	case catalogue.CorrelationMatrix:
		return Correlation(view, p.Exclude)
	case catalogue.TransposeMelt:
		return Melt(view.Dataset(), fs.CompareRegions, p.Indicators, p.Normalize)
	}
	return dataset.Table{}, fmt.Errorf("chart %s: unsupported transform %q", entry.ID, entry.Transform)
}

// ColumnsFor lists the dataset columns a row-preserving transform projects:
// the identifier, then every role column, then the pass-through columns,
// without repeats. "*" expands to the whole schema.
func ColumnsFor(entry catalogue.ChartSpec, schema dataset.Schema) []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(c string) {
		if c == "" || seen[c] || !schema.Has(c) {
			return
		}
		seen[c] = true
		cols = append(cols, c)
	}

	add(schema.Identifier())
	for _, b := range entry.Roles {
		add(b.Column)
	}
	for _, c := range entry.Params.Columns {
		if c == catalogue.AllColumns {
			for _, name := range schema.Names() {
				add(name)
			}
			continue
		}
		add(c)
	}
	return cols
}

// bindMetric substitutes the selected metric for every placeholder. The
// returned entry shares nothing mutable with the catalogue.
func bindMetric(entry catalogue.ChartSpec, metric string) catalogue.ChartSpec {
	roles := make([]catalogue.Binding, len(entry.Roles))
	for i, b := range entry.Roles {
		if b.Column == catalogue.MetricPlaceholder {
			b.Column = metric
		}
		roles[i] = b
	}
	entry.Roles = roles
	if entry.Params.SortColumn == catalogue.MetricPlaceholder {
		entry.Params.SortColumn = metric
	}
	return entry
}
