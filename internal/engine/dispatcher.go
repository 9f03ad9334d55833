package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anjumanuel/digital-commerce-readiness/internal/catalogue"
	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

// Outcome statuses.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// Outcome is the per-chart result of a dashboard pass. A recoverable failure
// degrades the chart to an explanatory empty state; anything else is an error.
type Outcome struct {
	ChartID string             `json:"chart_id"`
	Title   string             `json:"title,omitempty"`
	Status  string             `json:"status"`
	Reason  errs.Kind          `json:"reason,omitempty"`
	Message string             `json:"message,omitempty"`
	Spec    *ResolvedChartSpec `json:"spec,omitempty"`
	Err     error              `json:"-"`
}

// Dispatcher resolves charts against one shared dataset and catalogue. It is
// safe for concurrent use: both are read-only after load.
type Dispatcher struct {
	ds  *dataset.Dataset
	cat *catalogue.Catalogue
	log zerolog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(ds *dataset.Dataset, cat *catalogue.Catalogue, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{ds: ds, cat: cat, log: log}
}

// Dataset returns the shared dataset.
func (d *Dispatcher) Dataset() *dataset.Dataset { return d.ds }

// Catalogue returns the shared catalogue.
func (d *Dispatcher) Catalogue() *catalogue.Catalogue { return d.cat }

// Defaults returns the start-of-session filter state.
func (d *Dispatcher) Defaults(compare []string, metric string) FilterState {
	return DefaultFilters(d.ds, compare, metric, WithClusterColumn(d.cat.ClusterColumn()))
}

// Validate checks fs against the dataset.
func (d *Dispatcher) Validate(fs FilterState) error {
	return fs.Validate(d.ds, WithClusterColumn(d.cat.ClusterColumn()))
}

// Resolve resolves one chart and classifies the result.
func (d *Dispatcher) Resolve(fs FilterState, chartID string) Outcome {
	title := ""
	if entry, err := d.cat.Lookup(chartID); err == nil {
		title = entry.Title
	}
	out := Outcome{ChartID: chartID, Title: title}

	spec, err := d.safeResolve(fs, chartID)
	switch {
	case err == nil:
		out.Status = StatusOK
		out.Spec = spec
		d.log.Debug().Str("chart", chartID).Int("rows", spec.Data.Len()).Msg("chart resolved")
	case errs.Recoverable(err):
		out.Status = StatusEmpty
		out.Reason = errs.KindOf(err)
		out.Message = err.Error()
		out.Err = err
		d.log.Info().Str("chart", chartID).Str("reason", string(out.Reason)).Msg(out.Message)
	default:
		out.Status = StatusError
		out.Reason = errs.KindOf(err)
		out.Message = err.Error()
		out.Err = err
		d.log.Error().Err(err).Str("chart", chartID).Msg("chart failed")
	}
	return out
}

// Dashboard resolves every entry of the given catalogue version independently.
func (d *Dispatcher) Dashboard(fs FilterState, version int) []Outcome {
	entries := d.cat.Entries(version)
	out := make([]Outcome, len(entries))
	for i, e := range entries {
		out[i] = d.Resolve(fs.Clone(), e.ID)
	}
	return out
}

func (d *Dispatcher) safeResolve(fs FilterState, chartID string) (spec *ResolvedChartSpec, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart %s: panic: %v", chartID, r)
		}
	}()
	return Resolve(d.ds, d.cat, fs, chartID)
}

// ExportTable returns the identifier plus the given columns over the filtered
// view. With no columns, the selected metric is exported.
func (d *Dispatcher) ExportTable(fs FilterState, columns []string) (dataset.Table, error) {
	view, err := ApplyFilters(d.ds, fs, WithClusterColumn(d.cat.ClusterColumn()))
	if err != nil {
		return dataset.Table{}, err
	}
	if len(columns) == 0 && fs.SelectedMetric != "" {
		columns = []string{fs.SelectedMetric}
	}

	schema := d.ds.Columns()
	cols := []string{schema.Identifier()}
	seen := map[string]bool{schema.Identifier(): true}
	for _, c := range columns {
		if !schema.Has(c) {
			return dataset.Table{}, &errs.NotFoundError{What: "column", Name: c, Suggestion: errs.Suggest(c, schema.Names())}
		}
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	return view.Project(cols), nil
}
