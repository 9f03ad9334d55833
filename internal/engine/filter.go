package engine

import (
	"slices"

	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

// ============================================================================
// FILTER STATE
// ============================================================================

// FilterState is one session's subset criteria. It is a plain value: callers
// hand a copy to the engine, which never mutates it.
type FilterState struct {
	SelectedRegion   string   `json:"selected_region"`
	SelectedClusters []string `json:"selected_clusters"`
	CompareRegions   []string `json:"compare_regions"`
	SelectedMetric   string   `json:"selected_metric"`
}

// Clone returns a deep copy.
func (fs FilterState) Clone() FilterState {
	fs.SelectedClusters = slices.Clone(fs.SelectedClusters)
	fs.CompareRegions = slices.Clone(fs.CompareRegions)
	return fs
}

// DefaultFilters builds the session-start state: every cluster selected, no
// region, the given compare regions (or the first two regions of the
// dataset) and the given metric (or the first numeric column).
func DefaultFilters(ds *dataset.Dataset, compare []string, metric string, opts ...Option) FilterState {
	cfg := applyOptions(opts)

	fs := FilterState{
		SelectedClusters: ds.Distinct(cfg.clusterColumn),
	}

	if len(compare) > 0 {
		fs.CompareRegions = append([]string(nil), compare...)
	} else {
		regions := ds.Regions()
		if len(regions) > 2 {
			regions = regions[:2]
		}
		fs.CompareRegions = regions
	}

	numeric := ds.Columns().NumericColumns()
	switch {
	case metric != "" && ds.Columns().TypeOf(metric) == dataset.Numeric:
		fs.SelectedMetric = metric
	case len(numeric) > 0:
		fs.SelectedMetric = numeric[0]
	}
	return fs
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate rejects every reference in fs that does not resolve against ds.
func (fs FilterState) Validate(ds *dataset.Dataset, opts ...Option) error {
	cfg := applyOptions(opts)

	if fs.SelectedRegion != "" {
		if err := ValidateRegion(ds, fs.SelectedRegion); err != nil {
			return err
		}
	}
	for _, r := range fs.CompareRegions {
		if err := ValidateRegion(ds, r); err != nil {
			return err
		}
	}
	if len(fs.SelectedClusters) > 0 {
		known := ds.Distinct(cfg.clusterColumn)
		set := toSet(known)
		for _, c := range fs.SelectedClusters {
			if !set[c] {
				return &errs.NotFoundError{What: "cluster", Name: c, Suggestion: errs.Suggest(c, known)}
			}
		}
	}
	if fs.SelectedMetric != "" {
		if err := ValidateMetric(ds, fs.SelectedMetric); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRegion checks that id names a region of ds.
func ValidateRegion(ds *dataset.Dataset, id string) error {
	if _, ok := ds.IndexOf(id); ok {
		return nil
	}
	return &errs.NotFoundError{What: "region", Name: id, Suggestion: errs.Suggest(id, ds.Regions())}
}

// ValidateMetric checks that name is a numeric column of ds.
func ValidateMetric(ds *dataset.Dataset, name string) error {
	if ds.Columns().TypeOf(name) == dataset.Numeric {
		return nil
	}
	numeric := ds.Columns().NumericColumns()
	return &errs.NotFoundError{What: "numeric column", Name: name, Suggestion: errs.Suggest(name, numeric)}
}

// ============================================================================
// APPLY
// ============================================================================

// ApplyFilters derives the filtered view of ds for fs.
//
// An empty cluster selection yields an empty view. A selected region narrows
// the view to that single record when its cluster is selected. Compare
// regions never narrow the view. The dataset is never modified.
func ApplyFilters(ds *dataset.Dataset, fs FilterState, opts ...Option) (*dataset.View, error) {
	if err := fs.Validate(ds, opts...); err != nil {
		return nil, err
	}
	cfg := applyOptions(opts)

	if len(fs.SelectedClusters) == 0 {
		return ds.Subset([]int{}), nil
	}
	clusters := toSet(fs.SelectedClusters)

	if fs.SelectedRegion != "" {
		i, _ := ds.IndexOf(fs.SelectedRegion)
		if !clusters[ds.Record(i).Dimension(cfg.clusterColumn)] {
			return ds.Subset([]int{}), nil
		}
		return ds.Subset([]int{i}), nil
	}

	indices := make([]int, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		if clusters[ds.Record(i).Dimension(cfg.clusterColumn)] {
			indices = append(indices, i)
		}
	}
	return ds.Subset(indices), nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
