package engine

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/anjumanuel/digital-commerce-readiness/internal/catalogue"
	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

// ============================================================================
// TOP N
// ============================================================================

// TopN orders v by sortCol descending and keeps the first n records. The sort
// is stable: ties keep their dataset order. Undefined values sort last.
func TopN(v *dataset.View, n int, sortCol string) (*dataset.View, error) {
	if v.Len() == 0 {
		return nil, &errs.InsufficientDataError{Transform: string(catalogue.TopN), Reason: "no records match the current filters"}
	}
	if n <= 0 {
		return nil, fmt.Errorf("topN: n must be positive, got %d", n)
	}

	type keyed struct {
		pos     int
		value   float64
		defined bool
	}
	rows := make([]keyed, v.Len())
	for i := 0; i < v.Len(); i++ {
		val, ok := v.Record(i).Measure(sortCol)
		rows[i] = keyed{pos: v.Position(i), value: val, defined: ok}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.defined != b.defined {
			return a.defined
		}
		return a.value > b.value
	})

	if len(rows) > n {
		rows = rows[:n]
	}
	indices := make([]int, len(rows))
	for i, r := range rows {
		indices[i] = r.pos
	}
	return v.Dataset().Subset(indices), nil
}

// ============================================================================
// THRESHOLD
// ============================================================================

// Threshold keeps the records of v that satisfy every condition. An undefined
// value never satisfies a condition.
func Threshold(v *dataset.View, conds []catalogue.Condition) *dataset.View {
	indices := make([]int, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		rec := v.Record(i)
		pass := true
		for _, c := range conds {
			val, ok := rec.Measure(c.Column)
			if !ok || !compare(val, c.Operator, c.Value) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, v.Position(i))
		}
	}
	return v.Dataset().Subset(indices)
}

func compare(val float64, op string, ref float64) bool {
	switch op {
	case "gt":
		return val > ref
	case "gte":
		return val >= ref
	case "lt":
		return val < ref
	case "lte":
		return val <= ref
	case "eq":
		return val == ref
	}
	return false
}

// ============================================================================
// CORRELATION MATRIX
// ============================================================================

// CorrelationColumns returns the numeric columns of schema minus exclude, in
// schema order. Categorical columns never qualify, whatever their storage.
func CorrelationColumns(schema dataset.Schema, exclude []string) []string {
	skip := toSet(exclude)
	var cols []string
	for _, c := range schema.NumericColumns() {
		if !skip[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// Correlation computes the pairwise Pearson matrix over v. Each pair uses the
// rows where both values are defined. The diagonal is exactly 1 and the
// matrix is symmetric; a coefficient that cannot be computed (fewer than two
// paired rows or zero variance) is nil.
//
// The result table has a label column followed by one column per variable.
func Correlation(v *dataset.View, exclude []string) (dataset.Table, error) {
	cols := CorrelationColumns(v.Dataset().Columns(), exclude)
	if len(cols) < 2 {
		return dataset.Table{}, &errs.InsufficientDataError{
			Transform: string(catalogue.CorrelationMatrix),
			Reason:    fmt.Sprintf("need at least 2 numeric columns, have %d", len(cols)),
		}
	}
	if v.Len() < 2 {
		return dataset.Table{}, &errs.InsufficientDataError{
			Transform: string(catalogue.CorrelationMatrix),
			Reason:    fmt.Sprintf("need at least 2 records, have %d", v.Len()),
		}
	}

	n := len(cols)
	matrix := make([][]any, n)
	for i := range matrix {
		matrix[i] = make([]any, n)
		matrix[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r, ok := pearson(v, cols[i], cols[j])
			if ok {
				matrix[i][j], matrix[j][i] = r, r
			}
		}
	}

	t := dataset.Table{
		Columns: append([]string{catalogue.CorrelationLabel}, cols...),
		Rows:    make([][]any, n),
	}
	for i, col := range cols {
		t.Rows[i] = append([]any{col}, matrix[i]...)
	}
	return t, nil
}

func pearson(v *dataset.View, a, b string) (float64, bool) {
	r, _, ok := PairCorrelation(v, a, b)
	return r, ok
}

// PairCorrelation returns the Pearson coefficient of columns a and b over the
// rows of v where both are defined, and how many rows that was. ok is false
// when the coefficient is undefined.
func PairCorrelation(v *dataset.View, a, b string) (r float64, pairs int, ok bool) {
	xs := make([]float64, 0, v.Len())
	ys := make([]float64, 0, v.Len())
	for rec := range v.Rows() {
		x, okX := rec.Measure(a)
		y, okY := rec.Measure(b)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return 0, len(xs), false
	}
	r = stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0, len(xs), false
	}
	return math.Max(-1, math.Min(1, r)), len(xs), true
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

// ============================================================================
// TRANSPOSE / MELT
// ============================================================================

// Melt produces one (region, indicator, value) row per compare region and
// indicator: regions in the given order, indicators in catalogue order.
// Records come from the whole dataset, independent of any cluster filter.
// With normalize, each indicator is min-max scaled over the dataset.
func Melt(ds *dataset.Dataset, regions, indicators []string, normalize bool) (dataset.Table, error) {
	if len(regions) == 0 {
		return dataset.Table{}, &errs.InsufficientDataError{
			Transform: string(catalogue.TransposeMelt),
			Reason:    "no regions selected for comparison",
		}
	}

	var scale map[string][2]float64
	if normalize {
		scale = ranges(ds, indicators)
	}

	t := dataset.Table{
		Columns: []string{catalogue.MeltRegion, catalogue.MeltIndicator, catalogue.MeltValue},
		Rows:    make([][]any, 0, len(regions)*len(indicators)),
	}
	for _, id := range regions {
		rec, ok := ds.Region(id)
		if !ok {
			return dataset.Table{}, ValidateRegion(ds, id)
		}
		for _, ind := range indicators {
			var cell any
			if val, ok := rec.Measure(ind); ok {
				if normalize {
					val = rescale(val, scale[ind])
				}
				cell = val
			}
			t.Rows = append(t.Rows, []any{id, ind, cell})
		}
	}
	return t, nil
}

func ranges(ds *dataset.Dataset, cols []string) map[string][2]float64 {
	out := make(map[string][2]float64, len(cols))
	for _, c := range cols {
		lo, hi := math.Inf(1), math.Inf(-1)
		for r := range ds.Rows() {
			if v, ok := r.Measure(c); ok {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
		out[c] = [2]float64{lo, hi}
	}
	return out
}

func rescale(v float64, bounds [2]float64) float64 {
	lo, hi := bounds[0], bounds[1]
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}
