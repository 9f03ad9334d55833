package dataset

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnProfile summarizes completeness and spread of one column over a view.
type ColumnProfile struct {
	Column          string        `json:"column"`
	Type            ColumnType    `json:"type"`
	TotalRows       int           `json:"total_rows"`
	NonNullRows     int           `json:"non_null_rows"`
	NullRate        float64       `json:"null_rate"`
	DistinctCount   int           `json:"distinct_count"`
	UniquenessRatio float64       `json:"uniqueness_ratio"`
	Stats           *NumericStats `json:"stats,omitempty"`
}

// NumericStats are descriptive statistics over the defined values of a numeric column.
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Profile computes a ColumnProfile for every schema column over v.
func Profile(v *View) []ColumnProfile {
	schema := v.Dataset().Columns()
	profiles := make([]ColumnProfile, 0, schema.Len())
	for _, c := range schema.Columns() {
		profiles = append(profiles, profileColumn(v, c))
	}
	return profiles
}

func profileColumn(v *View, c Column) ColumnProfile {
	p := ColumnProfile{
		Column:    c.Name,
		Type:      c.Type,
		TotalRows: v.Len(),
	}

	distinct := make(map[string]bool)
	var values []float64
	ds := v.Dataset()

	for r := range v.Rows() {
		switch cell := ds.Cell(r, c.Name).(type) {
		case string:
			p.NonNullRows++
			distinct[cell] = true
		case float64:
			p.NonNullRows++
			values = append(values, cell)
		}
	}

	if c.Type == Numeric {
		seen := make(map[float64]bool, len(values))
		for _, x := range values {
			seen[x] = true
		}
		p.DistinctCount = len(seen)
	} else {
		p.DistinctCount = len(distinct)
	}

	if p.TotalRows > 0 {
		p.NullRate = float64(p.TotalRows-p.NonNullRows) / float64(p.TotalRows)
	}
	if p.NonNullRows > 0 {
		p.UniquenessRatio = float64(p.DistinctCount) / float64(p.NonNullRows)
	}
	if len(values) > 0 {
		p.Stats = describe(values)
	}
	return p
}

func describe(values []float64) *NumericStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := &NumericStats{
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: median(sorted),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// median expects sorted input. Even counts average the two middle values;
// stat.Quantile would return the lower one.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
