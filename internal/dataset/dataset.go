package dataset

import (
	"iter"
)

// ============================================================================
// Record
// ============================================================================

// Record is one region. Identifier and categorical values live in
// Dimensions; numeric values in Measures. A missing value is absent from its
// map. Records handed out by a Dataset must be treated as read-only.
type Record struct {
	ID         string
	Dimensions map[string]string
	Measures   map[string]float64
}

// Measure returns a numeric value and whether it is defined.
func (r Record) Measure(col string) (float64, bool) {
	v, ok := r.Measures[col]
	return v, ok
}

// Dimension returns a string value, or "" when undefined.
func (r Record) Dimension(col string) string {
	return r.Dimensions[col]
}

// ============================================================================
// Dataset
// ============================================================================

// Dataset is an immutable, ordered table of regions. It is safe to share
// across goroutines once built.
type Dataset struct {
	schema  Schema
	records []Record
	byID    map[string]int
}

// Columns returns the dataset schema.
func (d *Dataset) Columns() Schema { return d.schema }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Record returns the i-th record in load order.
func (d *Dataset) Record(i int) Record { return d.records[i] }

// Rows returns a lazy, restartable sequence over all records in load order.
func (d *Dataset) Rows() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range d.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Region looks a record up by identifier.
func (d *Dataset) Region(id string) (Record, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Record{}, false
	}
	return d.records[i], true
}

// IndexOf returns the load-order position of a region.
func (d *Dataset) IndexOf(id string) (int, bool) {
	i, ok := d.byID[id]
	return i, ok
}

// Regions returns every identifier in load order.
func (d *Dataset) Regions() []string {
	ids := make([]string, len(d.records))
	for i, r := range d.records {
		ids[i] = r.ID
	}
	return ids
}

// Distinct returns the distinct defined values of a dimension in first-seen order.
func (d *Dataset) Distinct(col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.records {
		v := r.Dimensions[col]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// All returns a view over every record.
func (d *Dataset) All() *View {
	idx := make([]int, len(d.records))
	for i := range idx {
		idx[i] = i
	}
	return &View{ds: d, indices: idx}
}

// Subset returns a view over the given record positions. The slice is retained.
func (d *Dataset) Subset(indices []int) *View {
	return &View{ds: d, indices: indices}
}

// ============================================================================
// View
// ============================================================================

// View is a filtered, ordered subset of a Dataset. It holds positions into
// the parent; no record data is copied.
type View struct {
	ds      *Dataset
	indices []int
}

// Dataset returns the parent dataset.
func (v *View) Dataset() *Dataset { return v.ds }

// Len returns the number of records in the view.
func (v *View) Len() int { return len(v.indices) }

// Record returns the i-th record of the view.
func (v *View) Record(i int) Record { return v.ds.records[v.indices[i]] }

// Position returns the parent position of the i-th record.
func (v *View) Position(i int) int { return v.indices[i] }

// Rows returns a lazy, restartable sequence over the view.
func (v *View) Rows() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, i := range v.indices {
			if !yield(v.ds.records[i]) {
				return
			}
		}
	}
}

// Project materializes the view as a table with the given columns.
// Unknown columns and undefined values become nil cells.
func (v *View) Project(cols []string) Table {
	t := Table{
		Columns: append([]string(nil), cols...),
		Rows:    make([][]any, 0, v.Len()),
	}
	for r := range v.Rows() {
		t.Rows = append(t.Rows, v.ds.cells(r, cols))
	}
	return t
}

func (d *Dataset) cells(r Record, cols []string) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = d.Cell(r, c)
	}
	return row
}

// Cell returns the typed value of a column for a record: string for
// identifier and categorical columns, float64 for numeric ones, nil when
// undefined or unknown.
func (d *Dataset) Cell(r Record, col string) any {
	switch d.schema.TypeOf(col) {
	case Identifier:
		return r.ID
	case Categorical:
		if v, ok := r.Dimensions[col]; ok && v != "" {
			return v
		}
	case Numeric:
		if v, ok := r.Measures[col]; ok {
			return v
		}
	}
	return nil
}

// ============================================================================
// Table
// ============================================================================

// Table is a materialized, renderer-ready tabular result. Cells are string,
// float64, or nil for undefined.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnIndex returns the position of a column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has the named column.
func (t Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }
