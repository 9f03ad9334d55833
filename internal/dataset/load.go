package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

var (
	errFieldCount   = errors.New("wrong number of fields")
	errEmptyID      = errors.New("empty identifier")
	errDuplicateID  = errors.New("duplicate identifier")
	errNotNumeric   = errors.New("not a number")
	errNotFiniteNum = errors.New("not a finite number")
)

// Load reads a source and builds an immutable Dataset.
//
// decl declares the expected columns; every declared column and every name in
// required must be present in the header (exact, case-sensitive match) or a
// SchemaError is returned. Header columns that are not declared are kept
// with an inferred type. Values that cannot be coerced to their declared
// type fail the load with a ParseError; there is no partial dataset.
func Load(ctx context.Context, src Source, decl Schema, required []string) (*Dataset, error) {
	header, rows, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read dataset source: %w", err)
	}
	return Build(header, rows, decl, required)
}

// Build constructs a Dataset from a header and raw string rows.
func Build(header []string, rows [][]string, decl Schema, required []string) (*Dataset, error) {
	header = slices.Clone(header)
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		if h == "" {
			continue
		}
		if _, dup := pos[h]; dup {
			return nil, &errs.SchemaError{Column: h, Reason: "appears more than once in the header"}
		}
		pos[h] = i
	}

	for _, c := range decl.Columns() {
		if _, ok := pos[c.Name]; !ok {
			return nil, &errs.SchemaError{Column: c.Name}
		}
	}
	for _, name := range required {
		if _, ok := pos[name]; !ok {
			return nil, &errs.SchemaError{Column: name}
		}
	}

	// Declared columns keep their declared order; extras follow in header order.
	cols := decl.Columns()
	for i, h := range header {
		if decl.Has(h) || h == "" {
			continue
		}
		cols = append(cols, Column{Name: h, Type: inferColumnType(rows, i)})
	}
	schema, err := NewSchema(cols)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		schema:  schema,
		records: make([]Record, 0, len(rows)),
		byID:    make(map[string]int, len(rows)),
	}
	idCol := schema.Identifier()

	for n, row := range rows {
		rowNum := n + 1
		if len(row) != len(header) {
			return nil, &errs.ParseError{
				Row: rowNum,
				Err: fmt.Errorf("%w: expected %d, got %d", errFieldCount, len(header), len(row)),
			}
		}

		rec := Record{
			Dimensions: make(map[string]string),
			Measures:   make(map[string]float64),
		}
		for _, c := range schema.columns {
			raw := strings.TrimSpace(row[pos[c.Name]])
			switch c.Type {
			case Identifier:
				if isMissing(raw) {
					return nil, &errs.ParseError{Row: rowNum, Column: c.Name, Value: raw, Err: errEmptyID}
				}
				rec.ID = raw
				rec.Dimensions[c.Name] = raw
			case Categorical:
				if !isMissing(raw) {
					rec.Dimensions[c.Name] = raw
				}
			case Numeric:
				if isMissing(raw) {
					continue
				}
				v, err := parseNumber(raw)
				if err != nil {
					return nil, &errs.ParseError{Row: rowNum, Column: c.Name, Value: raw, Err: err}
				}
				rec.Measures[c.Name] = v
			}
		}

		if _, dup := ds.byID[rec.ID]; dup {
			return nil, &errs.ParseError{Row: rowNum, Column: idCol, Value: rec.ID, Err: errDuplicateID}
		}
		ds.byID[rec.ID] = len(ds.records)
		ds.records = append(ds.records, rec)
	}

	return ds, nil
}

// parseNumber accepts exactly what strconv.ParseFloat does, minus NaN and
// infinities. Grouping or decimal commas are rejected.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotNumeric
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFiniteNum
	}
	return v, nil
}
