package dataset

import (
	"fmt"
)

// ColumnType is the semantic type of a dataset column.
type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
	Identifier  ColumnType = "identifier"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case Numeric, Categorical, Identifier:
		return true
	}
	return false
}

// Column names a column and its semantic type.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// Schema is an ordered, immutable set of columns with exactly one identifier.
type Schema struct {
	columns []Column
	index   map[string]int
	id      string
}

// NewSchema validates cols and builds a Schema. Column names are case-sensitive.
func NewSchema(cols []Column) (Schema, error) {
	s := Schema{
		columns: make([]Column, 0, len(cols)),
		index:   make(map[string]int, len(cols)),
	}
	for _, c := range cols {
		if c.Name == "" {
			return Schema{}, fmt.Errorf("schema: column with empty name")
		}
		if !c.Type.Valid() {
			return Schema{}, fmt.Errorf("schema: column %q has unknown type %q", c.Name, c.Type)
		}
		if _, dup := s.index[c.Name]; dup {
			return Schema{}, fmt.Errorf("schema: column %q declared twice", c.Name)
		}
		if c.Type == Identifier {
			if s.id != "" {
				return Schema{}, fmt.Errorf("schema: both %q and %q are identifiers", s.id, c.Name)
			}
			s.id = c.Name
		}
		s.index[c.Name] = len(s.columns)
		s.columns = append(s.columns, c)
	}
	if s.id == "" {
		return Schema{}, fmt.Errorf("schema: no identifier column declared")
	}
	return s, nil
}

// MustSchema is NewSchema for static declarations; it panics on error.
func MustSchema(cols []Column) Schema {
	s, err := NewSchema(cols)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns a copy of the ordered column list.
func (s Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// Names returns column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the named column.
func (s Schema) Lookup(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Has reports whether the schema contains the named column.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// TypeOf returns the type of the named column, or "" if absent.
func (s Schema) TypeOf(name string) ColumnType {
	c, _ := s.Lookup(name)
	return c.Type
}

// Identifier returns the identifier column name.
func (s Schema) Identifier() string { return s.id }

// NumericColumns returns numeric column names in schema order.
func (s Schema) NumericColumns() []string {
	var out []string
	for _, c := range s.columns {
		if c.Type == Numeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.columns) }
