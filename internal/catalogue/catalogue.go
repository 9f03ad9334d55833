package catalogue

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

//go:embed catalogue.yaml
var defaultYAML []byte

// AllColumns in Params.Columns expands to every column of the dataset.
const AllColumns = "*"

// ============================================================================
// Catalogue
// ============================================================================

// Catalogue is the static, versioned list of chart entries plus the column
// schema they are written against. It is never mutated after Load.
type Catalogue struct {
	version       int
	schema        dataset.Schema
	clusterColumn string
	entries       []ChartSpec
	index         map[string]int
}

type document struct {
	Version       int              `yaml:"version"`
	ClusterColumn string           `yaml:"cluster_column"`
	Schema        []dataset.Column `yaml:"schema"`
	Charts        []ChartSpec      `yaml:"charts"`
}

// Default returns the built-in catalogue.
func Default() (*Catalogue, error) {
	return Load(bytes.NewReader(defaultYAML))
}

// LoadFile reads a catalogue from a YAML file.
func LoadFile(path string) (*Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a YAML catalogue.
func Load(r io.Reader) (*Catalogue, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	schema, err := dataset.NewSchema(doc.Schema)
	if err != nil {
		return nil, fmt.Errorf("catalogue %w", err)
	}

	c := &Catalogue{
		version:       doc.Version,
		schema:        schema,
		clusterColumn: doc.ClusterColumn,
		entries:       make([]ChartSpec, 0, len(doc.Charts)),
		index:         make(map[string]int, len(doc.Charts)),
	}
	for _, e := range doc.Charts {
		if e.Scope == "" {
			e.Scope = ScopeAll
		}
		if e.Transform == "" {
			e.Transform = None
		}
		if e.Since == 0 {
			e.Since = 1
		}
		if _, dup := c.index[e.ID]; dup {
			return nil, fmt.Errorf("catalogue: chart %q declared twice", e.ID)
		}
		c.index[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Version is the latest catalogue version.
func (c *Catalogue) Version() int { return c.version }

// Schema is the declared dataset schema.
func (c *Catalogue) Schema() dataset.Schema { return c.schema }

// ClusterColumn names the categorical column the cluster filter applies to.
func (c *Catalogue) ClusterColumn() string { return c.clusterColumn }

// Lookup returns the entry with the given id.
func (c *Catalogue) Lookup(id string) (ChartSpec, error) {
	i, ok := c.index[id]
	if !ok {
		return ChartSpec{}, &errs.UnknownChartError{ID: id, Suggestion: errs.Suggest(id, c.IDs())}
	}
	return c.entries[i], nil
}

// IDs returns every entry id in catalogue order.
func (c *Catalogue) IDs() []string {
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.ID
	}
	return ids
}

// Entries returns the entries available in the given version, in catalogue
// order. A version <= 0 means the latest.
func (c *Catalogue) Entries(version int) []ChartSpec {
	if version <= 0 {
		version = c.version
	}
	out := make([]ChartSpec, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Since <= version {
			out = append(out, e)
		}
	}
	return out
}

// ReferencedColumns returns every concrete dataset column any entry names,
// in first-reference order. Placeholders and transform outputs are skipped.
func (c *Catalogue) ReferencedColumns() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(col string) {
		if col == "" || seen[col] || !c.schema.Has(col) {
			return
		}
		seen[col] = true
		out = append(out, col)
	}
	if c.clusterColumn != "" {
		add(c.clusterColumn)
	}
	add(c.schema.Identifier())
	for _, e := range c.entries {
		for _, b := range e.Roles {
			add(b.Column)
		}
		add(e.Params.SortColumn)
		for _, col := range e.Params.Indicators {
			add(col)
		}
		for _, col := range e.Params.Columns {
			add(col)
		}
		for _, cond := range e.Params.Conditions {
			add(cond.Column)
		}
	}
	return out
}

// ============================================================================
// Validation
// ============================================================================

// Validate checks every entry against the declared schema.
func (c *Catalogue) Validate() error {
	if c.version < 1 {
		return fmt.Errorf("catalogue: version must be >= 1, got %d", c.version)
	}
	if c.clusterColumn != "" && c.schema.TypeOf(c.clusterColumn) != dataset.Categorical {
		return fmt.Errorf("catalogue: cluster column %q must be declared categorical", c.clusterColumn)
	}
	for _, e := range c.entries {
		if err := c.validateEntry(e); err != nil {
			return fmt.Errorf("catalogue: chart %q: %w", e.ID, err)
		}
	}
	return nil
}

func (c *Catalogue) validateEntry(e ChartSpec) error {
	if e.ID == "" {
		return fmt.Errorf("empty id")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if !e.Transform.Valid() {
		return fmt.Errorf("unknown transform %q", e.Transform)
	}
	if e.Scope != ScopeAll && e.Scope != ScopeRegion {
		return fmt.Errorf("unknown scope %q", e.Scope)
	}
	if e.Since < 1 || e.Since > c.version {
		return fmt.Errorf("since %d outside 1..%d", e.Since, c.version)
	}
	if len(e.Roles) == 0 {
		return fmt.Errorf("no roles")
	}

	p := e.Params
	switch e.Transform {
	case TopN:
		if p.N <= 0 {
			return fmt.Errorf("topN needs n > 0")
		}
		if err := c.requireNumeric(p.SortColumn, true); err != nil {
			return fmt.Errorf("sort_column: %w", err)
		}
	case TransposeMelt:
		if len(p.Indicators) == 0 {
			return fmt.Errorf("transposeMelt needs indicators")
		}
		for _, col := range p.Indicators {
			if err := c.requireNumeric(col, false); err != nil {
				return fmt.Errorf("indicator: %w", err)
			}
		}
	case Threshold:
		if len(p.Conditions) == 0 {
			return fmt.Errorf("threshold needs conditions")
		}
		for _, cond := range p.Conditions {
			if !Operators[cond.Operator] {
				return fmt.Errorf("unknown operator %q", cond.Operator)
			}
			if err := c.requireNumeric(cond.Column, false); err != nil {
				return fmt.Errorf("condition: %w", err)
			}
		}
	case CorrelationMatrix:
		for _, col := range p.Exclude {
			if !c.schema.Has(col) {
				return fmt.Errorf("exclude: unknown column %q", col)
			}
		}
	}

	for _, col := range p.Columns {
		if col != AllColumns && !c.schema.Has(col) {
			return fmt.Errorf("columns: unknown column %q", col)
		}
	}
	for _, b := range e.Roles {
		if b.Role == "" {
			return fmt.Errorf("role with empty name")
		}
		if !c.roleColumnKnown(e.Transform, b.Column) {
			return fmt.Errorf("role %s: unknown column %q", b.Role, b.Column)
		}
	}
	return nil
}

func (c *Catalogue) requireNumeric(col string, allowMetric bool) error {
	if allowMetric && col == MetricPlaceholder {
		return nil
	}
	switch c.schema.TypeOf(col) {
	case dataset.Numeric:
		return nil
	case "":
		return fmt.Errorf("unknown column %q", col)
	default:
		return fmt.Errorf("column %q is not numeric", col)
	}
}

func (c *Catalogue) roleColumnKnown(t Transform, col string) bool {
	switch t {
	case TransposeMelt:
		return col == MeltRegion || col == MeltIndicator || col == MeltValue
	case CorrelationMatrix:
		return col == CorrelationLabel || c.schema.TypeOf(col) == dataset.Numeric
	}
	return col == MetricPlaceholder || c.schema.Has(col)
}
