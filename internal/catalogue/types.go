package catalogue

// Kind is the visual form of a chart.
type Kind string

const (
	Choropleth Kind = "choropleth"
	Scatter2D  Kind = "scatter2d"
	Scatter3D  Kind = "scatter3d"
	Bar        Kind = "bar"
	Boxplot    Kind = "boxplot"
	Heatmap    Kind = "heatmap"
	Radar      Kind = "radar"
	Table      Kind = "table"
)

var kinds = map[Kind]bool{
	Choropleth: true, Scatter2D: true, Scatter3D: true, Bar: true,
	Boxplot: true, Heatmap: true, Radar: true, Table: true,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return kinds[k] }

// Transform names the derivation applied to the filtered view before rendering.
type Transform string

const (
	None              Transform = "none"
	TopN              Transform = "topN"
	CorrelationMatrix Transform = "correlationMatrix"
	TransposeMelt     Transform = "transposeMelt"
	Threshold         Transform = "threshold"
)

var transforms = map[Transform]bool{
	None: true, TopN: true, CorrelationMatrix: true, TransposeMelt: true, Threshold: true,
}

// Valid reports whether t is a known transform.
func (t Transform) Valid() bool { return transforms[t] }

// Scope controls whether an entry honours FilterState.SelectedRegion.
type Scope string

const (
	ScopeAll    Scope = "all"
	ScopeRegion Scope = "region"
)

// MetricPlaceholder in a role or parameter is bound to the selected metric at resolve time.
const MetricPlaceholder = "$metric"

// Columns produced by the transposeMelt transform.
const (
	MeltRegion    = "region"
	MeltIndicator = "indicator"
	MeltValue     = "value"
)

// CorrelationLabel is the row-label column of a correlation matrix table.
const CorrelationLabel = "column"

// Binding maps a visual role (x, y, color, ...) to a column.
type Binding struct {
	Role   string `json:"role" yaml:"role"`
	Column string `json:"column" yaml:"column"`
}

// Condition is a numeric predicate used by the threshold transform.
type Condition struct {
	Column   string  `json:"column" yaml:"column"`
	Operator string  `json:"operator" yaml:"operator"` // gt, gte, lt, lte, eq
	Value    float64 `json:"value" yaml:"value"`
}

// Operators accepted in a Condition.
var Operators = map[string]bool{"gt": true, "gte": true, "lt": true, "lte": true, "eq": true}

// Params carry per-transform configuration.
type Params struct {
	N          int         `json:"n,omitempty" yaml:"n,omitempty"`
	SortColumn string      `json:"sort_column,omitempty" yaml:"sort_column,omitempty"`
	Exclude    []string    `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Indicators []string    `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	Normalize  bool        `json:"normalize,omitempty" yaml:"normalize,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Columns    []string    `json:"columns,omitempty" yaml:"columns,omitempty"` // extra pass-through columns
}

// ChartSpec is one declarative catalogue entry.
type ChartSpec struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        Kind      `json:"kind" yaml:"kind"`
	Roles       []Binding `json:"roles" yaml:"roles"`
	Transform   Transform `json:"transform" yaml:"transform"`
	Params      Params    `json:"params" yaml:"params"`
	Since       int       `json:"since" yaml:"since"`
	Scope       Scope     `json:"scope" yaml:"scope"`
}

// Role returns the column bound to role, or "".
func (c ChartSpec) Role(role string) string {
	for _, b := range c.Roles {
		if b.Role == role {
			return b.Column
		}
	}
	return ""
}

// UsesMetric reports whether the entry depends on the selected metric.
func (c ChartSpec) UsesMetric() bool {
	for _, b := range c.Roles {
		if b.Column == MetricPlaceholder {
			return true
		}
	}
	return c.Params.SortColumn == MetricPlaceholder
}
