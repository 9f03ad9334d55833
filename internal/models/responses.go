package models

import (
	"github.com/anjumanuel/digital-commerce-readiness/internal/catalogue"
	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error      string    `json:"error"`
	Kind       errs.Kind `json:"kind,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// DatasetInfo is returned by /api/dataset
type DatasetInfo struct {
	Source         string           `json:"source"`
	Identifier     string           `json:"identifier"`
	Rows           int              `json:"rows"`
	Columns        []dataset.Column `json:"columns"`
	Regions        []string         `json:"regions"`
	Clusters       []string         `json:"clusters"`
	NumericColumns []string         `json:"numeric_columns"`
}

// ChartsResponse is returned by /api/charts
type ChartsResponse struct {
	Version int                   `json:"version"`
	Latest  int                   `json:"latest"`
	Charts  []catalogue.ChartSpec `json:"charts"`
}

// ResolveRequest is the body of the stateless /api/resolve endpoint.
// Missing filters mean the session defaults.
type ResolveRequest struct {
	ChartID string              `json:"chart_id"`
	Filters *engine.FilterState `json:"filters,omitempty"`
}

// CreateSessionRequest optionally overrides the default selections
type CreateSessionRequest struct {
	Compare []string `json:"compare,omitempty"`
	Metric  string   `json:"metric,omitempty"`
}

// Filter event bodies
type ClustersRequest struct {
	Clusters []string `json:"clusters"`
}

type RegionRequest struct {
	Region string `json:"region"`
}

type CompareRequest struct {
	Regions []string `json:"regions"`
}

type MetricRequest struct {
	Metric string `json:"metric"`
}

// DashboardResponse carries one outcome per chart of the requested version
type DashboardResponse struct {
	SessionID string             `json:"session_id"`
	Version   int                `json:"version"`
	Filters   engine.FilterState `json:"filters"`
	Charts    []engine.Outcome   `json:"charts"`
}

// KPI summarises one numeric column over the filtered view
type KPI struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Avg     float64 `json:"avg"`
	Defined int     `json:"defined"`
	Type    string  `json:"type"`
}

// CorrelationResult represents correlation between column pair
type CorrelationResult struct {
	Column1        string   `json:"column1"`
	Column2        string   `json:"column2"`
	Correlation    *float64 `json:"correlation"`
	Pairs          int      `json:"pairs"`
	Interpretation string   `json:"interpretation"`
}
