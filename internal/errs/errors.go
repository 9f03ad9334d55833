package errs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
)

// Kind classifies a dashboard error for callers that only need the category.
type Kind string

const (
	KindNone             Kind = ""
	KindParse            Kind = "parse"
	KindSchema           Kind = "schema"
	KindNotFound         Kind = "not_found"
	KindUnknownChart     Kind = "unknown_chart"
	KindInsufficientData Kind = "insufficient_data"
	KindInternal         Kind = "internal"
)

// ============================================================================
// Error types
// ============================================================================

// ParseError reports a source value that could not be coerced to its declared type.
type ParseError struct {
	Row    int // 1-based data row, header excluded
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("parse error at row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("parse error at row %d, column %q (value %q): %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a required column that is absent or of the wrong type.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("schema error: column %q is missing", e.Column)
	}
	return fmt.Sprintf("schema error: column %q %s", e.Column, e.Reason)
}

// NotFoundError reports an identifier that does not exist in the dataset.
type NotFoundError struct {
	What       string // "region", "cluster", "numeric column"
	Name       string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.What, e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// UnknownChartError reports a chart id that is not in the catalogue.
type UnknownChartError struct {
	ID         string
	Suggestion string
}

func (e *UnknownChartError) Error() string {
	msg := fmt.Sprintf("unknown chart %q", e.ID)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// InsufficientDataError reports a transform that cannot produce a result from its input.
type InsufficientDataError struct {
	Transform string
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %s", e.Transform, e.Reason)
}

// ============================================================================
// Classification
// ============================================================================

// KindOf returns the taxonomy kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		pe *ParseError
		se *SchemaError
		nf *NotFoundError
		uc *UnknownChartError
		id *InsufficientDataError
	)
	switch {
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &se):
		return KindSchema
	case errors.As(err, &nf):
		return KindNotFound
	case errors.As(err, &uc):
		return KindUnknownChart
	case errors.As(err, &id):
		return KindInsufficientData
	}
	return KindInternal
}

// Recoverable reports whether err should degrade a single chart to an empty
// state rather than fail it.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindInsufficientData, KindUnknownChart:
		return true
	}
	return false
}

// ============================================================================
// Suggestions
// ============================================================================

// maxSuggestDistance bounds how different a candidate may be and still be offered.
const maxSuggestDistance = 3

// Suggest returns the candidate closest to name by edit distance, or "" when
// nothing is close enough. Ties resolve to the lexically smallest candidate.
func Suggest(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDist := "", maxSuggestDistance+1
	for _, c := range sorted {
		if c == name {
			continue
		}
		d := levenshtein.ComputeDistance(name, c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
