package dataset

import (
	"strings"
)

// missingTokens are raw values treated as undefined.
var missingTokens = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"nan":  true,
	"n/a":  true,
	"na":   true,
}

func isMissing(raw string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(raw))]
}

// inferColumnType classifies an undeclared column: numeric when every defined
// value passes the coercion Build applies, categorical otherwise. A column
// with no defined values is categorical.
func inferColumnType(rows [][]string, colIdx int) ColumnType {
	seen := 0
	for _, row := range rows {
		if colIdx >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[colIdx])
		if isMissing(val) {
			continue
		}
		if _, err := parseNumber(val); err != nil {
			return Categorical
		}
		seen++
	}
	if seen == 0 {
		return Categorical
	}
	return Numeric
}
