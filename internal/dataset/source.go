package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

// Source produces a header and raw rows for Load.
type Source interface {
	Read(ctx context.Context) (header []string, rows [][]string, err error)
}

// ============================================================================
// CSV
// ============================================================================

// CSVFile reads a delimited file from disk.
type CSVFile struct {
	Path string
}

func (s CSVFile) Read(ctx context.Context) ([]string, [][]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, nil, err
	}
	return parseDelimited(ctx, data)
}

func (s CSVFile) String() string { return s.Path }

// CSVReader reads delimited data from any reader.
type CSVReader struct {
	R io.Reader
}

func (s CSVReader) Read(ctx context.Context) ([]string, [][]string, error) {
	data, err := io.ReadAll(s.R)
	if err != nil {
		return nil, nil, err
	}
	return parseDelimited(ctx, data)
}

// parseDelimited reads comma-separated data, falling back to semicolons when
// the header is a single field that contains one.
func parseDelimited(ctx context.Context, data []byte) ([]string, [][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	header, rows, err := readAll(ctx, data, ',')
	if err != nil {
		return nil, nil, err
	}
	if len(header) == 1 && strings.Contains(header[0], ";") {
		return readAll(ctx, data, ';')
	}
	return header, rows, nil
}

func readAll(ctx context.Context, data []byte, comma rune) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1 // field counts are checked by Build
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty source: no header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read headers: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &errs.ParseError{Row: len(rows) + 1, Err: err}
		}
		if isBlankRow(record) {
			continue
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

func isBlankRow(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
