package dataset

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

var testSchema = MustSchema([]Column{
	{Name: "state_name", Type: Identifier},
	{Name: "cluster", Type: Categorical},
	{Name: "DCRI", Type: Numeric},
	{Name: "total_startups", Type: Numeric},
})

const testCSV = `state_name,cluster,DCRI,total_startups,notes
Kerala,1,0.9,0.2,coastal
Bihar,2,0.2,0.05,
Karnataka,1,0.85,,tech
Goa,3,NaN,0.1,small
`

func load(t *testing.T, data string, required ...string) *Dataset {
	t.Helper()
	ds, err := Load(context.Background(), CSVReader{R: strings.NewReader(data)}, testSchema, required)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return ds
}

func TestLoadBuildsRecordsInOrder(t *testing.T) {
	ds := load(t, testCSV)

	if ds.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", ds.Len())
	}
	want := []string{"Kerala", "Bihar", "Karnataka", "Goa"}
	for i, id := range ds.Regions() {
		if id != want[i] {
			t.Errorf("region %d: expected %s, got %s", i, want[i], id)
		}
	}

	kerala, ok := ds.Region("Kerala")
	if !ok {
		t.Fatal("Kerala not found")
	}
	if v, ok := kerala.Measure("DCRI"); !ok || v != 0.9 {
		t.Errorf("Kerala DCRI: expected 0.9, got %v (defined=%v)", v, ok)
	}
	if kerala.Dimension("cluster") != "1" {
		t.Errorf("cluster should stay categorical string, got %q", kerala.Dimension("cluster"))
	}
}

func TestLoadMissingValuesAreUndefined(t *testing.T) {
	ds := load(t, testCSV)

	karnataka, _ := ds.Region("Karnataka")
	if _, ok := karnataka.Measure("total_startups"); ok {
		t.Error("empty total_startups should be undefined")
	}
	goa, _ := ds.Region("Goa")
	if _, ok := goa.Measure("DCRI"); ok {
		t.Error("NaN DCRI should be undefined")
	}
	if ds.Cell(goa, "DCRI") != nil {
		t.Error("undefined numeric cell should be nil")
	}
}

func TestLoadInfersUndeclaredColumns(t *testing.T) {
	ds := load(t, testCSV)
	if got := ds.Columns().TypeOf("notes"); got != Categorical {
		t.Errorf("notes: expected categorical, got %q", got)
	}
	names := ds.Columns().Names()
	if names[len(names)-1] != "notes" {
		t.Errorf("undeclared columns should follow declared ones, got %v", names)
	}
}

func TestLoadSchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		required []string
		column   string
	}{
		{"declared column absent", "state_name,cluster,DCRI\nA,1,0.5\n", nil, "total_startups"},
		{"required column absent", "state_name,cluster,DCRI,total_startups\nA,1,0.5,1\n", []string{"literacy_rate"}, "literacy_rate"},
		{"case sensitive match", "state_name,cluster,dcri,total_startups\nA,1,0.5,1\n", nil, "DCRI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), CSVReader{R: strings.NewReader(tt.data)}, testSchema, tt.required)
			var se *errs.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if se.Column != tt.column {
				t.Errorf("expected column %q, got %q", tt.column, se.Column)
			}
		})
	}
}

func TestLoadParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		row  int
	}{
		{"non numeric value", "state_name,cluster,DCRI,total_startups\nA,1,high,1\n", 1},
		{"duplicate identifier", "state_name,cluster,DCRI,total_startups\nA,1,0.1,1\nA,2,0.2,2\n", 2},
		{"empty identifier", "state_name,cluster,DCRI,total_startups\nA,1,0.1,1\n,2,0.2,2\n", 2},
		{"short row", "state_name,cluster,DCRI,total_startups\nA,1,0.1\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), CSVReader{R: strings.NewReader(tt.data)}, testSchema, nil)
			var pe *errs.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if pe.Row != tt.row {
				t.Errorf("expected row %d, got %d", tt.row, pe.Row)
			}
			if errs.KindOf(err) != errs.KindParse {
				t.Errorf("expected kind parse, got %s", errs.KindOf(err))
			}
		})
	}
}

func TestLoadSemicolonFallback(t *testing.T) {
	data := "state_name;cluster;DCRI;total_startups\nKerala;1;0.9;0.2\n"
	ds := load(t, data)
	if ds.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", ds.Len())
	}
}

func TestLoadSemicolonDecimalCommaFails(t *testing.T) {
	data := "state_name;cluster;DCRI;total_startups\nKerala;1;0,9;0.2\nBihar;2;1,234;0.05\n"
	_, err := Load(context.Background(), CSVReader{R: strings.NewReader(data)}, testSchema, nil)

	var pe *errs.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a ParseError, got %v", err)
	}
	if pe.Row != 1 || pe.Column != "DCRI" || pe.Value != "0,9" {
		t.Errorf("unexpected parse error %+v", pe)
	}
}

func TestRowsIsRestartable(t *testing.T) {
	ds := load(t, testCSV)

	count := func() int {
		n := 0
		for range ds.Rows() {
			n++
		}
		return n
	}
	if a, b := count(), count(); a != 4 || b != 4 {
		t.Errorf("expected 4 rows on both passes, got %d and %d", a, b)
	}

	n := 0
	for range ds.Rows() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("early break should stop iteration, got %d", n)
	}
}

func TestDistinctFirstSeenOrder(t *testing.T) {
	ds := load(t, testCSV)
	got := ds.Distinct("cluster")
	want := []string{"1", "2", "3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestViewProject(t *testing.T) {
	ds := load(t, testCSV)
	v := ds.Subset([]int{2, 0})

	tbl := v.Project([]string{"state_name", "DCRI", "total_startups", "missing"})
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Rows[0][0] != "Karnataka" || tbl.Rows[1][0] != "Kerala" {
		t.Errorf("projection should keep view order, got %v", tbl.Rows)
	}
	if tbl.Rows[0][2] != nil {
		t.Errorf("undefined value should project to nil, got %v", tbl.Rows[0][2])
	}
	if tbl.Rows[0][3] != nil {
		t.Errorf("unknown column should project to nil, got %v", tbl.Rows[0][3])
	}
}

func TestNewSchemaValidation(t *testing.T) {
	if _, err := NewSchema([]Column{{Name: "a", Type: Numeric}}); err == nil {
		t.Error("schema without identifier should fail")
	}
	if _, err := NewSchema([]Column{{Name: "id", Type: Identifier}, {Name: "id", Type: Numeric}}); err == nil {
		t.Error("duplicate column should fail")
	}
	if _, err := NewSchema([]Column{{Name: "id", Type: Identifier}, {Name: "x", Type: "date"}}); err == nil {
		t.Error("unknown type should fail")
	}
}

func TestProfile(t *testing.T) {
	ds := load(t, testCSV)
	profiles := Profile(ds.All())

	byName := make(map[string]ColumnProfile)
	for _, p := range profiles {
		byName[p.Column] = p
	}

	dcri := byName["DCRI"]
	if dcri.NonNullRows != 3 || dcri.TotalRows != 4 {
		t.Errorf("DCRI rows: expected 3/4, got %d/%d", dcri.NonNullRows, dcri.TotalRows)
	}
	if math.Abs(dcri.NullRate-0.25) > 1e-9 {
		t.Errorf("DCRI null rate: expected 0.25, got %v", dcri.NullRate)
	}
	if dcri.Stats == nil || dcri.Stats.Median != 0.85 || dcri.Stats.Max != 0.9 || dcri.Stats.Min != 0.2 {
		t.Errorf("unexpected DCRI stats: %+v", dcri.Stats)
	}

	cluster := byName["cluster"]
	if cluster.DistinctCount != 3 || cluster.Stats != nil {
		t.Errorf("cluster profile: %+v", cluster)
	}
}

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ColumnType
	}{
		{"integers", []string{"12", "7"}, Numeric},
		{"floats and exponents", []string{"-0.5", "1e5", "2.5E-3"}, Numeric},
		{"missing ignored", []string{"3", "", "NA"}, Numeric},
		{"text", []string{"1", "abc"}, Categorical},
		{"grouping comma", []string{"1,234"}, Categorical},
		{"out of range", []string{"1", "1e400"}, Categorical},
		{"infinity", []string{"Inf"}, Categorical},
		{"all missing", []string{"", "null"}, Categorical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{v}
			}
			if got := inferColumnType(rows, 0); got != tt.want {
				t.Errorf("inferColumnType(%q) = %s, want %s", tt.values, got, tt.want)
			}
		})
	}
}

func TestLoadUndeclaredOutOfRangeColumnIsCategorical(t *testing.T) {
	data := "state_name,cluster,DCRI,total_startups,reach\nKerala,1,0.9,0.2,1e400\nBihar,2,0.2,0.05,12\n"
	ds := load(t, data)
	if got := ds.Columns().TypeOf("reach"); got != Categorical {
		t.Fatalf("expected reach to be categorical, got %s", got)
	}
	if got := ds.Record(0).Dimension("reach"); got != "1e400" {
		t.Errorf("expected the raw value to be kept, got %q", got)
	}
}

func TestBuildDoesNotModifyHeader(t *testing.T) {
	header := []string{" state_name", "cluster ", "DCRI", "total_startups"}
	rows := [][]string{{"Kerala", "1", "0.9", "0.2"}}
	if _, err := Build(header, rows, testSchema, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if header[0] != " state_name" || header[1] != "cluster " {
		t.Errorf("caller header was modified: %q", header)
	}
}

func TestProfileMedianEvenCount(t *testing.T) {
	data := "state_name,cluster,DCRI,total_startups\nKerala,1,0.9,0.2\nBihar,2,0.2,0.05\nKarnataka,1,0.8,0.4\nGoa,3,0.4,0.1\n"
	for _, p := range Profile(load(t, data).All()) {
		if p.Column == "DCRI" && (p.Stats == nil || math.Abs(p.Stats.Median-0.6) > 1e-9) {
			t.Errorf("expected the mean of the two middle values, got %+v", p.Stats)
		}
	}
}
