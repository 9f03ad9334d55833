package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/anjumanuel/digital-commerce-readiness/internal/catalogue"
	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
	"github.com/anjumanuel/digital-commerce-readiness/internal/models"
	"github.com/anjumanuel/digital-commerce-readiness/internal/state"
)

const statesCSV = `state_name,cluster,DCRI,population,total_startups,msmes_per_1000_pop,pmjdy_accounts_per_1000_pop,rupay_cards_per_account,avg_balance_per_account,literacy_rate,enrollment_per_1000_pop,broadband_rural
Kerala,1,0.9,35,0.2,40,300,0.7,3000,94,180,0.6
Bihar,2,0.2,120,0.05,10,500,0.5,1500,61,150,0.1
Karnataka,1,0.85,65,0.9,50,350,0.6,4000,75,170,0.5
Goa,3,0.7,1.5,0.1,,250,0.8,6000,88,160,0.7
Punjab,3,0.5,28,0.3,30,320,0.6,3500,76,165,0.4
Assam,2,0.5,31,0.08,15,450,0.55,1800,72,155,0.2
`

func newServer(t *testing.T) http.Handler {
	t.Helper()
	cat, err := catalogue.Default()
	if err != nil {
		t.Fatalf("catalogue: %v", err)
	}
	ds, err := dataset.Load(context.Background(), dataset.CSVReader{R: strings.NewReader(statesCSV)}, cat.Schema(), cat.ReferencedColumns())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := engine.NewDispatcher(ds, cat, zerolog.Nop())
	sessions := state.NewStore(d.Validate)
	h := NewHandler(d, sessions, Defaults{Metric: "DCRI"}, "test.csv", zerolog.Nop())

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	var req *http.Request
	if reader != nil {
		req = httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (%s)", v, err, rec.Body.String())
	}
	return v
}

func createSession(t *testing.T, srv http.Handler) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	return decode[state.Session](t, rec).ID
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestGetDataset(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/api/dataset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	info := decode[models.DatasetInfo](t, rec)
	if info.Rows != 6 || info.Identifier != "state_name" || info.Source != "test.csv" {
		t.Errorf("unexpected info %+v", info)
	}
	if len(info.Clusters) != 3 || len(info.NumericColumns) != 10 {
		t.Errorf("unexpected clusters %v / numeric %v", info.Clusters, info.NumericColumns)
	}
}

func TestGetProfile(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/api/dataset/profile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	profiles := decode[[]dataset.ColumnProfile](t, rec)
	if len(profiles) != 12 {
		t.Errorf("expected 12 column profiles, got %d", len(profiles))
	}
}

func TestListCharts(t *testing.T) {
	srv := newServer(t)
	tests := []struct {
		query  string
		status int
		count  int
	}{
		{"", http.StatusOK, 12},
		{"?version=1", http.StatusOK, 6},
		{"?version=3", http.StatusOK, 10},
		{"?version=9", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		rec := do(t, srv, http.MethodGet, "/api/charts"+tt.query, nil)
		if rec.Code != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.query, tt.status, rec.Code)
			continue
		}
		if tt.status == http.StatusOK {
			if got := len(decode[models.ChartsResponse](t, rec).Charts); got != tt.count {
				t.Errorf("%s: expected %d charts, got %d", tt.query, tt.count, got)
			}
		}
	}
}

func TestGetCorrelation(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/correlation?col1=DCRI&col2=literacy_rate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[models.CorrelationResult](t, rec)
	if res.Correlation == nil || res.Pairs != 6 {
		t.Errorf("unexpected result %+v", res)
	}

	rec = do(t, srv, http.MethodGet, "/api/correlation?col1=DCRI&col2=cluster", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("categorical column should be rejected, got %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/correlation?col1=DCRI", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing col2 should be 400, got %d", rec.Code)
	}
}

func TestStatelessResolve(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/resolve", models.ResolveRequest{ChartID: "top10_dcri"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	out := decode[engine.Outcome](t, rec)
	if out.Status != engine.StatusOK || out.Spec == nil || out.Spec.Data.Len() != 6 {
		t.Errorf("unexpected outcome %+v", out)
	}

	fs := engine.FilterState{SelectedClusters: []string{"1"}, SelectedMetric: "DCRI"}
	rec = do(t, srv, http.MethodPost, "/api/resolve", models.ResolveRequest{ChartID: "top10_dcri", Filters: &fs})
	if out := decode[engine.Outcome](t, rec); out.Spec == nil || out.Spec.Data.Len() != 2 {
		t.Errorf("expected 2 rows for cluster 1, got %+v", out)
	}

	rec = do(t, srv, http.MethodPost, "/api/resolve", models.ResolveRequest{ChartID: "top10_dcr"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown chart should be 404, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/resolve", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing chart_id should be 400, got %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get session: %d", rec.Code)
	}
	sess := decode[state.Session](t, rec)
	if sess.Filters.SelectedMetric != "DCRI" || len(sess.Filters.SelectedClusters) != 3 {
		t.Errorf("unexpected defaults %+v", sess.Filters)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/sessions/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("deleted session should be 404, got %d", rec.Code)
	}
}

func TestCreateSessionWithOverrides(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/sessions", models.CreateSessionRequest{Compare: []string{"Goa"}, Metric: "literacy_rate"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	sess := decode[state.Session](t, rec)
	if sess.Filters.SelectedMetric != "literacy_rate" || sess.Filters.CompareRegions[0] != "Goa" {
		t.Errorf("overrides ignored: %+v", sess.Filters)
	}

	rec = do(t, srv, http.MethodPost, "/api/sessions", models.CreateSessionRequest{Metric: "cluster"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("categorical metric should be 422, got %d", rec.Code)
	}
}

func TestFilterEvents(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		kind   errs.Kind
	}{
		{"clusters", "/clusters", models.ClustersRequest{Clusters: []string{"1"}}, http.StatusOK, ""},
		{"unknown cluster", "/clusters", models.ClustersRequest{Clusters: []string{"5"}}, http.StatusUnprocessableEntity, errs.KindNotFound},
		{"region", "/region", models.RegionRequest{Region: "Kerala"}, http.StatusOK, ""},
		{"unknown region", "/region", models.RegionRequest{Region: "Kerela"}, http.StatusUnprocessableEntity, errs.KindNotFound},
		{"compare", "/compare", models.CompareRequest{Regions: []string{"Goa", "Assam"}}, http.StatusOK, ""},
		{"metric", "/metric", models.MetricRequest{Metric: "broadband_rural"}, http.StatusOK, ""},
		{"non-numeric metric", "/metric", models.MetricRequest{Metric: "state_name"}, http.StatusUnprocessableEntity, errs.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPut, "/api/sessions/"+id+tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.kind != "" {
				if got := decode[models.ErrorResponse](t, rec); got.Kind != tt.kind {
					t.Errorf("expected kind %s, got %+v", tt.kind, got)
				}
			}
		})
	}

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
	fs := decode[state.Session](t, rec).Filters
	if fs.SelectedRegion != "Kerala" || fs.SelectedMetric != "broadband_rural" || len(fs.CompareRegions) != 2 {
		t.Errorf("unexpected final filters %+v", fs)
	}

	rec = do(t, srv, http.MethodPut, "/api/sessions/"+id+"/region", models.RegionRequest{Region: "Kerela"})
	if got := decode[models.ErrorResponse](t, rec); got.Suggestion != "Kerala" {
		t.Errorf("expected a suggestion, got %+v", got)
	}

	rec = do(t, srv, http.MethodPut, "/api/sessions/missing/region", models.RegionRequest{Region: "Goa"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session should be 404, got %d", rec.Code)
	}
}

func TestGetChart(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id+"/charts/outliers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	out := decode[engine.Outcome](t, rec)
	if out.Spec == nil || out.Spec.Data.Len() != 2 {
		t.Errorf("expected the two outlier states, got %+v", out)
	}

	// A region-scoped chart without a region is an explanatory empty state.
	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/charts/state_profile", nil)
	out = decode[engine.Outcome](t, rec)
	if rec.Code != http.StatusOK || out.Status != engine.StatusEmpty || out.Reason != errs.KindInsufficientData {
		t.Errorf("unexpected outcome %d %+v", rec.Code, out)
	}

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/charts/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown chart should be 404, got %d", rec.Code)
	}
}

func TestGetChartPNG(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id+"/charts/top10_dcri/png?width=400&height=300", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/png" || !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Errorf("expected a PNG body")
	}

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/charts/state_radar/png", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("radar has no PNG renderer, expected 422 got %d", rec.Code)
	}

	do(t, srv, http.MethodPut, "/api/sessions/"+id+"/clusters", models.ClustersRequest{Clusters: []string{}})
	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/charts/msme_vs_startups/png", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty chart should be 422, got %d", rec.Code)
	}
}

func TestGetDashboard(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id+"/dashboard?version=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	resp := decode[models.DashboardResponse](t, rec)
	if resp.Version != 1 || len(resp.Charts) != 6 {
		t.Fatalf("unexpected dashboard %+v", resp)
	}
	for _, c := range resp.Charts {
		if c.Status != engine.StatusOK {
			t.Errorf("chart %s: %s (%s)", c.ChartID, c.Status, c.Message)
		}
	}

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/dashboard", nil)
	resp = decode[models.DashboardResponse](t, rec)
	empty := 0
	for _, c := range resp.Charts {
		if c.Status == engine.StatusEmpty {
			empty++
		}
	}
	if len(resp.Charts) != 12 || empty != 1 {
		t.Errorf("expected 12 charts with only state_profile empty, got %d charts, %d empty", len(resp.Charts), empty)
	}
}

func TestGetKPIs(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)
	do(t, srv, http.MethodPut, "/api/sessions/"+id+"/clusters", models.ClustersRequest{Clusters: []string{"1"}})

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id+"/kpis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	for _, k := range decode[[]models.KPI](t, rec) {
		if k.Name == "population" && (k.Value != 100 || k.Avg != 50 || k.Defined != 2) {
			t.Errorf("unexpected population KPI %+v", k)
		}
	}
}

func TestExport(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)
	do(t, srv, http.MethodPut, "/api/sessions/"+id+"/clusters", models.ClustersRequest{Clusters: []string{"1"}})

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id+"/export?format=csv&columns=literacy_rate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	want := "state_name,literacy_rate\nKerala,94\nKarnataka,75\n"
	if rec.Body.String() != want {
		t.Errorf("unexpected csv %q", rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/export?format=xlsx", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Type"), "spreadsheetml") {
		t.Errorf("xlsx export failed: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/export?columns=gdp", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown column should be 422, got %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/export?format=pdf", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format should be 400, got %d", rec.Code)
	}
}
