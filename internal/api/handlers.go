package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
	"github.com/anjumanuel/digital-commerce-readiness/internal/models"
	"github.com/anjumanuel/digital-commerce-readiness/internal/state"
)

// MaxBodySize bounds JSON request bodies.
const MaxBodySize = 1 << 20 // 1MB

// Defaults are the start-of-session selections.
type Defaults struct {
	Compare []string
	Metric  string
	Version int
}

type Handler struct {
	Dispatcher *engine.Dispatcher
	Sessions   *state.Store
	Defaults   Defaults
	SourceName string
	Logger     zerolog.Logger
}

func NewHandler(d *engine.Dispatcher, sessions *state.Store, defaults Defaults, sourceName string, logger zerolog.Logger) *Handler {
	return &Handler{
		Dispatcher: d,
		Sessions:   sessions,
		Defaults:   defaults,
		SourceName: sourceName,
		Logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	// Dataset & catalogue
	r.Get("/api/dataset", h.GetDataset)
	r.Get("/api/dataset/profile", h.GetProfile)
	r.Get("/api/correlation", h.GetCorrelation)
	r.Get("/api/charts", h.ListCharts)
	r.Post("/api/resolve", h.Resolve)

	// Sessions
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)

			r.Put("/clusters", h.ReplaceClusters)
			r.Put("/region", h.ReplaceRegion)
			r.Put("/compare", h.ReplaceCompare)
			r.Put("/metric", h.ReplaceMetric)

			r.Get("/charts/{chartID}", h.GetChart)
			r.Get("/charts/{chartID}/png", h.GetChartPNG)
			r.Get("/dashboard", h.GetDashboard)
			r.Get("/kpis", h.GetKPIs)
			r.Get("/export", h.Export)
		})
	})
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Dataset
// ============================================================================

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds := h.Dispatcher.Dataset()
	cat := h.Dispatcher.Catalogue()

	writeJSON(w, http.StatusOK, models.DatasetInfo{
		Source:         h.SourceName,
		Identifier:     ds.Columns().Identifier(),
		Rows:           ds.Len(),
		Columns:        ds.Columns().Columns(),
		Regions:        ds.Regions(),
		Clusters:       ds.Distinct(cat.ClusterColumn()),
		NumericColumns: ds.Columns().NumericColumns(),
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dataset.Profile(h.Dispatcher.Dataset().All()))
}

// ============================================================================
// Correlation
// ============================================================================

// GetCorrelation returns the Pearson coefficient of two numeric columns over
// the whole dataset.
func (h *Handler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	col1 := r.URL.Query().Get("col1")
	col2 := r.URL.Query().Get("col2")
	if col1 == "" || col2 == "" {
		http.Error(w, "col1 and col2 are required", http.StatusBadRequest)
		return
	}

	ds := h.Dispatcher.Dataset()
	for _, col := range []string{col1, col2} {
		if err := engine.ValidateMetric(ds, col); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
	}

	resp := models.CorrelationResult{Column1: col1, Column2: col2, Interpretation: "Undefined"}
	corr, pairs, ok := engine.PairCorrelation(ds.All(), col1, col2)
	resp.Pairs = pairs
	if ok {
		resp.Correlation = &corr
		resp.Interpretation = interpret(corr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func interpret(corr float64) string {
	switch {
	case corr > 0.7:
		return "Strong positive"
	case corr < -0.7:
		return "Strong negative"
	case corr > 0.3:
		return "Moderate positive"
	case corr < -0.3:
		return "Moderate negative"
	}
	return "Weak/None"
}

// ============================================================================
// Catalogue
// ============================================================================

func (h *Handler) ListCharts(w http.ResponseWriter, r *http.Request) {
	version, err := h.versionParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cat := h.Dispatcher.Catalogue()
	writeJSON(w, http.StatusOK, models.ChartsResponse{
		Version: version,
		Latest:  cat.Version(),
		Charts:  cat.Entries(version),
	})
}

// Resolve resolves one chart for filters supplied in the request body,
// without touching any session.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ChartID == "" {
		http.Error(w, "chart_id is required", http.StatusBadRequest)
		return
	}

	fs := h.defaultFilters()
	if req.Filters != nil {
		fs = req.Filters.Clone()
	}
	h.writeOutcome(w, h.Dispatcher.Resolve(fs, req.ChartID))
}

// ============================================================================
// KPIs
// ============================================================================

// GetKPIs sums and averages every numeric column over the session's view.
func (h *Handler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	ds := h.Dispatcher.Dataset()
	view, err := engine.ApplyFilters(ds, sess.Filters, engine.WithClusterColumn(h.Dispatcher.Catalogue().ClusterColumn()))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	kpis := []models.KPI{}
	for _, col := range ds.Columns().NumericColumns() {
		values := []float64{}
		for rec := range view.Rows() {
			if v, ok := rec.Measure(col); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		sum := floats.Sum(values)
		kpis = append(kpis, models.KPI{
			Name:    col,
			Value:   sum,
			Avg:     sum / float64(len(values)),
			Defined: len(values),
			Type:    "sum",
		})
	}
	writeJSON(w, http.StatusOK, kpis)
}

// ============================================================================
// Helpers
// ============================================================================

func (h *Handler) defaultFilters() engine.FilterState {
	return h.Dispatcher.Defaults(h.Defaults.Compare, h.Defaults.Metric)
}

func (h *Handler) versionParam(r *http.Request) (int, error) {
	version := getIntParam(r, "version", h.Defaults.Version)
	if version < 0 || version > h.Dispatcher.Catalogue().Version() {
		return 0, fmt.Errorf("version must be between 0 and %d", h.Dispatcher.Catalogue().Version())
	}
	if version == 0 {
		version = h.Dispatcher.Catalogue().Version()
	}
	return version, nil
}

// writeOutcome maps a chart outcome to a response: unknown charts are 404,
// failed charts 500, everything else 200 with the outcome body.
func (h *Handler) writeOutcome(w http.ResponseWriter, out engine.Outcome) {
	status := http.StatusOK
	switch {
	case out.Reason == errs.KindUnknownChart:
		status = http.StatusNotFound
	case out.Status == engine.StatusError:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, out)
}

func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return http.StatusUnprocessableEntity
	case errs.KindUnknownChart:
		return http.StatusNotFound
	case errs.KindInsufficientData:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, state.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := models.ErrorResponse{Error: err.Error(), Kind: errs.KindOf(err)}
	var nf *errs.NotFoundError
	var uc *errs.UnknownChartError
	switch {
	case errors.As(err, &nf):
		resp.Suggestion = nf.Suggestion
	case errors.As(err, &uc):
		resp.Suggestion = uc.Suggestion
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func getIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getListParam(r *http.Request, name string) []string {
	var out []string
	for _, item := range strings.Split(r.URL.Query().Get(name), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
