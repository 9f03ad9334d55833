package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
	"github.com/anjumanuel/digital-commerce-readiness/internal/export"
	"github.com/anjumanuel/digital-commerce-readiness/internal/models"
	"github.com/anjumanuel/digital-commerce-readiness/internal/render"
	"github.com/anjumanuel/digital-commerce-readiness/internal/state"
)

// ============================================================================
// Session lifecycle
// ============================================================================

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	compare := h.Defaults.Compare
	if len(req.Compare) > 0 {
		compare = req.Compare
	}

	fs := h.Dispatcher.Defaults(compare, h.Defaults.Metric)
	// An explicit metric is validated by the store rather than replaced.
	if req.Metric != "" {
		fs.SelectedMetric = req.Metric
	}
	sess, err := h.Sessions.Create(fs)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.Logger.Info().Str("session", sess.ID).Msg("session created")
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session loads the session named in the URL, answering 404 when absent.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (state.Session, bool) {
	sess, err := h.Sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return state.Session{}, false
	}
	return sess, true
}

// ============================================================================
// Filter events
// ============================================================================

func (h *Handler) ReplaceClusters(w http.ResponseWriter, r *http.Request) {
	var req models.ClustersRequest
	if decodeJSON(w, r, &req) {
		h.apply(w, r, state.ReplaceClusters{Clusters: req.Clusters})
	}
}

func (h *Handler) ReplaceRegion(w http.ResponseWriter, r *http.Request) {
	var req models.RegionRequest
	if decodeJSON(w, r, &req) {
		h.apply(w, r, state.ReplaceRegion{Region: req.Region})
	}
}

func (h *Handler) ReplaceCompare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if decodeJSON(w, r, &req) {
		h.apply(w, r, state.ReplaceCompare{Regions: req.Regions})
	}
}

func (h *Handler) ReplaceMetric(w http.ResponseWriter, r *http.Request) {
	var req models.MetricRequest
	if decodeJSON(w, r, &req) {
		h.apply(w, r, state.ReplaceMetric{Metric: req.Metric})
	}
}

// apply runs a filter event. Unknown sessions are 404; events naming regions,
// clusters or columns absent from the dataset are 422.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, ev state.Event) {
	id := chi.URLParam(r, "sessionID")
	sess, err := h.Sessions.Apply(id, ev)
	if err != nil {
		if errors.Is(err, state.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.Logger.Info().Str("session", id).Err(err).Msg("filter event rejected")
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ============================================================================
// Charts
// ============================================================================

func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeOutcome(w, h.Dispatcher.Resolve(sess.Filters, chi.URLParam(r, "chartID")))
}

// GetChartPNG renders a chart server-side. Only kinds with a PNG renderer
// are accepted; a chart that resolved to no rows is 422.
func (h *Handler) GetChartPNG(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	out := h.Dispatcher.Resolve(sess.Filters, chi.URLParam(r, "chartID"))
	if out.Status != engine.StatusOK {
		h.writeOutcome(w, out)
		return
	}
	if !render.Supported(out.Spec.Kind) {
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: fmt.Sprintf("chart kind %s has no PNG renderer", out.Spec.Kind),
		})
		return
	}

	var buf bytes.Buffer
	err := render.PNG(&buf, out.Spec, render.WithSize(getIntParam(r, "width", 0), getIntParam(r, "height", 0)))
	switch {
	case errors.Is(err, render.ErrNoData):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: "chart has no data for the current filters",
			Kind:  errs.KindInsufficientData,
		})
		return
	case err != nil:
		h.Logger.Error().Err(err).Str("chart", out.ChartID).Msg("render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	io.Copy(w, &buf)
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	version, err := h.versionParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, models.DashboardResponse{
		SessionID: sess.ID,
		Version:   version,
		Filters:   sess.Filters,
		Charts:    h.Dispatcher.Dashboard(sess.Filters, version),
	})
}

// ============================================================================
// Export
// ============================================================================

// Export downloads the filtered view as CSV or XLSX: the identifier plus the
// requested columns, or the selected metric when none are named.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	table, err := h.Dispatcher.ExportTable(sess.Filters, getListParam(r, "columns"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		h.Logger.Error().Err(err).Msg("export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=dashboard_export.%s", format))
	io.Copy(w, &buf)
}
