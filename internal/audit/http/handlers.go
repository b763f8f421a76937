package audithttp

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/speedissuesflow/sif/internal/audit"
	"github.com/speedissuesflow/sif/internal/platform/httpx"
)

// Handler serves the audit timeline endpoints.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
}

// NewHandler constructs the audit HTTP handler.
func NewHandler(logger *slog.Logger, service *audit.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Timeline returns one page of audit rows.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// Export streams every matching row as CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"at", "actor", "action", "entity", "entity_id", "description"})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.At.Format(time.RFC3339),
			row.Actor,
			row.Action,
			row.Entity,
			row.EntityID,
			row.Description,
		})
	}
	writer.Flush()
}

func parseFilters(r *http.Request) audit.TimelineFilters {
	q := r.URL.Query()
	filters := audit.TimelineFilters{
		Actor:  q.Get("actor"),
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filters.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filters.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		filters.PageSize = v
	}
	return filters
}
