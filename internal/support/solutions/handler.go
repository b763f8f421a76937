package solutions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
)

// Handler wires knowledge-base endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers solution routes.
func (h *Handler) MountRoutes(r chi.Router, mw policy.Middleware) {
	r.Route("/solutions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuthenticated)
			r.Get("/", h.list)
			r.Get("/{id}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapCreateSolution))
			r.Post("/", h.create)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapEditSolution))
			r.Patch("/{id}", h.update)
			r.Put("/{id}/status", h.changeStatus)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapDeleteSolution))
			r.Delete("/{id}", h.delete)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := parseListRequest(r)
	result, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list solutions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	sol, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sol)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSolutionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	sol, err := h.service.Create(r.Context(), actorID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sol)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateSolutionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	sol, err := h.service.Update(r.Context(), actorID, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sol)
}

type changeStatusRequest struct {
	StatusID int64 `json:"status_id" validate:"required,gt=0"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	sol, err := h.service.ChangeStatus(r.Context(), actorID, id, req.StatusID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sol)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListRequest(r *http.Request) ListSolutionsRequest {
	q := r.URL.Query()
	var req ListSolutionsRequest
	if v, err := strconv.ParseInt(q.Get("application_id"), 10, 64); err == nil {
		req.ApplicationID = &v
	}
	if v, err := strconv.ParseInt(q.Get("status_id"), 10, 64); err == nil {
		req.StatusID = &v
	}
	if search := q.Get("search"); search != "" {
		req.Search = &search
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 200 {
		req.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		req.Offset = v
	}
	return req
}

func paramID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}
