package tests

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
)

// Handler wires test endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers test routes.
func (h *Handler) MountRoutes(r chi.Router, mw policy.Middleware) {
	r.Route("/tests", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuthenticated)
			r.Get("/", h.listByCase)
			r.Get("/{id}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapCreateTest))
			r.Post("/", h.create)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapEditTest))
			r.Patch("/{id}", h.update)
			r.Put("/{id}/status", h.changeStatus)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapDeleteTest))
			r.Delete("/{id}", h.delete)
		})
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) listByCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := strconv.ParseInt(r.URL.Query().Get("case_id"), 10, 64)
	if err != nil || caseID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "case_id query parameter required")
		return
	}
	items, err := h.service.ListByCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("list tests", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tests": items})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	t, err := h.service.Create(r.Context(), actorID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	t, err := h.service.Update(r.Context(), actorID, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
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
	t, err := h.service.ChangeStatus(r.Context(), actorID, id, req.StatusID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
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

func paramID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}
