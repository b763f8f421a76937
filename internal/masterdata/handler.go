package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
)

// Handler wires the catalog endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers catalog routes. Reads are open to any session so
// forms can fill dropdowns; mutations need the configuration capability.
func (h *Handler) MountRoutes(r chi.Router, mw policy.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuthenticated)
		r.Get("/applications", h.listApplications)
		r.Get("/categories", h.listCategories)
		r.Get("/statuses", h.listStatuses)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.Require(policy.CapManageConfig))
		r.Post("/applications", h.createApplication)
		r.Put("/applications/{id}", h.updateApplication)
		r.Post("/categories", h.createCategory)
		r.Put("/categories/{id}", h.updateCategory)
		r.Post("/statuses", h.createStatus)
		r.Put("/statuses/{id}", h.updateStatus)
	})
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.ListApplications(r.Context())
	if err != nil {
		h.logger.Error("list applications", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *Handler) listStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.ListStatuses(r.Context())
	if err != nil {
		h.logger.Error("list statuses", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"statuses": statuses})
}

type catalogNameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type catalogUpdateRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	IsActive bool   `json:"is_active"`
}

type statusRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Position int    `json:"position" validate:"gte=0"`
	IsFinal  bool   `json:"is_final"`
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var req catalogNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	app, err := h.service.CreateApplication(r.Context(), actorID, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

func (h *Handler) updateApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req catalogUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	if err := h.service.UpdateApplication(r.Context(), actorID, id, req.Name, req.IsActive); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req catalogNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	cat, err := h.service.CreateCategory(r.Context(), actorID, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cat)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req catalogUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	if err := h.service.UpdateCategory(r.Context(), actorID, id, req.Name, req.IsActive); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	st, err := h.service.CreateStatus(r.Context(), actorID, req.Name, req.Position, req.IsFinal)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, st)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	if err := h.service.UpdateStatus(r.Context(), actorID, id, req.Name, req.Position, req.IsFinal); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return 0, false
	}
	return id, true
}
