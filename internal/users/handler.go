package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
)

// Handler wires user administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user routes. Administration requires the
// manage-users capability; /me only needs a session.
func (h *Handler) MountRoutes(r chi.Router, mw policy.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuthenticated)
		r.Get("/me", h.Me)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.Require(policy.CapManageUsers))
		r.Get("/users", h.List)
		r.Post("/users", h.Create)
		r.Patch("/users/{id}", h.Update)
	})
}

// Me returns the caller's profile with the resolved capability table.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := policy.CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, NewProfile(user))
}

// List returns all accounts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": accounts})
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

// Create registers a new account.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	user, err := h.service.Create(r.Context(), actorID, req.Email, req.Name, req.Password, policy.Role(req.Role))
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Update applies partial changes to an account.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var role *policy.Role
	if req.Role != nil {
		v := policy.Role(*req.Role)
		role = &v
	}
	actorID, _ := policy.CurrentUserID(r)
	user, err := h.service.Update(r.Context(), actorID, id, req.Name, role, req.IsActive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
