package cases

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
)

const maxUploadBytes = 25 << 20

// Handler wires case endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers case routes. Reads only need a session; writes are
// gated per capability so the Consulta role stays read-only.
func (h *Handler) MountRoutes(r chi.Router, mw policy.Middleware) {
	r.Route("/cases", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuthenticated)
			r.Get("/", h.list)
			r.Get("/{id}", h.get)
			r.Get("/{id}/progress", h.listProgress)
			r.Get("/{id}/attachments", h.listAttachments)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapCreateCase))
			r.Post("/", h.create)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapEditCase))
			r.Patch("/{id}", h.update)
			r.Put("/{id}/status", h.changeStatus)
			r.Post("/{id}/progress", h.addProgress)
			r.Post("/{id}/attachments", h.attach)
			r.Delete("/{id}/attachments/{attachmentID}", h.deleteAttachment)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(policy.CapDeleteCase))
			r.Delete("/{id}", h.delete)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := parseListRequest(r)
	result, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list cases", slog.Any("error", err))
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
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	c, err := h.service.Create(r.Context(), actorID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateCaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	c, err := h.service.Update(r.Context(), actorID, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	c, err := h.service.ChangeStatus(r.Context(), actorID, id, req.StatusID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
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

func (h *Handler) addProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req AddProgressRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	entry, err := h.service.AddProgress(r.Context(), actorID, id, req.Body)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) listProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.service.ListProgress(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"progress": entries})
}

func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "multipart form expected")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "file field required")
		return
	}
	defer func() {
		_ = file.Close()
	}()
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	actorID, _ := policy.CurrentUserID(r)
	att, err := h.service.Attach(r.Context(), actorID, id, header.Filename, contentType, header.Size, file)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, att)
}

func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	atts, err := h.service.ListAttachments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"attachments": atts})
}

func (h *Handler) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	attID, ok := paramID(w, r, "attachmentID")
	if !ok {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	if err := h.service.DeleteAttachment(r.Context(), actorID, id, attID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListRequest(r *http.Request) ListCasesRequest {
	q := r.URL.Query()
	var req ListCasesRequest
	if v, err := strconv.ParseInt(q.Get("status_id"), 10, 64); err == nil {
		req.StatusID = &v
	}
	if v, err := strconv.ParseInt(q.Get("application_id"), 10, 64); err == nil {
		req.ApplicationID = &v
	}
	if v, err := strconv.ParseInt(q.Get("assignee_id"), 10, 64); err == nil {
		req.AssigneeID = &v
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
