package resources

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
)

const maxUploadBytes = 50 << 20

// Handler wires the document repository endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the authenticated repository routes.
func (h *Handler) MountRoutes(r chi.Router, mw policy.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuthenticated)
		r.Get("/folders", h.listFolders)
		r.Get("/resources", h.listResources)
		r.Get("/resources/search", h.search)
		r.Get("/resources/{id}", h.getResource)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.Require(policy.CapManageResources))
		r.Post("/folders", h.createFolder)
		r.Put("/folders/{id}", h.renameFolder)
		r.Delete("/folders/{id}", h.deleteFolder)
		r.Post("/resources", h.upload)
		r.Put("/resources/{id}", h.renameResource)
		r.Put("/resources/{id}/folder", h.moveResource)
		r.Delete("/resources/{id}", h.deleteResource)
		r.Put("/resources/{id}/share", h.updateShare)
		r.Post("/resources/{id}/share/regenerate", h.regenerateToken)
	})
}

// MountShareRoutes registers the public share endpoint. It sits outside the
// auth middleware; the gate itself decides who gets through.
func (h *Handler) MountShareRoutes(r chi.Router) {
	r.Get("/share/{token}", h.resolveShare)
}

func (h *Handler) resolveShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	_, authenticated := policy.CurrentUserID(r)
	view, err := h.service.ResolveShareAccess(r.Context(), token, authenticated)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) listFolders(w http.ResponseWriter, r *http.Request) {
	parentID := optionalID(r.URL.Query().Get("parent_id"))
	folders, err := h.service.ListFolders(r.Context(), parentID)
	if err != nil {
		h.logger.Error("list folders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"folders": folders})
}

func (h *Handler) createFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	folder, err := h.service.CreateFolder(r.Context(), actorID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, folder)
}

func (h *Handler) renameFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req RenameRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.RenameFolder(r.Context(), id, req.Name); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteFolder(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	folderID := optionalID(r.URL.Query().Get("folder_id"))
	items, err := h.service.ListResources(r.Context(), folderID)
	if err != nil {
		h.logger.Error("list resources", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"resources": items})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("search resources", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"resources": items})
}

func (h *Handler) getResource(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
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
	folderID := optionalID(r.FormValue("folder_id"))
	actorID, _ := policy.CurrentUserID(r)
	res, err := h.service.Upload(r.Context(), actorID, folderID, header.Filename, contentType, header.Size, file)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) renameResource(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req RenameRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	res, err := h.service.Rename(r.Context(), actorID, id, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) moveResource(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req MoveResourceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	res, err := h.service.Move(r.Context(), actorID, id, req.FolderID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) deleteResource(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) updateShare(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	var req ShareSettingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	res, err := h.service.UpdateShare(r.Context(), actorID, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) regenerateToken(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := policy.CurrentUserID(r)
	res, err := h.service.RegenerateToken(r.Context(), actorID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func optionalID(raw string) *int64 {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func paramID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}
