package resources

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/shared"
	"github.com/speedissuesflow/sif/internal/storage"
)

// AuditSink records resource mutations.
type AuditSink interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service handles folder and resource business logic.
type Service struct {
	repo   Repository
	store  storage.ObjectStore
	audit  AuditSink
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds the resources service.
func NewService(repo Repository, store storage.ObjectStore, audit AuditSink, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, audit: audit, logger: logger, now: time.Now}
}

// CreateFolder adds a folder, optionally under a parent.
func (s *Service) CreateFolder(ctx context.Context, actorID int64, req CreateFolderRequest) (*Folder, error) {
	if req.ParentID != nil {
		if _, err := s.repo.GetFolder(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}
	f := Folder{Name: strings.TrimSpace(req.Name), ParentID: req.ParentID, CreatedBy: actorID}
	id, err := s.repo.CreateFolder(ctx, f)
	if err != nil {
		return nil, err
	}
	f.ID = id
	f.CreatedAt = s.now()
	return &f, nil
}

// ListFolders returns the children of a folder, or the roots when nil.
func (s *Service) ListFolders(ctx context.Context, parentID *int64) ([]Folder, error) {
	folders, err := s.repo.ListFolders(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if folders == nil {
		folders = []Folder{}
	}
	return folders, nil
}

// RenameFolder changes a folder name.
func (s *Service) RenameFolder(ctx context.Context, id int64, name string) error {
	return s.repo.RenameFolder(ctx, id, strings.TrimSpace(name))
}

// DeleteFolder removes an empty folder. Folders with children are kept so
// nothing becomes unreachable.
func (s *Service) DeleteFolder(ctx context.Context, id int64) error {
	hasChildren, err := s.repo.FolderHasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return fmt.Errorf("%w: folder is not empty", httpx.ErrValidation)
	}
	return s.repo.DeleteFolder(ctx, id)
}

// ListResources returns the files in a folder, or the unfiled ones when nil.
func (s *Service) ListResources(ctx context.Context, folderID *int64) ([]Resource, error) {
	items, err := s.repo.ListResources(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Resource{}
	}
	return items, nil
}

// Search finds resources by name, ignoring case and accents.
func (s *Service) Search(ctx context.Context, term string) ([]Resource, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []Resource{}, nil
	}
	items, err := s.repo.SearchResources(ctx, NormalizeSearch(term))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Resource{}
	}
	return items, nil
}

// Get returns a single resource.
func (s *Service) Get(ctx context.Context, id int64) (*Resource, error) {
	return s.repo.GetResource(ctx, id)
}

// Upload stores a file and registers it. Sharing starts disabled.
func (s *Service) Upload(ctx context.Context, actorID int64, folderID *int64, fileName, contentType string, size int64, r io.Reader) (*Resource, error) {
	if folderID != nil {
		if _, err := s.repo.GetFolder(ctx, *folderID); err != nil {
			return nil, err
		}
	}
	path := fmt.Sprintf("resources/%s-%s", newShareToken(), fileName)
	url, err := s.store.Put(ctx, path, contentType, r)
	if err != nil {
		return nil, err
	}
	res := Resource{
		FolderID:    folderID,
		Name:        fileName,
		Path:        path,
		URL:         url,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  actorID,
		ShareState:  ShareState{Permission: SharePublic},
	}
	id, err := s.repo.CreateResource(ctx, res)
	if err != nil {
		if derr := s.store.Delete(ctx, path); derr != nil {
			s.logger.Warn("rollback resource object", slog.String("path", path), slog.Any("error", derr))
		}
		return nil, err
	}
	created, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditCreated, id, nil, snapshot(created))
	return created, nil
}

// Rename changes the display name of a resource.
func (s *Service) Rename(ctx context.Context, actorID, id int64, name string) (*Resource, error) {
	before, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := s.repo.RenameResource(ctx, id, name, NormalizeSearch(name)); err != nil {
		return nil, err
	}
	after, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditUpdated, id, snapshot(before), snapshot(after))
	return after, nil
}

// Move relocates a resource into another folder.
func (s *Service) Move(ctx context.Context, actorID, id int64, folderID *int64) (*Resource, error) {
	before, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if folderID != nil {
		if _, err := s.repo.GetFolder(ctx, *folderID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.MoveResource(ctx, id, folderID); err != nil {
		return nil, err
	}
	after, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditUpdated, id, snapshot(before), snapshot(after))
	return after, nil
}

// Delete removes a resource and its stored object.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	before, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteResource(ctx, id); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, before.Path); err != nil {
			s.logger.Warn("delete resource object", slog.String("path", before.Path), slog.Any("error", err))
		}
	}
	s.record(ctx, actorID, shared.AuditDeleted, id, snapshot(before), nil)
	return nil
}

// UpdateShare applies share settings. Enabling a link that never had a token
// mints one.
func (s *Service) UpdateShare(ctx context.Context, actorID, id int64, req ShareSettingsRequest) (*Resource, error) {
	before, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	state := before.ShareState
	if req.Enabled != nil {
		state.Enabled = *req.Enabled
	}
	if req.ExpiresAt != nil {
		state.ExpiresAt = req.ExpiresAt
	}
	if req.Permission != nil {
		state.Permission = *req.Permission
	}
	if err := s.repo.UpdateShare(ctx, id, state); err != nil {
		return nil, err
	}
	if state.Enabled && before.ShareToken == nil {
		if err := s.repo.SetShareToken(ctx, id, newShareToken()); err != nil {
			return nil, err
		}
	}
	after, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditUpdated, id, snapshot(before), snapshot(after))
	return after, nil
}

// RegenerateToken replaces the share token. The old link dies immediately.
func (s *Service) RegenerateToken(ctx context.Context, actorID, id int64) (*Resource, error) {
	if _, err := s.repo.GetResource(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetShareToken(ctx, id, newShareToken()); err != nil {
		return nil, err
	}
	return s.repo.GetResource(ctx, id)
}

// ResolveShareAccess runs the gate for a public share request. Unknown and
// disabled tokens are indistinguishable from the outside.
func (s *Service) ResolveShareAccess(ctx context.Context, token string, authenticated bool) (*ShareView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, httpx.ErrNotFound
	}
	res, err := s.repo.GetByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := EvaluateShare(&res.ShareState, s.now(), authenticated); err != nil {
		return nil, err
	}
	return &ShareView{Name: res.Name, URL: res.URL, ContentType: res.ContentType, Size: res.Size}, nil
}

// PurgeExpiredShares disables links whose expiration passed more than the
// retention window ago. The cron worker calls this.
func (s *Service) PurgeExpiredShares(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := pgtype.Timestamptz{Time: s.now().Add(-retention), Valid: true}
	return s.repo.DisableSharesExpiredBefore(ctx, cutoff)
}

func (s *Service) record(ctx context.Context, actorID int64, action shared.AuditAction, id int64, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "resources",
		EntityID: strconv.FormatInt(id, 10),
		Before:   before,
		After:    after,
	}); err != nil {
		s.logger.Warn("record audit entry", slog.String("entity", "resources"), slog.Any("error", err))
	}
}

func newShareToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
