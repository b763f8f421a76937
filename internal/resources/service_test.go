package resources

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/shared"
)

type stubRepo struct {
	folders   map[int64]*Folder
	resources map[int64]*Resource
	nextID    int64
	purged    []time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{folders: map[int64]*Folder{}, resources: map[int64]*Resource{}, nextID: 1}
}

func (s *stubRepo) CreateFolder(_ context.Context, f Folder) (int64, error) {
	id := s.nextID
	s.nextID++
	f.ID = id
	s.folders[id] = &f
	return id, nil
}

func (s *stubRepo) GetFolder(_ context.Context, id int64) (*Folder, error) {
	f, ok := s.folders[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return f, nil
}

func (s *stubRepo) ListFolders(_ context.Context, parentID *int64) ([]Folder, error) {
	var out []Folder
	for _, f := range s.folders {
		if (parentID == nil && f.ParentID == nil) || (parentID != nil && f.ParentID != nil && *f.ParentID == *parentID) {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *stubRepo) RenameFolder(_ context.Context, id int64, name string) error {
	f, ok := s.folders[id]
	if !ok {
		return httpx.ErrNotFound
	}
	f.Name = name
	return nil
}

func (s *stubRepo) DeleteFolder(_ context.Context, id int64) error {
	if _, ok := s.folders[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(s.folders, id)
	return nil
}

func (s *stubRepo) FolderHasChildren(_ context.Context, id int64) (bool, error) {
	for _, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			return true, nil
		}
	}
	for _, r := range s.resources {
		if r.FolderID != nil && *r.FolderID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) CreateResource(_ context.Context, r Resource) (int64, error) {
	id := s.nextID
	s.nextID++
	r.ID = id
	s.resources[id] = &r
	return id, nil
}

func (s *stubRepo) GetResource(_ context.Context, id int64) (*Resource, error) {
	r, ok := s.resources[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *stubRepo) GetByShareToken(_ context.Context, token string) (*Resource, error) {
	for _, r := range s.resources {
		if r.ShareToken != nil && *r.ShareToken == token {
			clone := *r
			return &clone, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (s *stubRepo) ListResources(_ context.Context, folderID *int64) ([]Resource, error) {
	var out []Resource
	for _, r := range s.resources {
		if (folderID == nil && r.FolderID == nil) || (folderID != nil && r.FolderID != nil && *r.FolderID == *folderID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRepo) SearchResources(_ context.Context, normalizedTerm string) ([]Resource, error) {
	var out []Resource
	for _, r := range s.resources {
		if strings.Contains(NormalizeSearch(r.Name), normalizedTerm) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRepo) RenameResource(_ context.Context, id int64, name, _ string) error {
	r, ok := s.resources[id]
	if !ok {
		return httpx.ErrNotFound
	}
	r.Name = name
	return nil
}

func (s *stubRepo) MoveResource(_ context.Context, id int64, folderID *int64) error {
	r, ok := s.resources[id]
	if !ok {
		return httpx.ErrNotFound
	}
	r.FolderID = folderID
	return nil
}

func (s *stubRepo) DeleteResource(_ context.Context, id int64) error {
	if _, ok := s.resources[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(s.resources, id)
	return nil
}

func (s *stubRepo) UpdateShare(_ context.Context, id int64, state ShareState) error {
	r, ok := s.resources[id]
	if !ok {
		return httpx.ErrNotFound
	}
	r.ShareState = state
	return nil
}

func (s *stubRepo) SetShareToken(_ context.Context, id int64, token string) error {
	r, ok := s.resources[id]
	if !ok {
		return httpx.ErrNotFound
	}
	r.ShareToken = &token
	return nil
}

func (s *stubRepo) DisableSharesExpiredBefore(_ context.Context, cutoff pgtype.Timestamptz) (int64, error) {
	s.purged = append(s.purged, cutoff.Time)
	var n int64
	for _, r := range s.resources {
		if r.ShareState.Enabled && r.ShareState.ExpiresAt != nil && r.ShareState.ExpiresAt.Before(cutoff.Time) {
			r.ShareState.Enabled = false
			r.ShareToken = nil
			n++
		}
	}
	return n, nil
}

type stubStore struct {
	objects map[string]string
	deleted []string
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string]string{}}
}

func (s *stubStore) Put(_ context.Context, path, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.objects[path] = string(data)
	return "https://files.test/" + path, nil
}

func (s *stubStore) Delete(_ context.Context, path string) error {
	delete(s.objects, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *stubStore) PublicURL(path string) string {
	return "https://files.test/" + path
}

type captureAudit struct {
	entries []shared.AuditEntry
}

func (c *captureAudit) Record(_ context.Context, entry shared.AuditEntry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func newResourceService(repo *stubRepo, store *stubStore, audit *captureAudit) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, store, audit, logger)
}

func seedShared(repo *stubRepo, token string, state ShareState) int64 {
	id := repo.nextID
	repo.nextID++
	repo.resources[id] = &Resource{
		ID: id, Name: "manual.pdf", Path: "resources/manual.pdf",
		URL: "https://files.test/resources/manual.pdf", ContentType: "application/pdf",
		Size: 1024, UploadedBy: 2, ShareToken: &token, ShareState: state,
	}
	return id
}

func TestResolveShareAccessHappyPath(t *testing.T) {
	repo := newStubRepo()
	seedShared(repo, "abc123", ShareState{Enabled: true, Permission: SharePublic})
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	view, err := svc.ResolveShareAccess(context.Background(), "abc123", false)
	require.NoError(t, err)
	assert.Equal(t, "manual.pdf", view.Name)
	assert.Equal(t, "https://files.test/resources/manual.pdf", view.URL)
}

func TestResolveShareAccessUnknownToken(t *testing.T) {
	repo := newStubRepo()
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	_, err := svc.ResolveShareAccess(context.Background(), "abc123", false)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestResolveShareAccessDisabledLooksMissing(t *testing.T) {
	repo := newStubRepo()
	seedShared(repo, "abc123", ShareState{Enabled: false, Permission: SharePublic})
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	_, err := svc.ResolveShareAccess(context.Background(), "abc123", false)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestResolveShareAccessExpired(t *testing.T) {
	repo := newStubRepo()
	yesterday := time.Now().Add(-24 * time.Hour)
	seedShared(repo, "abc123", ShareState{Enabled: true, ExpiresAt: &yesterday, Permission: SharePublic})
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	_, err := svc.ResolveShareAccess(context.Background(), "abc123", false)
	assert.ErrorIs(t, err, httpx.ErrExpired)
}

func TestResolveShareAccessAuthenticatedMode(t *testing.T) {
	repo := newStubRepo()
	seedShared(repo, "abc123", ShareState{Enabled: true, Permission: ShareAuthenticated})
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	_, err := svc.ResolveShareAccess(context.Background(), "abc123", false)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	view, err := svc.ResolveShareAccess(context.Background(), "abc123", true)
	require.NoError(t, err)
	assert.Equal(t, "manual.pdf", view.Name)
}

func TestRegenerateTokenKillsOldLink(t *testing.T) {
	repo := newStubRepo()
	id := seedShared(repo, "abc123", ShareState{Enabled: true, Permission: SharePublic})
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	res, err := svc.RegenerateToken(context.Background(), 2, id)
	require.NoError(t, err)
	require.NotNil(t, res.ShareToken)
	assert.NotEqual(t, "abc123", *res.ShareToken)

	_, err = svc.ResolveShareAccess(context.Background(), "abc123", false)
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	view, err := svc.ResolveShareAccess(context.Background(), *res.ShareToken, false)
	require.NoError(t, err)
	assert.Equal(t, "manual.pdf", view.Name)
}

func TestEnableShareMintsToken(t *testing.T) {
	repo := newStubRepo()
	store := newStubStore()
	svc := newResourceService(repo, store, &captureAudit{})

	res, err := svc.Upload(context.Background(), 2, nil, "guia.pdf", "application/pdf", 10, strings.NewReader("0123456789"))
	require.NoError(t, err)
	assert.Nil(t, res.ShareToken)

	enabled := true
	updated, err := svc.UpdateShare(context.Background(), 2, res.ID, ShareSettingsRequest{Enabled: &enabled})
	require.NoError(t, err)
	assert.True(t, updated.ShareState.Enabled)
	require.NotNil(t, updated.ShareToken)
	assert.NotEmpty(t, *updated.ShareToken)
}

func TestDeleteFolderRequiresEmpty(t *testing.T) {
	repo := newStubRepo()
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	folder, err := svc.CreateFolder(context.Background(), 2, CreateFolderRequest{Name: "Manuales"})
	require.NoError(t, err)

	res, err := svc.Upload(context.Background(), 2, &folder.ID, "guia.pdf", "application/pdf", 4, strings.NewReader("data"))
	require.NoError(t, err)

	err = svc.DeleteFolder(context.Background(), folder.ID)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	require.NoError(t, svc.Delete(context.Background(), 2, res.ID))
	require.NoError(t, svc.DeleteFolder(context.Background(), folder.ID))
}

func TestSearchIgnoresAccents(t *testing.T) {
	repo := newStubRepo()
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	_, err := svc.Upload(context.Background(), 2, nil, "Guía de instalación.pdf", "application/pdf", 4, strings.NewReader("data"))
	require.NoError(t, err)

	found, err := svc.Search(context.Background(), "instalacion")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Guía de instalación.pdf", found[0].Name)
}

func TestPurgeExpiredShares(t *testing.T) {
	repo := newStubRepo()
	old := time.Now().Add(-72 * time.Hour)
	id := seedShared(repo, "abc123", ShareState{Enabled: true, ExpiresAt: &old, Permission: SharePublic})
	svc := newResourceService(repo, newStubStore(), &captureAudit{})

	n, err := svc.PurgeExpiredShares(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, repo.resources[id].ShareState.Enabled)
	assert.Nil(t, repo.resources[id].ShareToken)
}
