package cases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/shared"
)

type stubRepo struct {
	cases       map[int64]*Case
	nextID      int64
	progress    []ProgressEntry
	attachments map[int64]*Attachment
	failAddAtt  bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{cases: map[int64]*Case{}, attachments: map[int64]*Attachment{}, nextID: 1}
}

func (s *stubRepo) Get(_ context.Context, id int64) (*Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *stubRepo) List(_ context.Context, _ ListCasesRequest) ([]Case, int, error) {
	var out []Case
	for _, c := range s.cases {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (s *stubRepo) Create(_ context.Context, c Case) (int64, error) {
	id := s.nextID
	s.nextID++
	c.ID = id
	s.cases[id] = &c
	return id, nil
}

func (s *stubRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	c, ok := s.cases[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if v, ok := updates["title"]; ok {
		c.Title = v.(string)
	}
	if v, ok := updates["priority"]; ok {
		c.Priority = v.(string)
	}
	if v, ok := updates["assignee_id"]; ok {
		if arg, ok := v.(pgtype.Int8); ok && arg.Valid {
			assignee := arg.Int64
			c.AssigneeID = &assignee
		}
	}
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := s.cases[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(s.cases, id)
	return nil
}

func (s *stubRepo) SetStatus(_ context.Context, id, statusID int64) error {
	c, ok := s.cases[id]
	if !ok {
		return httpx.ErrNotFound
	}
	c.StatusID = statusID
	return nil
}

func (s *stubRepo) AddProgress(_ context.Context, entry ProgressEntry) (int64, error) {
	entry.ID = int64(len(s.progress) + 1)
	s.progress = append(s.progress, entry)
	return entry.ID, nil
}

func (s *stubRepo) ListProgress(_ context.Context, caseID int64) ([]ProgressEntry, error) {
	var out []ProgressEntry
	for _, p := range s.progress {
		if p.CaseID == caseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubRepo) AddAttachment(_ context.Context, att Attachment) (int64, error) {
	if s.failAddAtt {
		return 0, errors.New("insert failed")
	}
	att.ID = int64(len(s.attachments) + 1)
	s.attachments[att.ID] = &att
	return att.ID, nil
}

func (s *stubRepo) GetAttachment(_ context.Context, caseID, attachmentID int64) (*Attachment, error) {
	a, ok := s.attachments[attachmentID]
	if !ok || a.CaseID != caseID {
		return nil, httpx.ErrNotFound
	}
	return a, nil
}

func (s *stubRepo) ListAttachments(_ context.Context, caseID int64) ([]Attachment, error) {
	var out []Attachment
	for _, a := range s.attachments {
		if a.CaseID == caseID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubRepo) DeleteAttachment(_ context.Context, caseID, attachmentID int64) error {
	a, ok := s.attachments[attachmentID]
	if !ok || a.CaseID != caseID {
		return httpx.ErrNotFound
	}
	delete(s.attachments, attachmentID)
	return nil
}

type stubStatuses struct {
	refs map[int64]*policy.StatusRef
}

func (s *stubStatuses) StatusRef(_ context.Context, id int64) (*policy.StatusRef, error) {
	return s.refs[id], nil
}

type captureAudit struct {
	entries []shared.AuditEntry
}

func (c *captureAudit) Record(_ context.Context, entry shared.AuditEntry) error {
	c.entries = append(c.entries, entry)
	return nil
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

func newTestService(repo *stubRepo, statuses *stubStatuses, audit *captureAudit, store *stubStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, statuses, audit, store, nil, logger)
}

type captureNotifier struct {
	assigned []int64
}

func (n *captureNotifier) CaseAssigned(_ context.Context, c *Case) {
	if c.AssigneeID != nil {
		n.assigned = append(n.assigned, *c.AssigneeID)
	}
}

var (
	openStatus  = &policy.StatusRef{ID: 1, Name: "Abierto", IsFinal: false}
	finalStatus = &policy.StatusRef{ID: 2, Name: "Cerrado", IsFinal: true}
)

func seedCase(repo *stubRepo, status *policy.StatusRef) int64 {
	id := repo.nextID
	repo.nextID++
	repo.cases[id] = &Case{
		ID: id, Title: "Pantalla lenta", Description: "La consulta tarda",
		ApplicationID: 1, CategoryID: 1, StatusID: status.ID,
		Priority: "media", ReporterID: 7, Status: status,
	}
	return id
}

func TestCreateRecordsAudit(t *testing.T) {
	repo := newStubRepo()
	statuses := &stubStatuses{refs: map[int64]*policy.StatusRef{1: openStatus}}
	audit := &captureAudit{}
	svc := newTestService(repo, statuses, audit, newStubStore())

	c, err := svc.Create(context.Background(), 7, CreateCaseRequest{
		Title: "Error al guardar", Description: "Detalle", ApplicationID: 1,
		CategoryID: 1, StatusID: 1, Priority: "alta",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.ReporterID)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, shared.AuditCreated, entry.Action)
	assert.Equal(t, "cases", entry.Entity)
	assert.Nil(t, entry.Before)
	assert.Equal(t, "Error al guardar", entry.After["title"])
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	repo := newStubRepo()
	statuses := &stubStatuses{refs: map[int64]*policy.StatusRef{}}
	svc := newTestService(repo, statuses, &captureAudit{}, newStubStore())

	_, err := svc.Create(context.Background(), 7, CreateCaseRequest{
		Title: "x", Description: "y", ApplicationID: 1, CategoryID: 1, StatusID: 99, Priority: "baja",
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateBlockedWhenFinal(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, finalStatus)
	svc := newTestService(repo, &stubStatuses{}, &captureAudit{}, newStubStore())

	title := "nuevo"
	_, err := svc.Update(context.Background(), 7, id, UpdateCaseRequest{Title: &title})
	assert.ErrorIs(t, err, httpx.ErrLocked)
}

func TestUpdateBlockedWhenStatusMissing(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, openStatus)
	repo.cases[id].Status = nil

	svc := newTestService(repo, &stubStatuses{}, &captureAudit{}, newStubStore())
	title := "nuevo"
	_, err := svc.Update(context.Background(), 7, id, UpdateCaseRequest{Title: &title})
	assert.ErrorIs(t, err, httpx.ErrLocked)
}

func TestUpdateRecordsBeforeAndAfter(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, openStatus)
	audit := &captureAudit{}
	svc := newTestService(repo, &stubStatuses{}, audit, newStubStore())

	title := "Pantalla muy lenta"
	after, err := svc.Update(context.Background(), 7, id, UpdateCaseRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, after.Title)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "Pantalla lenta", audit.entries[0].Before["title"])
	assert.Equal(t, title, audit.entries[0].After["title"])
}

func TestChangeStatusIntoFinalAllowed(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, openStatus)
	statuses := &stubStatuses{refs: map[int64]*policy.StatusRef{2: finalStatus}}
	svc := newTestService(repo, statuses, &captureAudit{}, newStubStore())

	c, err := svc.ChangeStatus(context.Background(), 7, id, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.StatusID)
}

func TestChangeStatusOutOfFinalBlocked(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, finalStatus)
	statuses := &stubStatuses{refs: map[int64]*policy.StatusRef{1: openStatus}}
	svc := newTestService(repo, statuses, &captureAudit{}, newStubStore())

	_, err := svc.ChangeStatus(context.Background(), 7, id, 1)
	assert.ErrorIs(t, err, httpx.ErrLocked)
}

func TestDeleteRemovesStoredObjects(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, openStatus)
	repo.attachments[1] = &Attachment{ID: 1, CaseID: id, Path: "cases/1/a.png"}
	audit := &captureAudit{}
	store := newStubStore()
	store.objects["cases/1/a.png"] = "data"
	svc := newTestService(repo, &stubStatuses{}, audit, store)

	require.NoError(t, svc.Delete(context.Background(), 7, id))
	assert.Contains(t, store.deleted, "cases/1/a.png")

	require.Len(t, audit.entries, 1)
	assert.Equal(t, shared.AuditDeleted, audit.entries[0].Action)
	assert.Nil(t, audit.entries[0].After)
	assert.Equal(t, "Pantalla lenta", audit.entries[0].Before["title"])
}

func TestAddProgressBlockedWhenFinal(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, finalStatus)
	svc := newTestService(repo, &stubStatuses{}, &captureAudit{}, newStubStore())

	_, err := svc.AddProgress(context.Background(), 7, id, "avance")
	assert.ErrorIs(t, err, httpx.ErrLocked)
}

func TestAttachUploadsAndLinks(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, openStatus)
	store := newStubStore()
	svc := newTestService(repo, &stubStatuses{}, &captureAudit{}, store)

	att, err := svc.Attach(context.Background(), 7, id, "captura.png", "image/png", 4, strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "captura.png", att.FileName)
	assert.Len(t, store.objects, 1)
}

func TestAttachRollsBackObjectOnInsertFailure(t *testing.T) {
	repo := newStubRepo()
	repo.failAddAtt = true
	id := seedCase(repo, openStatus)
	store := newStubStore()
	svc := newTestService(repo, &stubStatuses{}, &captureAudit{}, store)

	_, err := svc.Attach(context.Background(), 7, id, "captura.png", "image/png", 4, strings.NewReader("data"))
	require.Error(t, err)
	assert.Empty(t, store.objects)
	assert.Len(t, store.deleted, 1)
}

func TestCreateWithAssigneeNotifies(t *testing.T) {
	repo := newStubRepo()
	statuses := &stubStatuses{refs: map[int64]*policy.StatusRef{1: openStatus}}
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, statuses, &captureAudit{}, newStubStore(), notifier, logger)

	assignee := int64(5)
	_, err := svc.Create(context.Background(), 7, CreateCaseRequest{
		Title: "Error al guardar", Description: "Detalle", ApplicationID: 1,
		CategoryID: 1, StatusID: 1, Priority: "alta", AssigneeID: &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, notifier.assigned)
}

func TestReassignmentNotifiesNewAssigneeOnly(t *testing.T) {
	repo := newStubRepo()
	id := seedCase(repo, openStatus)
	previous := int64(3)
	repo.cases[id].AssigneeID = &previous

	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, &stubStatuses{}, &captureAudit{}, newStubStore(), notifier, logger)

	assignee := int64(5)
	_, err := svc.Update(context.Background(), 7, id, UpdateCaseRequest{AssigneeID: &assignee})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, notifier.assigned)

	// Re-submitting the same assignee is not a reassignment.
	_, err = svc.Update(context.Background(), 7, id, UpdateCaseRequest{AssigneeID: &assignee})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, notifier.assigned)
}
