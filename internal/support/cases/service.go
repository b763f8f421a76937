package cases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/shared"
	"github.com/speedissuesflow/sif/internal/storage"
)

// AuditSink records case mutations.
type AuditSink interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// StatusSource resolves a status id into its finality view. A nil result with
// a nil error means the status does not exist.
type StatusSource interface {
	StatusRef(ctx context.Context, id int64) (*policy.StatusRef, error)
}

// Service handles case business logic.
type Service struct {
	repo     Repository
	statuses StatusSource
	audit    AuditSink
	store    storage.ObjectStore
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds the cases service. The notifier may be nil when the
// deployment has no mail relay.
func NewService(repo Repository, statuses StatusSource, audit AuditSink, store storage.ObjectStore, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, statuses: statuses, audit: audit, store: store, notifier: notifier, logger: logger}
}

// ListResult carries a page of cases plus the unpaged total.
type ListResult struct {
	Cases []Case `json:"cases"`
	Total int    `json:"total"`
}

// List returns filtered cases.
func (s *Service) List(ctx context.Context, req ListCasesRequest) (ListResult, error) {
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Case{}
	}
	return ListResult{Cases: items, Total: total}, nil
}

// Get returns a single case.
func (s *Service) Get(ctx context.Context, id int64) (*Case, error) {
	return s.repo.Get(ctx, id)
}

// CaseExists reports whether a case id is present. Other modules use it to
// validate links before inserting.
func (s *Service) CaseExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, httpx.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create opens a new case in the given status.
func (s *Service) Create(ctx context.Context, actorID int64, req CreateCaseRequest) (*Case, error) {
	ref, err := s.statuses.StatusRef(ctx, req.StatusID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: unknown status %d", httpx.ErrValidation, req.StatusID)
	}
	c := Case{
		Title:         req.Title,
		Description:   req.Description,
		ApplicationID: req.ApplicationID,
		CategoryID:    req.CategoryID,
		StatusID:      req.StatusID,
		Priority:      req.Priority,
		ReporterID:    actorID,
		AssigneeID:    req.AssigneeID,
	}
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditCreated, id, nil, snapshot(created))
	if created.AssigneeID != nil && s.notifier != nil {
		s.notifier.CaseAssigned(ctx, created)
	}
	return created, nil
}

// Update applies partial changes. Cases in a final status reject every edit.
func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateCaseRequest) (*Case, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.IsLocked(before.Status) {
		return nil, httpx.ErrLocked
	}
	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ApplicationID != nil {
		updates["application_id"] = *req.ApplicationID
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.AssigneeID != nil {
		updates["assignee_id"] = assigneeArg(req.AssigneeID)
	}
	if len(updates) == 0 {
		return before, nil
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	after, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditUpdated, id, snapshot(before), snapshot(after))
	if s.notifier != nil && assigneeChanged(before.AssigneeID, after.AssigneeID) {
		s.notifier.CaseAssigned(ctx, after)
	}
	return after, nil
}

func assigneeChanged(before, after *int64) bool {
	if after == nil {
		return false
	}
	return before == nil || *before != *after
}

// ChangeStatus moves a case to another status. The target must exist; a case
// already in a final status stays put.
func (s *Service) ChangeStatus(ctx context.Context, actorID, id, statusID int64) (*Case, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.IsLocked(before.Status) {
		return nil, httpx.ErrLocked
	}
	ref, err := s.statuses.StatusRef(ctx, statusID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: unknown status %d", httpx.ErrValidation, statusID)
	}
	if err := s.repo.SetStatus(ctx, id, statusID); err != nil {
		return nil, err
	}
	after, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditUpdated, id, snapshot(before), snapshot(after))
	return after, nil
}

// Delete removes a case. Final cases cannot be deleted.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if policy.IsLocked(before.Status) {
		return httpx.ErrLocked
	}
	// Attachments live in external storage; best effort, orphans are
	// acceptable when a delete call fails mid-way.
	attachments, err := s.repo.ListAttachments(ctx, id)
	if err == nil {
		for _, att := range attachments {
			if s.store != nil {
				if err := s.store.Delete(ctx, att.Path); err != nil {
					s.logger.Warn("delete attachment object", slog.String("path", att.Path), slog.Any("error", err))
				}
			}
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditDeleted, id, snapshot(before), nil)
	return nil
}

// AddProgress appends a free-text update.
func (s *Service) AddProgress(ctx context.Context, actorID, caseID int64, body string) (*ProgressEntry, error) {
	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if policy.IsLocked(c.Status) {
		return nil, httpx.ErrLocked
	}
	entry := ProgressEntry{CaseID: caseID, AuthorID: actorID, Body: body}
	id, err := s.repo.AddProgress(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id
	entry.CreatedAt = time.Now()
	return &entry, nil
}

// ListProgress returns the chronological updates of a case.
func (s *Service) ListProgress(ctx context.Context, caseID int64) ([]ProgressEntry, error) {
	if _, err := s.repo.Get(ctx, caseID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListProgress(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []ProgressEntry{}
	}
	return entries, nil
}

// Attach uploads a file to the object store and links it to the case.
func (s *Service) Attach(ctx context.Context, actorID, caseID int64, fileName, contentType string, size int64, r io.Reader) (*Attachment, error) {
	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if policy.IsLocked(c.Status) {
		return nil, httpx.ErrLocked
	}
	path := fmt.Sprintf("cases/%d/%s-%s", caseID, uuid.NewString(), fileName)
	url, err := s.store.Put(ctx, path, contentType, r)
	if err != nil {
		return nil, err
	}
	att := Attachment{
		CaseID:      caseID,
		FileName:    fileName,
		Path:        path,
		URL:         url,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  actorID,
	}
	id, err := s.repo.AddAttachment(ctx, att)
	if err != nil {
		// The object was already uploaded; remove it so storage does not
		// accumulate rows nothing references.
		if derr := s.store.Delete(ctx, path); derr != nil {
			s.logger.Warn("rollback attachment object", slog.String("path", path), slog.Any("error", derr))
		}
		return nil, err
	}
	att.ID = id
	att.CreatedAt = time.Now()
	return &att, nil
}

// ListAttachments returns the files linked to a case.
func (s *Service) ListAttachments(ctx context.Context, caseID int64) ([]Attachment, error) {
	if _, err := s.repo.Get(ctx, caseID); err != nil {
		return nil, err
	}
	atts, err := s.repo.ListAttachments(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if atts == nil {
		atts = []Attachment{}
	}
	return atts, nil
}

// DeleteAttachment unlinks a file and removes the stored object.
func (s *Service) DeleteAttachment(ctx context.Context, actorID, caseID, attachmentID int64) error {
	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return err
	}
	if policy.IsLocked(c.Status) {
		return httpx.ErrLocked
	}
	att, err := s.repo.GetAttachment(ctx, caseID, attachmentID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAttachment(ctx, caseID, attachmentID); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, att.Path); err != nil {
			s.logger.Warn("delete attachment object", slog.String("path", att.Path), slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action shared.AuditAction, id int64, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "cases",
		EntityID: strconv.FormatInt(id, 10),
		Before:   before,
		After:    after,
	}); err != nil {
		s.logger.Warn("record audit entry", slog.String("entity", "cases"), slog.Any("error", err))
	}
}
