package tests

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/shared"
)

// AuditSink records test mutations.
type AuditSink interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// StatusSource resolves a status id into its finality view.
type StatusSource interface {
	StatusRef(ctx context.Context, id int64) (*policy.StatusRef, error)
}

// CaseSource confirms the linked case exists.
type CaseSource interface {
	CaseExists(ctx context.Context, id int64) (bool, error)
}

// Service handles test business logic.
type Service struct {
	repo     Repository
	statuses StatusSource
	cases    CaseSource
	audit    AuditSink
	logger   *slog.Logger
}

// NewService builds the tests service.
func NewService(repo Repository, statuses StatusSource, cases CaseSource, audit AuditSink, logger *slog.Logger) *Service {
	return &Service{repo: repo, statuses: statuses, cases: cases, audit: audit, logger: logger}
}

// Get returns a single test.
func (s *Service) Get(ctx context.Context, id int64) (*Test, error) {
	return s.repo.Get(ctx, id)
}

// ListByCase returns the tests of a case in execution order.
func (s *Service) ListByCase(ctx context.Context, caseID int64) ([]Test, error) {
	items, err := s.repo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Test{}
	}
	return items, nil
}

// Create registers a validation run for an existing case.
func (s *Service) Create(ctx context.Context, actorID int64, req CreateTestRequest) (*Test, error) {
	if s.cases != nil {
		ok, err := s.cases.CaseExists(ctx, req.CaseID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown case %d", httpx.ErrValidation, req.CaseID)
		}
	}
	ref, err := s.statuses.StatusRef(ctx, req.StatusID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: unknown status %d", httpx.ErrValidation, req.StatusID)
	}
	t := Test{
		CaseID:      req.CaseID,
		Title:       req.Title,
		Description: req.Description,
		StatusID:    req.StatusID,
		Outcome:     req.Outcome,
		ExecutedBy:  actorID,
	}
	id, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditCreated, id, nil, snapshot(created))
	return created, nil
}

// Update applies partial changes. Tests in a final status reject edits.
func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateTestRequest) (*Test, error) {
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
	if req.Outcome != nil {
		updates["outcome"] = *req.Outcome
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
	return after, nil
}

// ChangeStatus moves a test to another status.
func (s *Service) ChangeStatus(ctx context.Context, actorID, id, statusID int64) (*Test, error) {
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

// Delete removes a test. Final tests cannot be deleted.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if policy.IsLocked(before.Status) {
		return httpx.ErrLocked
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditDeleted, id, snapshot(before), nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action shared.AuditAction, id int64, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "tests",
		EntityID: strconv.FormatInt(id, 10),
		Before:   before,
		After:    after,
	}); err != nil {
		s.logger.Warn("record audit entry", slog.String("entity", "tests"), slog.Any("error", err))
	}
}
