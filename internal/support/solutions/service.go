package solutions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/shared"
)

// AuditSink records solution mutations.
type AuditSink interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// StatusSource resolves a status id into its finality view.
type StatusSource interface {
	StatusRef(ctx context.Context, id int64) (*policy.StatusRef, error)
}

// CaseSource confirms a linked case exists.
type CaseSource interface {
	CaseExists(ctx context.Context, id int64) (bool, error)
}

// TaskEnqueuer pushes background work onto the queue. Summaries are generated
// asynchronously so a slow model never blocks the request.
type TaskEnqueuer interface {
	EnqueueSummarize(ctx context.Context, solutionID int64) error
}

// Service handles solution business logic.
type Service struct {
	repo     Repository
	statuses StatusSource
	cases    CaseSource
	audit    AuditSink
	tasks    TaskEnqueuer
	logger   *slog.Logger
}

// NewService builds the solutions service.
func NewService(repo Repository, statuses StatusSource, cases CaseSource, audit AuditSink, tasks TaskEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, statuses: statuses, cases: cases, audit: audit, tasks: tasks, logger: logger}
}

// ListResult carries a page of solutions plus the unpaged total.
type ListResult struct {
	Solutions []Solution `json:"solutions"`
	Total     int        `json:"total"`
}

// List returns filtered solutions.
func (s *Service) List(ctx context.Context, req ListSolutionsRequest) (ListResult, error) {
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Solution{}
	}
	return ListResult{Solutions: items, Total: total}, nil
}

// Get returns a single solution.
func (s *Service) Get(ctx context.Context, id int64) (*Solution, error) {
	return s.repo.Get(ctx, id)
}

// Create publishes a knowledge-base entry and queues summary generation.
func (s *Service) Create(ctx context.Context, actorID int64, req CreateSolutionRequest) (*Solution, error) {
	ref, err := s.statuses.StatusRef(ctx, req.StatusID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: unknown status %d", httpx.ErrValidation, req.StatusID)
	}
	if req.CaseID != nil && s.cases != nil {
		ok, err := s.cases.CaseExists(ctx, *req.CaseID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown case %d", httpx.ErrValidation, *req.CaseID)
		}
	}
	sol := Solution{
		Title:         req.Title,
		Problem:       req.Problem,
		Resolution:    req.Resolution,
		ApplicationID: req.ApplicationID,
		CaseID:        req.CaseID,
		StatusID:      req.StatusID,
		AuthorID:      actorID,
	}
	id, err := s.repo.Create(ctx, sol)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, shared.AuditCreated, id, nil, snapshot(created))
	s.enqueueSummary(ctx, id)
	return created, nil
}

// Update applies partial changes and refreshes the summary when the text
// changed. Solutions in a final status reject edits.
func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateSolutionRequest) (*Solution, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.IsLocked(before.Status) {
		return nil, httpx.ErrLocked
	}
	updates := map[string]any{}
	textChanged := false
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Problem != nil {
		updates["problem"] = *req.Problem
		textChanged = true
	}
	if req.Resolution != nil {
		updates["resolution"] = *req.Resolution
		textChanged = true
	}
	if req.CaseID != nil {
		if s.cases != nil {
			ok, err := s.cases.CaseExists(ctx, *req.CaseID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: unknown case %d", httpx.ErrValidation, *req.CaseID)
			}
		}
		updates["case_id"] = *req.CaseID
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
	if textChanged {
		s.enqueueSummary(ctx, id)
	}
	return after, nil
}

// ChangeStatus moves a solution to another status.
func (s *Service) ChangeStatus(ctx context.Context, actorID, id, statusID int64) (*Solution, error) {
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

// Delete removes a solution. Final solutions cannot be deleted.
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

// StoreSummary persists a generated summary. The background worker calls this
// after the model responds, so finality does not apply here.
func (s *Service) StoreSummary(ctx context.Context, id int64, summary string) error {
	return s.repo.SetSummary(ctx, id, summary)
}

// SummaryPrompt builds the text sent to the generative model.
func (s *Service) SummaryPrompt(ctx context.Context, id int64) (string, error) {
	sol, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Resume en dos frases el siguiente problema y su solución.\n\nProblema: %s\n\nSolución: %s",
		sol.Problem, sol.Resolution), nil
}

func (s *Service) enqueueSummary(ctx context.Context, id int64) {
	if s.tasks == nil {
		return
	}
	if err := s.tasks.EnqueueSummarize(ctx, id); err != nil {
		s.logger.Warn("enqueue summary", slog.Int64("solution_id", id), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action shared.AuditAction, id int64, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "solutions",
		EntityID: strconv.FormatInt(id, 10),
		Before:   before,
		After:    after,
	}); err != nil {
		s.logger.Warn("record audit entry", slog.String("entity", "solutions"), slog.Any("error", err))
	}
}
