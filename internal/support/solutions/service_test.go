package solutions

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/shared"
)

type stubRepo struct {
	solutions map[int64]*Solution
	nextID    int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{solutions: map[int64]*Solution{}, nextID: 1}
}

func (s *stubRepo) Get(_ context.Context, id int64) (*Solution, error) {
	sol, ok := s.solutions[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *sol
	return &clone, nil
}

func (s *stubRepo) List(_ context.Context, _ ListSolutionsRequest) ([]Solution, int, error) {
	var out []Solution
	for _, sol := range s.solutions {
		out = append(out, *sol)
	}
	return out, len(out), nil
}

func (s *stubRepo) Create(_ context.Context, sol Solution) (int64, error) {
	id := s.nextID
	s.nextID++
	sol.ID = id
	s.solutions[id] = &sol
	return id, nil
}

func (s *stubRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	sol, ok := s.solutions[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if v, ok := updates["resolution"]; ok {
		sol.Resolution = v.(string)
	}
	if v, ok := updates["title"]; ok {
		sol.Title = v.(string)
	}
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := s.solutions[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(s.solutions, id)
	return nil
}

func (s *stubRepo) SetStatus(_ context.Context, id, statusID int64) error {
	sol, ok := s.solutions[id]
	if !ok {
		return httpx.ErrNotFound
	}
	sol.StatusID = statusID
	return nil
}

func (s *stubRepo) SetSummary(_ context.Context, id int64, summary string) error {
	sol, ok := s.solutions[id]
	if !ok {
		return httpx.ErrNotFound
	}
	sol.Summary = &summary
	return nil
}

type stubStatuses struct {
	refs map[int64]*policy.StatusRef
}

func (s *stubStatuses) StatusRef(_ context.Context, id int64) (*policy.StatusRef, error) {
	return s.refs[id], nil
}

type stubCases struct {
	existing map[int64]bool
}

func (s *stubCases) CaseExists(_ context.Context, id int64) (bool, error) {
	return s.existing[id], nil
}

type captureAudit struct {
	entries []shared.AuditEntry
}

func (c *captureAudit) Record(_ context.Context, entry shared.AuditEntry) error {
	c.entries = append(c.entries, entry)
	return nil
}

type captureTasks struct {
	enqueued []int64
}

func (c *captureTasks) EnqueueSummarize(_ context.Context, solutionID int64) error {
	c.enqueued = append(c.enqueued, solutionID)
	return nil
}

var (
	draftStatus     = &policy.StatusRef{ID: 1, Name: "Borrador", IsFinal: false}
	publishedStatus = &policy.StatusRef{ID: 2, Name: "Publicado", IsFinal: true}
)

func newSolutionService(repo *stubRepo, statuses *stubStatuses, cs *stubCases, audit *captureAudit, tasks *captureTasks) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, statuses, cs, audit, tasks, logger)
}

func seedSolution(repo *stubRepo, status *policy.StatusRef) int64 {
	id := repo.nextID
	repo.nextID++
	repo.solutions[id] = &Solution{
		ID: id, Title: "Timeout en reportes", Problem: "El reporte supera el timeout",
		Resolution: "Indexar la tabla de movimientos", ApplicationID: 1,
		StatusID: status.ID, AuthorID: 4, Status: status,
	}
	return id
}

func TestCreateEnqueuesSummary(t *testing.T) {
	repo := newStubRepo()
	statuses := &stubStatuses{refs: map[int64]*policy.StatusRef{1: draftStatus}}
	tasks := &captureTasks{}
	audit := &captureAudit{}
	svc := newSolutionService(repo, statuses, &stubCases{}, audit, tasks)

	sol, err := svc.Create(context.Background(), 4, CreateSolutionRequest{
		Title: "Timeout en reportes", Problem: "p", Resolution: "r", ApplicationID: 1, StatusID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{sol.ID}, tasks.enqueued)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, shared.AuditCreated, audit.entries[0].Action)
}

func TestCreateValidatesLinkedCase(t *testing.T) {
	repo := newStubRepo()
	statuses := &stubStatuses{refs: map[int64]*policy.StatusRef{1: draftStatus}}
	svc := newSolutionService(repo, statuses, &stubCases{existing: map[int64]bool{}}, &captureAudit{}, &captureTasks{})

	caseID := int64(42)
	_, err := svc.Create(context.Background(), 4, CreateSolutionRequest{
		Title: "x", Problem: "p", Resolution: "r", ApplicationID: 1, StatusID: 1, CaseID: &caseID,
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateBlockedWhenFinal(t *testing.T) {
	repo := newStubRepo()
	id := seedSolution(repo, publishedStatus)
	svc := newSolutionService(repo, &stubStatuses{}, &stubCases{}, &captureAudit{}, &captureTasks{})

	res := "otra"
	_, err := svc.Update(context.Background(), 4, id, UpdateSolutionRequest{Resolution: &res})
	assert.ErrorIs(t, err, httpx.ErrLocked)
}

func TestUpdateTextReenqueuesSummary(t *testing.T) {
	repo := newStubRepo()
	id := seedSolution(repo, draftStatus)
	tasks := &captureTasks{}
	svc := newSolutionService(repo, &stubStatuses{}, &stubCases{}, &captureAudit{}, tasks)

	res := "Reescribir la consulta con paginado"
	_, err := svc.Update(context.Background(), 4, id, UpdateSolutionRequest{Resolution: &res})
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, tasks.enqueued)
}

func TestUpdateTitleOnlySkipsSummary(t *testing.T) {
	repo := newStubRepo()
	id := seedSolution(repo, draftStatus)
	tasks := &captureTasks{}
	svc := newSolutionService(repo, &stubStatuses{}, &stubCases{}, &captureAudit{}, tasks)

	title := "Nuevo título"
	_, err := svc.Update(context.Background(), 4, id, UpdateSolutionRequest{Title: &title})
	require.NoError(t, err)
	assert.Empty(t, tasks.enqueued)
}

func TestStoreSummaryIgnoresFinality(t *testing.T) {
	repo := newStubRepo()
	id := seedSolution(repo, publishedStatus)
	svc := newSolutionService(repo, &stubStatuses{}, &stubCases{}, &captureAudit{}, &captureTasks{})

	require.NoError(t, svc.StoreSummary(context.Background(), id, "Resumen generado"))
	sol, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sol.Summary)
	assert.Equal(t, "Resumen generado", *sol.Summary)
}

func TestSummaryPromptIncludesBothTexts(t *testing.T) {
	repo := newStubRepo()
	id := seedSolution(repo, draftStatus)
	svc := newSolutionService(repo, &stubStatuses{}, &stubCases{}, &captureAudit{}, &captureTasks{})

	prompt, err := svc.SummaryPrompt(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, prompt, "El reporte supera el timeout")
	assert.Contains(t, prompt, "Indexar la tabla de movimientos")
}
