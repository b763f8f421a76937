package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
)

type stubSolutions struct {
	prompts   map[int64]string
	summaries map[int64]string
}

func (s *stubSolutions) SummaryPrompt(_ context.Context, id int64) (string, error) {
	p, ok := s.prompts[id]
	if !ok {
		return "", httpx.ErrNotFound
	}
	return p, nil
}

func (s *stubSolutions) StoreSummary(_ context.Context, id int64, summary string) error {
	if _, ok := s.prompts[id]; !ok {
		return httpx.ErrNotFound
	}
	s.summaries[id] = summary
	return nil
}

type stubGenerator struct {
	out string
	err error
}

func (g *stubGenerator) Summarize(_ context.Context, _ string) (string, error) {
	return g.out, g.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSummarizeSolutionStoresResult(t *testing.T) {
	solutions := &stubSolutions{prompts: map[int64]string{7: "prompt"}, summaries: map[int64]string{}}
	handler := NewSummarizeSolutionHandler(solutions, &stubGenerator{out: "resumen"}, discardLogger())

	task, err := NewSummarizeSolutionTask(SummarizeSolutionPayload{SolutionID: 7})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	assert.Equal(t, "resumen", solutions.summaries[7])
}

func TestSummarizeSolutionSkipsDeleted(t *testing.T) {
	solutions := &stubSolutions{prompts: map[int64]string{}, summaries: map[int64]string{}}
	handler := NewSummarizeSolutionHandler(solutions, &stubGenerator{out: "resumen"}, discardLogger())

	task, err := NewSummarizeSolutionTask(SummarizeSolutionPayload{SolutionID: 99})
	require.NoError(t, err)
	assert.ErrorIs(t, handler(context.Background(), task), asynq.SkipRetry)
}

func TestSummarizeSolutionRetriesOnGeneratorError(t *testing.T) {
	solutions := &stubSolutions{prompts: map[int64]string{7: "prompt"}, summaries: map[int64]string{}}
	genErr := errors.New("model unavailable")
	handler := NewSummarizeSolutionHandler(solutions, &stubGenerator{err: genErr}, discardLogger())

	task, err := NewSummarizeSolutionTask(SummarizeSolutionPayload{SolutionID: 7})
	require.NoError(t, err)
	got := handler(context.Background(), task)
	assert.ErrorIs(t, got, genErr)
	assert.NotErrorIs(t, got, asynq.SkipRetry)
}
