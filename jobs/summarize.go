package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
)

// SummarizeSolutionPayload identifies the solution to summarize.
type SummarizeSolutionPayload struct {
	SolutionID int64 `json:"solution_id"`
}

// NewSummarizeSolutionTask constructs an Asynq task.
func NewSummarizeSolutionTask(payload SummarizeSolutionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSummarizeSolution, data), nil
}

// SolutionSummarizer is the slice of the solutions service the job needs.
type SolutionSummarizer interface {
	SummaryPrompt(ctx context.Context, id int64) (string, error)
	StoreSummary(ctx context.Context, id int64, summary string) error
}

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// NewSummarizeSolutionHandler builds the solution:summarize handler.
func NewSummarizeSolutionHandler(solutions SolutionSummarizer, generator TextGenerator, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SummarizeSolutionPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		prompt, err := solutions.SummaryPrompt(ctx, payload.SolutionID)
		if err != nil {
			// The solution may have been deleted between enqueue and run.
			if errors.Is(err, httpx.ErrNotFound) {
				return asynq.SkipRetry
			}
			return err
		}
		summary, err := generator.Summarize(ctx, prompt)
		if err != nil {
			logger.Warn("generate summary", slog.Int64("solution_id", payload.SolutionID), slog.Any("error", err))
			return err
		}
		if err := solutions.StoreSummary(ctx, payload.SolutionID, summary); err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return asynq.SkipRetry
			}
			return err
		}
		return nil
	}
}
