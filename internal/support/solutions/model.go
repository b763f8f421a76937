// Package solutions holds the knowledge-base articles that document how a
// problem was solved, optionally linked back to the case that raised it.
package solutions

import (
	"time"

	"github.com/speedissuesflow/sif/internal/policy"
)

// Solution is one knowledge-base entry.
type Solution struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	Problem       string            `json:"problem"`
	Resolution    string            `json:"resolution"`
	Summary       *string           `json:"summary,omitempty"`
	ApplicationID int64             `json:"application_id"`
	CaseID        *int64            `json:"case_id,omitempty"`
	StatusID      int64             `json:"status_id"`
	AuthorID      int64             `json:"author_id"`
	Status        *policy.StatusRef `json:"status,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func snapshot(s *Solution) map[string]any {
	if s == nil {
		return nil
	}
	snap := map[string]any{
		"title":          s.Title,
		"problem":        s.Problem,
		"resolution":     s.Resolution,
		"application_id": s.ApplicationID,
		"status_id":      s.StatusID,
	}
	if s.CaseID != nil {
		snap["case_id"] = *s.CaseID
	} else {
		snap["case_id"] = nil
	}
	return snap
}

type CreateSolutionRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Problem       string `json:"problem" validate:"required"`
	Resolution    string `json:"resolution" validate:"required"`
	ApplicationID int64  `json:"application_id" validate:"required,gt=0"`
	CaseID        *int64 `json:"case_id,omitempty" validate:"omitempty,gt=0"`
	StatusID      int64  `json:"status_id" validate:"required,gt=0"`
}

type UpdateSolutionRequest struct {
	Title      *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Problem    *string `json:"problem,omitempty"`
	Resolution *string `json:"resolution,omitempty"`
	CaseID     *int64  `json:"case_id,omitempty" validate:"omitempty,gt=0"`
}

type ListSolutionsRequest struct {
	ApplicationID *int64  `json:"application_id,omitempty"`
	StatusID      *int64  `json:"status_id,omitempty"`
	Search        *string `json:"search,omitempty"`
	Limit         int     `json:"limit" validate:"gte=0,lte=200"`
	Offset        int     `json:"offset" validate:"gte=0"`
}
