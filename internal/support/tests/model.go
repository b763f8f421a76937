// Package tests tracks the technical validations executed against a case.
package tests

import (
	"time"

	"github.com/speedissuesflow/sif/internal/policy"
)

// Test is one validation run linked to a case.
type Test struct {
	ID          int64             `json:"id"`
	CaseID      int64             `json:"case_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StatusID    int64             `json:"status_id"`
	Outcome     string            `json:"outcome"`
	ExecutedBy  int64             `json:"executed_by"`
	Status      *policy.StatusRef `json:"status,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func snapshot(t *Test) map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"case_id":     t.CaseID,
		"title":       t.Title,
		"description": t.Description,
		"status_id":   t.StatusID,
		"outcome":     t.Outcome,
	}
}

type CreateTestRequest struct {
	CaseID      int64  `json:"case_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	StatusID    int64  `json:"status_id" validate:"required,gt=0"`
	Outcome     string `json:"outcome" validate:"required,oneof=pendiente aprobado rechazado"`
}

type UpdateTestRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	Outcome     *string `json:"outcome,omitempty" validate:"omitempty,oneof=pendiente aprobado rechazado"`
}
