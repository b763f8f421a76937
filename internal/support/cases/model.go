package cases

import (
	"time"

	"github.com/speedissuesflow/sif/internal/policy"
)

// Case is an issue reported against an application.
type Case struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	ApplicationID int64             `json:"application_id"`
	CategoryID    int64             `json:"category_id"`
	StatusID      int64             `json:"status_id"`
	Priority      string            `json:"priority"`
	ReporterID    int64             `json:"reporter_id"`
	AssigneeID    *int64            `json:"assignee_id,omitempty"`
	Status        *policy.StatusRef `json:"status,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ProgressEntry is one free-text update on a case.
type ProgressEntry struct {
	ID        int64     `json:"id"`
	CaseID    int64     `json:"case_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is a media file stored in the external object store.
type Attachment struct {
	ID          int64     `json:"id"`
	CaseID      int64     `json:"case_id"`
	FileName    string    `json:"file_name"`
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// snapshot produces the audit view of a case. Timestamp bookkeeping columns
// stay out; the reconstructor would ignore them anyway.
func snapshot(c *Case) map[string]any {
	if c == nil {
		return nil
	}
	snap := map[string]any{
		"title":          c.Title,
		"description":    c.Description,
		"application_id": c.ApplicationID,
		"category_id":    c.CategoryID,
		"status_id":      c.StatusID,
		"priority":       c.Priority,
	}
	if c.AssigneeID != nil {
		snap["assignee_id"] = *c.AssigneeID
	} else {
		snap["assignee_id"] = nil
	}
	return snap
}
