// Package resources implements the shared document repository: a folder tree
// with uploaded files, each optionally reachable through a share link.
package resources

import "time"

// Share permission modes.
const (
	SharePublic        = "public"
	ShareAuthenticated = "authenticated"
)

// Folder groups resources. ParentID is nil for the root level.
type Folder struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Resource is one stored file.
type Resource struct {
	ID          int64      `json:"id"`
	FolderID    *int64     `json:"folder_id,omitempty"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	URL         string     `json:"url"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	UploadedBy  int64      `json:"uploaded_by"`
	ShareToken  *string    `json:"share_token,omitempty"`
	ShareState  ShareState `json:"share"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ShareState holds the link settings that the gate evaluates.
type ShareState struct {
	Enabled    bool       `json:"enabled"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Permission string     `json:"permission"`
}

// ShareView is the subset of a resource exposed through a share link.
type ShareView struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func snapshot(r *Resource) map[string]any {
	if r == nil {
		return nil
	}
	snap := map[string]any{
		"name":             r.Name,
		"path":             r.Path,
		"content_type":     r.ContentType,
		"share_enabled":    r.ShareState.Enabled,
		"share_permission": r.ShareState.Permission,
	}
	if r.FolderID != nil {
		snap["folder_id"] = *r.FolderID
	} else {
		snap["folder_id"] = nil
	}
	return snap
}

type CreateFolderRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	ParentID *int64 `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
}

type RenameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type MoveResourceRequest struct {
	FolderID *int64 `json:"folder_id,omitempty" validate:"omitempty,gt=0"`
}

type ShareSettingsRequest struct {
	Enabled    *bool      `json:"enabled,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Permission *string    `json:"permission,omitempty" validate:"omitempty,oneof=public authenticated"`
}
