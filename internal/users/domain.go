package users

import (
	"time"

	"github.com/speedissuesflow/sif/internal/policy"
)

// User represents an account. Every account holds exactly one role.
type User struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         policy.Role `json:"role"`
	PasswordHash string      `json:"-"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Profile is the shape the front-end caches once per session: identity plus
// the resolved capability set so buttons and the permission table agree.
type Profile struct {
	ID           int64                      `json:"id"`
	Email        string                     `json:"email"`
	Name         string                     `json:"name"`
	Role         policy.Role                `json:"role"`
	Capabilities map[policy.Capability]bool `json:"capabilities"`
	AdminPanel   bool                       `json:"admin_panel"`
}

// NewProfile resolves the full capability table for a user.
func NewProfile(u *User) Profile {
	caps := make(map[policy.Capability]bool, len(policy.Capabilities()))
	for _, c := range policy.Capabilities() {
		caps[c] = policy.HasPermission(u.Role, c)
	}
	return Profile{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		Capabilities: caps,
		AdminPanel:   policy.CanAccessAdminPanel(u.Role),
	}
}
