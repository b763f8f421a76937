package users

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/shared"
)

// AuditSink records mutations on the users table.
type AuditSink interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service handles user administration.
type Service struct {
	repo  Repository
	audit AuditSink
}

// NewService builds the users service.
func NewService(repo Repository, audit AuditSink) *Service {
	return &Service{repo: repo, audit: audit}
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// RoleByUserID implements policy.UserSource.
func (s *Service) RoleByUserID(ctx context.Context, id int64) (policy.Role, error) {
	return s.repo.RoleByUserID(ctx, id)
}

// EmailByUserID resolves the address notifications go to.
func (s *Service) EmailByUserID(ctx context.Context, id int64) (string, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// Create registers a new account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, actorID int64, email, name, password string, role policy.Role) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errors.New("users: email required")
	}
	if !validRole(role) {
		return nil, errors.New("users: unknown role")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   shared.AuditCreated,
			Entity:   "users",
			EntityID: strconv.FormatInt(id, 10),
			After:    snapshot(&user),
		})
	}
	return &user, nil
}

// Update applies partial changes; a role change must stay within the
// enumerated set.
func (s *Service) Update(ctx context.Context, actorID, id int64, name *string, role *policy.Role, isActive *bool) (*User, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if name != nil {
		updates["name"] = strings.TrimSpace(*name)
	}
	if role != nil {
		if !validRole(*role) {
			return nil, errors.New("users: unknown role")
		}
		updates["role"] = string(*role)
	}
	if isActive != nil {
		updates["is_active"] = *isActive
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
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   shared.AuditUpdated,
			Entity:   "users",
			EntityID: strconv.FormatInt(id, 10),
			Before:   snapshot(before),
			After:    snapshot(after),
		})
	}
	return after, nil
}

func validRole(role policy.Role) bool {
	for _, r := range policy.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

func snapshot(u *User) map[string]any {
	return map[string]any{
		"email":     u.Email,
		"name":      u.Name,
		"role":      string(u.Role),
		"is_active": u.IsActive,
	}
}
