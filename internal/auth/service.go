package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/speedissuesflow/sif/internal/shared"
	"github.com/speedissuesflow/sif/internal/users"
)

// UserFinder resolves accounts for credential checks.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	finder UserFinder
	repo   SessionRepository
}

// NewService constructs a new Service.
func NewService(finder UserFinder, repo SessionRepository) *Service {
	return &Service{finder: finder, repo: repo}
}

// Authenticate validates email/password credentials. Every failure collapses
// to ErrInvalidCredentials so callers cannot probe which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.finder.GetByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
