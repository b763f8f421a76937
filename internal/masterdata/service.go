package masterdata

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/shared"
)

// AuditSink records catalog mutations.
type AuditSink interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service handles catalog business logic.
type Service struct {
	repo  *Repository
	audit AuditSink
}

// NewService builds Service instance.
func NewService(repo *Repository, audit AuditSink) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListApplications returns the application catalog.
func (s *Service) ListApplications(ctx context.Context) ([]Application, error) {
	return s.repo.ListApplications(ctx)
}

// ListCategories returns the category catalog.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// ListStatuses returns the ordered status set.
func (s *Service) ListStatuses(ctx context.Context) ([]Status, error) {
	return s.repo.ListStatuses(ctx)
}

// StatusRef resolves the finality view of a status for other modules.
func (s *Service) StatusRef(ctx context.Context, id int64) (*policy.StatusRef, error) {
	return s.repo.GetStatusRef(ctx, id)
}

// CreateApplication adds an application to the catalog.
func (s *Service) CreateApplication(ctx context.Context, actorID int64, name string) (Application, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Application{}, errors.New("masterdata: application name required")
	}
	app, err := s.repo.CreateApplication(ctx, name)
	if err != nil {
		return Application{}, err
	}
	s.record(ctx, actorID, shared.AuditCreated, "applications", app.ID, nil, map[string]any{"name": app.Name, "is_active": app.IsActive})
	return app, nil
}

// UpdateApplication renames or toggles an application.
func (s *Service) UpdateApplication(ctx context.Context, actorID, id int64, name string, isActive bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("masterdata: application name required")
	}
	if err := s.repo.UpdateApplication(ctx, id, name, isActive); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditUpdated, "applications", id, nil, map[string]any{"name": name, "is_active": isActive})
	return nil
}

// CreateCategory adds a category to the catalog.
func (s *Service) CreateCategory(ctx context.Context, actorID int64, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.New("masterdata: category name required")
	}
	cat, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		return Category{}, err
	}
	s.record(ctx, actorID, shared.AuditCreated, "categories", cat.ID, nil, map[string]any{"name": cat.Name, "is_active": cat.IsActive})
	return cat, nil
}

// UpdateCategory renames or toggles a category.
func (s *Service) UpdateCategory(ctx context.Context, actorID, id int64, name string, isActive bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("masterdata: category name required")
	}
	if err := s.repo.UpdateCategory(ctx, id, name, isActive); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditUpdated, "categories", id, nil, map[string]any{"name": name, "is_active": isActive})
	return nil
}

// CreateStatus adds a status to the ordered set.
func (s *Service) CreateStatus(ctx context.Context, actorID int64, name string, position int, isFinal bool) (Status, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Status{}, errors.New("masterdata: status name required")
	}
	st, err := s.repo.CreateStatus(ctx, name, position, isFinal)
	if err != nil {
		return Status{}, err
	}
	s.record(ctx, actorID, shared.AuditCreated, "statuses", st.ID, nil, map[string]any{"name": st.Name, "position": st.Position, "is_final": st.IsFinal})
	return st, nil
}

// UpdateStatus changes a status row, including its finality flag.
func (s *Service) UpdateStatus(ctx context.Context, actorID, id int64, name string, position int, isFinal bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("masterdata: status name required")
	}
	if err := s.repo.UpdateStatus(ctx, id, name, position, isFinal); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditUpdated, "statuses", id, nil, map[string]any{"name": name, "position": position, "is_final": isFinal})
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action shared.AuditAction, entity string, id int64, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Before:   before,
		After:    after,
	})
}
