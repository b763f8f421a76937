package audit

import (
	"context"
	"fmt"
)

// Repository provides read access to audit_entries.
type Repository interface {
	TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error)
	TimelineAll(ctx context.Context, filters TimelineFilters) ([]Entry, error)
}

// Service coordinates audit timeline reads. Entries are append-only; the
// service never writes.
type Service struct {
	repo Repository
}

// NewService builds the audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches a page of audit entries with descriptions reconstructed
// from the stored snapshots.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	entries, err := s.repo.TimelineWindow(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(entries) > pageSize
	if hasNext {
		entries = entries[:pageSize]
	}
	rows := make([]TimelineRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, mapRow(entry))
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching entry without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	entries, err := s.repo.TimelineAll(ctx, filters)
	if err != nil {
		return nil, err
	}
	rows := make([]TimelineRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, mapRow(entry))
	}
	return rows, nil
}

func mapRow(entry Entry) TimelineRow {
	return TimelineRow{
		At:          entry.At,
		Actor:       entry.Actor,
		Action:      entry.Action,
		Entity:      entry.Entity,
		EntityID:    entry.EntityID,
		Description: DescribeRaw(entry.Action, entry.Before, entry.After),
	}
}
