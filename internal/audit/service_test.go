package audit

import (
	"context"
	"testing"
	"time"
)

type stubTimelineRepo struct {
	entries    []Entry
	lastLimit  int
	lastOffset int
	allCalls   int
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return s.entries[:limit], nil
}

func (s *stubTimelineRepo) TimelineAll(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	s.allCalls++
	return s.entries, nil
}

func mockEntry(ts, actor, action, entity, entityID string, before, after string) Entry {
	tval, _ := time.Parse(time.RFC3339, ts)
	e := Entry{At: tval, Actor: actor, Action: action, Entity: entity, EntityID: entityID}
	if before != "" {
		e.Before = []byte(before)
	}
	if after != "" {
		e.After = []byte(after)
	}
	return e
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		entries: []Entry{
			mockEntry("2024-03-10T10:00:00Z", "ana@sif.local", "updated", "cases", "1", `{"title":"a"}`, `{"title":"b"}`),
			mockEntry("2024-03-09T09:00:00Z", "ana@sif.local", "created", "cases", "2", "", `{"title":"c"}`),
			mockEntry("2024-03-08T08:00:00Z", "ana@sif.local", "deleted", "tests", "3", `{"title":"d"}`, ""),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
	if result.Rows[0].Description != "Cambios: title: b" {
		t.Fatalf("expected reconstructed description, got %q", result.Rows[0].Description)
	}
	if result.Rows[1].Description != "Registro creado" {
		t.Fatalf("expected created label, got %q", result.Rows[1].Description)
	}
}

func TestServiceExportReturnsAllRows(t *testing.T) {
	repo := &stubTimelineRepo{
		entries: []Entry{
			mockEntry("2024-03-10T10:00:00Z", "actor", "updated", "cases", "1", `{"x":1}`, `{"x":2}`),
			mockEntry("2024-03-09T09:00:00Z", "actor", "deleted", "cases", "2", `{"x":1}`, ""),
		},
	}
	svc := NewService(repo)
	rows, err := svc.Export(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Description != "Registro eliminado" {
		t.Fatalf("expected deleted label, got %q", rows[1].Description)
	}
	if repo.allCalls != 1 {
		t.Fatalf("expected one repo call, got %d", repo.allCalls)
	}
}
