package audit

import (
	"strings"
	"testing"
)

func mustSnapshot(t *testing.T, raw string) Snapshot {
	t.Helper()
	snap, err := ParseSnapshot([]byte(raw))
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	return snap
}

func TestDescribeCreatedAndDeleted(t *testing.T) {
	if got := DescribeChange(ActionCreated, Snapshot{}, mustSnapshot(t, `{"title":"x"}`)); got != "Registro creado" {
		t.Fatalf("created: got %q", got)
	}
	if got := DescribeChange(ActionDeleted, mustSnapshot(t, `{"title":"x"}`), Snapshot{}); got != "Registro eliminado" {
		t.Fatalf("deleted: got %q", got)
	}
}

func TestDescribeUpdatedListsChangedFields(t *testing.T) {
	before := mustSnapshot(t, `{"title":"old","priority":"low","updated_at":"2024-01-01T00:00:00Z"}`)
	after := mustSnapshot(t, `{"title":"new","priority":"low","updated_at":"2024-02-01T00:00:00Z"}`)
	got := DescribeChange(ActionUpdated, before, after)
	if got != "Cambios: title: new" {
		t.Fatalf("got %q", got)
	}
}

func TestDescribeUpdatedExcludesTimestampsEvenWhenChanged(t *testing.T) {
	before := mustSnapshot(t, `{"created_at":"2024-01-01","updated_at":"2024-01-01","name":"a"}`)
	after := mustSnapshot(t, `{"created_at":"2024-06-01","updated_at":"2024-06-01","name":"a"}`)
	if got := DescribeChange(ActionUpdated, before, after); got != "Registro actualizado" {
		t.Fatalf("timestamp-only change must yield generic label, got %q", got)
	}
}

func TestDescribeUpdatedNoDifference(t *testing.T) {
	snap := mustSnapshot(t, `{"title":"same","tags":["a","b"]}`)
	if got := DescribeChange(ActionUpdated, snap, snap); got != "Registro actualizado" {
		t.Fatalf("identical snapshots must yield generic label, got %q", got)
	}
}

func TestDescribeUpdatedStructuralEquality(t *testing.T) {
	// Nested objects with reordered keys are equal structurally even though
	// their serialized forms differ.
	before := mustSnapshot(t, `{"meta":{"a":1,"b":2},"title":"t"}`)
	after := mustSnapshot(t, `{"meta":{"b":2,"a":1},"title":"t"}`)
	if got := DescribeChange(ActionUpdated, before, after); got != "Registro actualizado" {
		t.Fatalf("reordered nested keys must compare equal, got %q", got)
	}
}

func TestDescribeUpdatedFieldOrderFollowsAfterSnapshot(t *testing.T) {
	before := mustSnapshot(t, `{"b":"1","a":"1"}`)
	after := mustSnapshot(t, `{"b":"2","a":"2"}`)
	got := DescribeChange(ActionUpdated, before, after)
	if got != "Cambios: b: 2, a: 2" {
		t.Fatalf("field order must follow the after snapshot, got %q", got)
	}
	if strings.Count(got, "a: 2") != 1 || strings.Count(got, "b: 2") != 1 {
		t.Fatalf("each changed field must appear exactly once, got %q", got)
	}
}

func TestDescribeUpdatedNewField(t *testing.T) {
	before := mustSnapshot(t, `{"title":"t"}`)
	after := mustSnapshot(t, `{"title":"t","assignee":"ana"}`)
	if got := DescribeChange(ActionUpdated, before, after); got != "Cambios: assignee: ana" {
		t.Fatalf("got %q", got)
	}
}

func TestDescribeRawMalformedSnapshotsDegrade(t *testing.T) {
	if got := DescribeRaw(ActionUpdated, []byte(`{"a":`), []byte(`not json`)); got != "Registro actualizado" {
		t.Fatalf("malformed snapshots must degrade to generic label, got %q", got)
	}
	if got := DescribeRaw("unknown", nil, nil); got != "Registro actualizado" {
		t.Fatalf("unknown action must degrade, got %q", got)
	}
}
