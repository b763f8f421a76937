package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditAction enumerates the mutation kinds tracked in audit_entries.
type AuditAction string

const (
	// AuditCreated marks a row insertion.
	AuditCreated AuditAction = "created"
	// AuditUpdated marks a row update.
	AuditUpdated AuditAction = "updated"
	// AuditDeleted marks a row deletion.
	AuditDeleted AuditAction = "deleted"
)

// AuditEntry represents a record stored in audit_entries. Before is absent for
// creations, After is absent for deletions.
type AuditEntry struct {
	ActorID  int64
	Action   AuditAction
	Entity   string
	EntityID string
	Before   map[string]any
	After    map[string]any
	At       time.Time
}

// AuditRecorder appends entries into audit_entries. Entries are never updated
// or deleted once written.
type AuditRecorder struct {
	pool *pgxpool.Pool
}

// NewAuditRecorder returns a new AuditRecorder.
func NewAuditRecorder(pool *pgxpool.Pool) *AuditRecorder {
	return &AuditRecorder{pool: pool}
}

// Record persists the audit entry.
func (r *AuditRecorder) Record(ctx context.Context, entry AuditEntry) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit entry requires action/entity/entity_id")
	}
	beforeJSON, err := marshalSnapshot(entry.Before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalSnapshot(entry.After)
	if err != nil {
		return err
	}
	var occurredAt any
	if !entry.At.IsZero() {
		occurredAt = entry.At
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_entries (actor_id, action, entity, entity_id, before, after, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		entry.ActorID, string(entry.Action), entry.Entity, entry.EntityID, beforeJSON, afterJSON, occurredAt)
	return err
}

func marshalSnapshot(snapshot map[string]any) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	return json.Marshal(snapshot)
}
