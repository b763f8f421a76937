package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads audit entries from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineBaseQuery = `
SELECT a.id, a.occurred_at, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.before, a.after
FROM audit_entries a
LEFT JOIN users u ON u.id = a.actor_id
WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR a.occurred_at <= $2)
  AND ($3::text IS NULL OR u.email ILIKE '%' || $3 || '%')
  AND ($4::text IS NULL OR a.entity = $4)
  AND ($5::text IS NULL OR a.action = $5)
ORDER BY a.occurred_at DESC, a.id DESC`

// TimelineWindow returns one page of entries, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	query := timelineBaseQuery + fmt.Sprintf(" LIMIT $%d OFFSET $%d", 6, 7)
	rows, err := r.pool.Query(ctx, query,
		toPgTime(filters), toPgTimeTo(filters),
		optionalText(filters.Actor), optionalText(filters.Entity), optionalText(filters.Action),
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// TimelineAll returns every matching entry, newest first.
func (r *PGRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, timelineBaseQuery,
		toPgTime(filters), toPgTimeTo(filters),
		optionalText(filters.Actor), optionalText(filters.Entity), optionalText(filters.Action))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows pgxRows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var at pgtype.Timestamptz
		var before, after []byte
		if err := rows.Scan(&e.ID, &at, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &before, &after); err != nil {
			return nil, err
		}
		if at.Valid {
			e.At = at.Time
		}
		e.Before = before
		e.After = after
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func toPgTime(filters TimelineFilters) pgtype.Timestamptz {
	if filters.From.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: filters.From, Valid: true}
}

func toPgTimeTo(filters TimelineFilters) pgtype.Timestamptz {
	if filters.To.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: filters.To, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

var _ Repository = (*PGRepository)(nil)
