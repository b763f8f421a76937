package tests

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
)

// Repository defines persistence operations for tests.
type Repository interface {
	Get(ctx context.Context, id int64) (*Test, error)
	ListByCase(ctx context.Context, caseID int64) ([]Test, error)
	Create(ctx context.Context, t Test) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id, statusID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const testColumns = `t.id, t.case_id, t.title, t.description, t.status_id, t.outcome,
	t.executed_by, t.created_at, t.updated_at, s.id, s.name, s.is_final`

const testFrom = ` FROM tests t LEFT JOIN statuses s ON s.id = t.status_id `

func (r *repository) Get(ctx context.Context, id int64) (*Test, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+testColumns+testFrom+"WHERE t.id = $1", id)
	t, err := scanTest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *repository) ListByCase(ctx context.Context, caseID int64) ([]Test, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+testColumns+testFrom+"WHERE t.case_id = $1 ORDER BY t.created_at ASC, t.id ASC", caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, t Test) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO tests (case_id, title, description, status_id, outcome, executed_by)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		t.CaseID, t.Title, t.Description, t.StatusID, t.Outcome, t.ExecutedBy).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE tests SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"title", "description", "outcome"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id, statusID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tests SET status_id = $2, updated_at = NOW() WHERE id = $1`, id, statusID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanTest(row pgx.Row) (*Test, error) {
	var t Test
	var createdAt, updatedAt pgtype.Timestamptz
	var statusID pgtype.Int8
	var statusName pgtype.Text
	var statusFinal pgtype.Bool
	err := row.Scan(&t.ID, &t.CaseID, &t.Title, &t.Description, &t.StatusID, &t.Outcome,
		&t.ExecutedBy, &createdAt, &updatedAt, &statusID, &statusName, &statusFinal)
	if err != nil {
		return nil, err
	}
	t.CreatedAt, t.UpdatedAt = createdAt.Time, updatedAt.Time
	if statusID.Valid {
		t.Status = &policy.StatusRef{ID: statusID.Int64, Name: statusName.String, IsFinal: statusFinal.Bool}
	}
	return &t, nil
}
