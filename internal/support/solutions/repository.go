package solutions

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

// Repository defines persistence operations for solutions.
type Repository interface {
	Get(ctx context.Context, id int64) (*Solution, error)
	List(ctx context.Context, req ListSolutionsRequest) ([]Solution, int, error)
	Create(ctx context.Context, s Solution) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id, statusID int64) error
	SetSummary(ctx context.Context, id int64, summary string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const solutionColumns = `sl.id, sl.title, sl.problem, sl.resolution, sl.summary, sl.application_id,
	sl.case_id, sl.status_id, sl.author_id, sl.created_at, sl.updated_at, s.id, s.name, s.is_final`

const solutionFrom = ` FROM solutions sl LEFT JOIN statuses s ON s.id = sl.status_id `

func (r *repository) Get(ctx context.Context, id int64) (*Solution, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+solutionColumns+solutionFrom+"WHERE sl.id = $1", id)
	sol, err := scanSolution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return sol, nil
}

func (r *repository) List(ctx context.Context, req ListSolutionsRequest) ([]Solution, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.ApplicationID != nil {
		conditions = append(conditions, fmt.Sprintf("sl.application_id = $%d", argPos))
		args = append(args, *req.ApplicationID)
		argPos++
	}
	if req.StatusID != nil {
		conditions = append(conditions, fmt.Sprintf("sl.status_id = $%d", argPos))
		args = append(args, *req.StatusID)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		pattern := "%" + *req.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(sl.title ILIKE $%d OR sl.problem ILIKE $%d OR sl.resolution ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM solutions sl "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT "+solutionColumns+solutionFrom+"%s ORDER BY sl.updated_at DESC, sl.id DESC LIMIT $%d OFFSET $%d",
		whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Solution
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *sol)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, s Solution) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO solutions (title, problem, resolution, application_id, case_id, status_id, author_id)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		s.Title, s.Problem, s.Resolution, s.ApplicationID, caseArg(s.CaseID), s.StatusID, s.AuthorID).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE solutions SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"title", "problem", "resolution", "case_id"} {
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
	tag, err := r.pool.Exec(ctx, `DELETE FROM solutions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id, statusID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE solutions SET status_id = $2, updated_at = NOW() WHERE id = $1`, id, statusID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) SetSummary(ctx context.Context, id int64, summary string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE solutions SET summary = $2 WHERE id = $1`, id, summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanSolution(row pgx.Row) (*Solution, error) {
	var s Solution
	var summary pgtype.Text
	var caseID pgtype.Int8
	var createdAt, updatedAt pgtype.Timestamptz
	var statusID pgtype.Int8
	var statusName pgtype.Text
	var statusFinal pgtype.Bool
	err := row.Scan(&s.ID, &s.Title, &s.Problem, &s.Resolution, &summary, &s.ApplicationID,
		&caseID, &s.StatusID, &s.AuthorID, &createdAt, &updatedAt,
		&statusID, &statusName, &statusFinal)
	if err != nil {
		return nil, err
	}
	if summary.Valid {
		v := summary.String
		s.Summary = &v
	}
	if caseID.Valid {
		v := caseID.Int64
		s.CaseID = &v
	}
	s.CreatedAt, s.UpdatedAt = createdAt.Time, updatedAt.Time
	if statusID.Valid {
		s.Status = &policy.StatusRef{ID: statusID.Int64, Name: statusName.String, IsFinal: statusFinal.Bool}
	}
	return &s, nil
}

func caseArg(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}
