package cases

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

// Repository defines persistence operations for cases.
type Repository interface {
	Get(ctx context.Context, id int64) (*Case, error)
	List(ctx context.Context, req ListCasesRequest) ([]Case, int, error)
	Create(ctx context.Context, c Case) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id, statusID int64) error

	AddProgress(ctx context.Context, entry ProgressEntry) (int64, error)
	ListProgress(ctx context.Context, caseID int64) ([]ProgressEntry, error)

	AddAttachment(ctx context.Context, att Attachment) (int64, error)
	GetAttachment(ctx context.Context, caseID, attachmentID int64) (*Attachment, error)
	ListAttachments(ctx context.Context, caseID int64) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, caseID, attachmentID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const caseColumns = `c.id, c.title, c.description, c.application_id, c.category_id, c.status_id,
	c.priority, c.reporter_id, c.assignee_id, c.created_at, c.updated_at,
	s.id, s.name, s.is_final`

const caseFrom = ` FROM cases c LEFT JOIN statuses s ON s.id = c.status_id `

func (r *repository) Get(ctx context.Context, id int64) (*Case, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+caseColumns+caseFrom+"WHERE c.id = $1", id)
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, req ListCasesRequest) ([]Case, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.StatusID != nil {
		conditions = append(conditions, fmt.Sprintf("c.status_id = $%d", argPos))
		args = append(args, *req.StatusID)
		argPos++
	}
	if req.ApplicationID != nil {
		conditions = append(conditions, fmt.Sprintf("c.application_id = $%d", argPos))
		args = append(args, *req.ApplicationID)
		argPos++
	}
	if req.AssigneeID != nil {
		conditions = append(conditions, fmt.Sprintf("c.assignee_id = $%d", argPos))
		args = append(args, *req.AssigneeID)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		pattern := "%" + *req.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(c.title ILIKE $%d OR c.description ILIKE $%d)", argPos, argPos))
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

	countQuery := "SELECT COUNT(*) FROM cases c " + whereClause
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT "+caseColumns+caseFrom+"%s ORDER BY c.updated_at DESC, c.id DESC LIMIT $%d OFFSET $%d",
		whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Case) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO cases (title, description, application_id, category_id, status_id, priority, reporter_id, assignee_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		c.Title, c.Description, c.ApplicationID, c.CategoryID, c.StatusID, c.Priority, c.ReporterID, assigneeArg(c.AssigneeID)).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE cases SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"title", "description", "application_id", "category_id", "priority", "assignee_id"} {
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
	tag, err := r.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id, statusID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cases SET status_id = $2, updated_at = NOW() WHERE id = $1`, id, statusID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) AddProgress(ctx context.Context, entry ProgressEntry) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO case_progress (case_id, author_id, body) VALUES ($1, $2, $3) RETURNING id`,
		entry.CaseID, entry.AuthorID, entry.Body).Scan(&id)
	return id, err
}

func (r *repository) ListProgress(ctx context.Context, caseID int64) ([]ProgressEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, case_id, author_id, body, created_at FROM case_progress WHERE case_id = $1 ORDER BY created_at ASC, id ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProgressEntry
	for rows.Next() {
		var p ProgressEntry
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&p.ID, &p.CaseID, &p.AuthorID, &p.Body, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = createdAt.Time
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) AddAttachment(ctx context.Context, att Attachment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO case_attachments (case_id, file_name, path, url, content_type, size, uploaded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		att.CaseID, att.FileName, att.Path, att.URL, att.ContentType, att.Size, att.UploadedBy).Scan(&id)
	return id, err
}

func (r *repository) GetAttachment(ctx context.Context, caseID, attachmentID int64) (*Attachment, error) {
	var a Attachment
	var createdAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `SELECT id, case_id, file_name, path, url, content_type, size, uploaded_by, created_at
FROM case_attachments WHERE case_id = $1 AND id = $2`, caseID, attachmentID).
		Scan(&a.ID, &a.CaseID, &a.FileName, &a.Path, &a.URL, &a.ContentType, &a.Size, &a.UploadedBy, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	a.CreatedAt = createdAt.Time
	return &a, nil
}

func (r *repository) ListAttachments(ctx context.Context, caseID int64) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, case_id, file_name, path, url, content_type, size, uploaded_by, created_at
FROM case_attachments WHERE case_id = $1 ORDER BY created_at ASC, id ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attachment
	for rows.Next() {
		var a Attachment
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&a.ID, &a.CaseID, &a.FileName, &a.Path, &a.URL, &a.ContentType, &a.Size, &a.UploadedBy, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = createdAt.Time
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) DeleteAttachment(ctx context.Context, caseID, attachmentID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM case_attachments WHERE case_id = $1 AND id = $2`, caseID, attachmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	var assignee pgtype.Int8
	var createdAt, updatedAt pgtype.Timestamptz
	var statusID pgtype.Int8
	var statusName pgtype.Text
	var statusFinal pgtype.Bool
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.ApplicationID, &c.CategoryID, &c.StatusID,
		&c.Priority, &c.ReporterID, &assignee, &createdAt, &updatedAt,
		&statusID, &statusName, &statusFinal)
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		v := assignee.Int64
		c.AssigneeID = &v
	}
	c.CreatedAt, c.UpdatedAt = createdAt.Time, updatedAt.Time
	// A dangling status_id leaves Status nil; the service locks the case.
	if statusID.Valid {
		c.Status = &policy.StatusRef{ID: statusID.Int64, Name: statusName.String, IsFinal: statusFinal.Bool}
	}
	return &c, nil
}

func assigneeArg(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}
