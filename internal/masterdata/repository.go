package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
	"github.com/speedissuesflow/sif/internal/policy"
)

// Repository provides PostgreSQL backed persistence for the catalogs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListApplications returns applications ordered by name.
func (r *Repository) ListApplications(ctx context.Context) ([]Application, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, is_active, created_at, updated_at FROM applications ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Application
	for rows.Next() {
		var a Application
		var createdAt, updatedAt pgtype.Timestamptz
		if err := rows.Scan(&a.ID, &a.Name, &a.IsActive, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt, a.UpdatedAt = createdAt.Time, updatedAt.Time
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateApplication inserts a catalog row.
func (r *Repository) CreateApplication(ctx context.Context, name string) (Application, error) {
	var a Application
	var createdAt, updatedAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `INSERT INTO applications (name, is_active) VALUES ($1, TRUE)
RETURNING id, name, is_active, created_at, updated_at`, name).
		Scan(&a.ID, &a.Name, &a.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return Application{}, mapPgError(err)
	}
	a.CreatedAt, a.UpdatedAt = createdAt.Time, updatedAt.Time
	return a, nil
}

// UpdateApplication renames or toggles a catalog row.
func (r *Repository) UpdateApplication(ctx context.Context, id int64, name string, isActive bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE applications SET name = $2, is_active = $3, updated_at = NOW() WHERE id = $1`, id, name, isActive)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ListCategories returns categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, is_active, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		var createdAt, updatedAt pgtype.Timestamptz
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt, c.UpdatedAt = createdAt.Time, updatedAt.Time
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory inserts a catalog row.
func (r *Repository) CreateCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	var createdAt, updatedAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, is_active) VALUES ($1, TRUE)
RETURNING id, name, is_active, created_at, updated_at`, name).
		Scan(&c.ID, &c.Name, &c.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return Category{}, mapPgError(err)
	}
	c.CreatedAt, c.UpdatedAt = createdAt.Time, updatedAt.Time
	return c, nil
}

// UpdateCategory renames or toggles a catalog row.
func (r *Repository) UpdateCategory(ctx context.Context, id int64, name string, isActive bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET name = $2, is_active = $3, updated_at = NOW() WHERE id = $1`, id, name, isActive)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ListStatuses returns the status set in configured order.
func (r *Repository) ListStatuses(ctx context.Context) ([]Status, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, position, is_final, created_at, updated_at FROM statuses ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Status
	for rows.Next() {
		var s Status
		var createdAt, updatedAt pgtype.Timestamptz
		if err := rows.Scan(&s.ID, &s.Name, &s.Position, &s.IsFinal, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.CreatedAt, s.UpdatedAt = createdAt.Time, updatedAt.Time
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetStatusRef resolves the minimal status view used for finality checks.
// Missing rows return (nil, nil): callers treat nil as locked.
func (r *Repository) GetStatusRef(ctx context.Context, id int64) (*policy.StatusRef, error) {
	var ref policy.StatusRef
	err := r.pool.QueryRow(ctx, `SELECT id, name, is_final FROM statuses WHERE id = $1`, id).
		Scan(&ref.ID, &ref.Name, &ref.IsFinal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// CreateStatus inserts a status row.
func (r *Repository) CreateStatus(ctx context.Context, name string, position int, isFinal bool) (Status, error) {
	var s Status
	var createdAt, updatedAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `INSERT INTO statuses (name, position, is_final) VALUES ($1, $2, $3)
RETURNING id, name, position, is_final, created_at, updated_at`, name, position, isFinal).
		Scan(&s.ID, &s.Name, &s.Position, &s.IsFinal, &createdAt, &updatedAt)
	if err != nil {
		return Status{}, mapPgError(err)
	}
	s.CreatedAt, s.UpdatedAt = createdAt.Time, updatedAt.Time
	return s, nil
}

// UpdateStatus changes name, order, or finality of a status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, name string, position int, isFinal bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE statuses SET name = $2, position = $3, is_final = $4, updated_at = NOW() WHERE id = $1`,
		id, name, position, isFinal)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return httpx.ErrDuplicate
	}
	return err
}
