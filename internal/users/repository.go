package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/shared"
)

// Repository defines persistence operations for user accounts.
type Repository interface {
	Get(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user User) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	RoleByUserID(ctx context.Context, id int64) (policy.Role, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = "id, email, name, role, password_hash, is_active, created_at, updated_at"

// Get fetches a user by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetByEmail fetches a user by email.
func (r *PGRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

// List returns all accounts ordered by email.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Create inserts a new account.
func (r *PGRepository) Create(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, role, password_hash, is_active)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		user.Email, user.Name, string(user.Role), user.PasswordHash, user.IsActive).Scan(&id)
	return id, err
}

// Update applies a partial update built from the provided column map.
func (r *PGRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE users SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"email", "name", "role", "password_hash", "is_active"} {
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
		return shared.ErrNotFound
	}
	return nil
}

// RoleByUserID resolves just the role column for policy checks.
func (r *PGRepository) RoleByUserID(ctx context.Context, id int64) (policy.Role, error) {
	var role string
	var active bool
	err := r.pool.QueryRow(ctx, "SELECT role, is_active FROM users WHERE id = $1", id).Scan(&role, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	if !active {
		return "", shared.ErrNotFound
	}
	return policy.Role(role), nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.IsActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	u.Role = policy.Role(role)
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		u.UpdatedAt = updatedAt.Time
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
