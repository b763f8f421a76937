package resources

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/speedissuesflow/sif/internal/platform/httpx"
)

// Repository defines persistence operations for folders and resources.
type Repository interface {
	CreateFolder(ctx context.Context, f Folder) (int64, error)
	GetFolder(ctx context.Context, id int64) (*Folder, error)
	ListFolders(ctx context.Context, parentID *int64) ([]Folder, error)
	RenameFolder(ctx context.Context, id int64, name string) error
	DeleteFolder(ctx context.Context, id int64) error
	FolderHasChildren(ctx context.Context, id int64) (bool, error)

	CreateResource(ctx context.Context, r Resource) (int64, error)
	GetResource(ctx context.Context, id int64) (*Resource, error)
	GetByShareToken(ctx context.Context, token string) (*Resource, error)
	ListResources(ctx context.Context, folderID *int64) ([]Resource, error)
	SearchResources(ctx context.Context, normalizedTerm string) ([]Resource, error)
	RenameResource(ctx context.Context, id int64, name, normalized string) error
	MoveResource(ctx context.Context, id int64, folderID *int64) error
	DeleteResource(ctx context.Context, id int64) error

	UpdateShare(ctx context.Context, id int64, state ShareState) error
	SetShareToken(ctx context.Context, id int64, token string) error
	DisableSharesExpiredBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) CreateFolder(ctx context.Context, f Folder) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO folders (name, parent_id, created_by) VALUES ($1, $2, $3) RETURNING id`,
		f.Name, int8Arg(f.ParentID), f.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) GetFolder(ctx context.Context, id int64) (*Folder, error) {
	var f Folder
	var parent pgtype.Int8
	var createdAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `SELECT id, name, parent_id, created_by, created_at FROM folders WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &parent, &f.CreatedBy, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if parent.Valid {
		v := parent.Int64
		f.ParentID = &v
	}
	f.CreatedAt = createdAt.Time
	return &f, nil
}

func (r *repository) ListFolders(ctx context.Context, parentID *int64) ([]Folder, error) {
	query := `SELECT id, name, parent_id, created_by, created_at FROM folders WHERE parent_id IS NULL ORDER BY name ASC`
	args := []any{}
	if parentID != nil {
		query = `SELECT id, name, parent_id, created_by, created_at FROM folders WHERE parent_id = $1 ORDER BY name ASC`
		args = append(args, *parentID)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Folder
	for rows.Next() {
		var f Folder
		var parent pgtype.Int8
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&f.ID, &f.Name, &parent, &f.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		if parent.Valid {
			v := parent.Int64
			f.ParentID = &v
		}
		f.CreatedAt = createdAt.Time
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) RenameFolder(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE folders SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteFolder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) FolderHasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM folders WHERE parent_id = $1
		UNION
		SELECT 1 FROM resources WHERE folder_id = $1)`, id).Scan(&exists)
	return exists, err
}

const resourceColumns = `id, folder_id, name, path, url, content_type, size, uploaded_by,
	share_token, share_enabled, share_expires_at, share_permission, created_at, updated_at`

func (r *repository) CreateResource(ctx context.Context, res Resource) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO resources
(folder_id, name, name_normalized, path, url, content_type, size, uploaded_by, share_permission)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		int8Arg(res.FolderID), res.Name, NormalizeSearch(res.Name), res.Path, res.URL,
		res.ContentType, res.Size, res.UploadedBy, res.ShareState.Permission).Scan(&id)
	return id, err
}

func (r *repository) GetResource(ctx context.Context, id int64) (*Resource, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+resourceColumns+" FROM resources WHERE id = $1", id)
	return scanResource(row)
}

func (r *repository) GetByShareToken(ctx context.Context, token string) (*Resource, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+resourceColumns+" FROM resources WHERE share_token = $1", token)
	return scanResource(row)
}

func (r *repository) ListResources(ctx context.Context, folderID *int64) ([]Resource, error) {
	query := "SELECT " + resourceColumns + " FROM resources WHERE folder_id IS NULL ORDER BY name ASC"
	args := []any{}
	if folderID != nil {
		query = "SELECT " + resourceColumns + " FROM resources WHERE folder_id = $1 ORDER BY name ASC"
		args = append(args, *folderID)
	}
	return r.queryResources(ctx, query, args...)
}

func (r *repository) SearchResources(ctx context.Context, normalizedTerm string) ([]Resource, error) {
	pattern := "%" + normalizedTerm + "%"
	return r.queryResources(ctx,
		"SELECT "+resourceColumns+" FROM resources WHERE name_normalized LIKE $1 ORDER BY name ASC", pattern)
}

func (r *repository) RenameResource(ctx context.Context, id int64, name, normalized string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE resources SET name = $2, name_normalized = $3, updated_at = NOW() WHERE id = $1`,
		id, name, normalized)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) MoveResource(ctx context.Context, id int64, folderID *int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE resources SET folder_id = $2, updated_at = NOW() WHERE id = $1`,
		id, int8Arg(folderID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteResource(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateShare(ctx context.Context, id int64, state ShareState) error {
	var expires pgtype.Timestamptz
	if state.ExpiresAt != nil {
		expires = pgtype.Timestamptz{Time: *state.ExpiresAt, Valid: true}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE resources
SET share_enabled = $2, share_expires_at = $3, share_permission = $4, updated_at = NOW()
WHERE id = $1`, id, state.Enabled, expires, state.Permission)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SetShareToken swaps the token in a single statement so the old one stops
// resolving the instant the new one exists.
func (r *repository) SetShareToken(ctx context.Context, id int64, token string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE resources SET share_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) DisableSharesExpiredBefore(ctx context.Context, cutoff pgtype.Timestamptz) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE resources
SET share_enabled = FALSE, share_token = NULL, updated_at = NOW()
WHERE share_enabled = TRUE AND share_expires_at IS NOT NULL AND share_expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) queryResources(ctx context.Context, query string, args ...any) ([]Resource, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func scanResource(row pgx.Row) (*Resource, error) {
	var res Resource
	var folderID pgtype.Int8
	var token pgtype.Text
	var expires pgtype.Timestamptz
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&res.ID, &folderID, &res.Name, &res.Path, &res.URL, &res.ContentType,
		&res.Size, &res.UploadedBy, &token, &res.ShareState.Enabled, &expires,
		&res.ShareState.Permission, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if folderID.Valid {
		v := folderID.Int64
		res.FolderID = &v
	}
	if token.Valid {
		v := token.String
		res.ShareToken = &v
	}
	if expires.Valid {
		v := expires.Time
		res.ShareState.ExpiresAt = &v
	}
	res.CreatedAt, res.UpdatedAt = createdAt.Time, updatedAt.Time
	return &res, nil
}

func int8Arg(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}
