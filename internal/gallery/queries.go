package gallery

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/hpungsan/frag/internal/errors"
)

const summaryColumns = `id, mime_type, byte_size, width, height, digest, created_at, deleted_at`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert stores a new asset.
func Insert(ctx context.Context, db *sql.DB, a *Asset) error {
	return insertAsset(ctx, db, a, false)
}

// insertAsset writes every column including deleted_at. With replace set an
// existing row with the same id is overwritten.
func insertAsset(ctx context.Context, ex execer, a *Asset, replace bool) error {
	verb := "INSERT"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	query := verb + ` INTO assets (
			id, mime_type, byte_size, width, height, digest, data, created_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var deletedAt sql.NullInt64
	if a.DeletedAt != nil {
		deletedAt = sql.NullInt64{Int64: *a.DeletedAt, Valid: true}
	}
	_, err := ex.ExecContext(ctx, query,
		a.ID, a.MimeType, a.ByteSize, a.Width, a.Height, a.Digest, a.Data, a.CreatedAt, deletedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Exists reports whether any row, deleted or not, has the given id.
func Exists(ctx context.Context, db *sql.DB, id string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE id = ?`, id).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// StreamForBackup returns full rows oldest first. The caller closes rows and
// reads each with scanAsset.
func StreamForBackup(ctx context.Context, db *sql.DB, includeDeleted bool) (*sql.Rows, error) {
	query := `SELECT ` + summaryColumns + `, data FROM assets`
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

func scanAsset(rows *sql.Rows) (*Asset, error) {
	var (
		a         Asset
		deletedAt sql.NullInt64
	)
	if err := rows.Scan(
		&a.ID, &a.MimeType, &a.ByteSize, &a.Width, &a.Height, &a.Digest,
		&a.CreatedAt, &deletedAt, &a.Data,
	); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.Int64
	}
	return &a, nil
}

// GetByID retrieves an asset including its bytes.
// If includeDeleted is false, soft-deleted assets are excluded.
func GetByID(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*Asset, error) {
	query := `SELECT ` + summaryColumns + `, data FROM assets WHERE id = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	var (
		a         Asset
		deletedAt sql.NullInt64
	)
	err := db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.MimeType, &a.ByteSize, &a.Width, &a.Height, &a.Digest,
		&a.CreatedAt, &deletedAt, &a.Data,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.Int64
	}
	return &a, nil
}

// ListSummaries returns one page of asset summaries, newest first, and the
// total number of matching assets.
func ListSummaries(ctx context.Context, db *sql.DB, limit, offset int, includeDeleted bool) ([]Summary, int, error) {
	where := " WHERE deleted_at IS NULL"
	if includeDeleted {
		where = ""
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets"+where).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + summaryColumns + ` FROM assets` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []Summary
	for rows.Next() {
		var (
			a         Asset
			deletedAt sql.NullInt64
		)
		if err := rows.Scan(
			&a.ID, &a.MimeType, &a.ByteSize, &a.Width, &a.Height, &a.Digest,
			&a.CreatedAt, &deletedAt,
		); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		if deletedAt.Valid {
			a.DeletedAt = &deletedAt.Int64
		}
		items = append(items, a.ToSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return items, total, nil
}

// SoftDelete marks an asset as deleted by setting deleted_at.
func SoftDelete(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE assets SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// PurgeDeleted permanently removes soft-deleted assets. With olderThanDays
// set, only assets deleted before that cutoff are removed.
func PurgeDeleted(ctx context.Context, db *sql.DB, olderThanDays *int) (int, error) {
	query := `DELETE FROM assets WHERE deleted_at IS NOT NULL`
	var args []any
	if olderThanDays != nil {
		cutoff := time.Now().Add(-time.Duration(*olderThanDays) * 24 * time.Hour).Unix()
		query += " AND deleted_at < ?"
		args = append(args, cutoff)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}
