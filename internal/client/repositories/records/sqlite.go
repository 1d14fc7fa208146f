package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

// SQLiteRepository stores records of a single kind over a dbx.DBTX.
type SQLiteRepository[T models.Record[T]] struct {
	db   dbx.DBTX
	kind models.Kind
}

// NewSQLiteRepository returns a repository for records of kind.
func NewSQLiteRepository[T models.Record[T]](db dbx.DBTX, kind models.Kind) *SQLiteRepository[T] {
	return &SQLiteRepository[T]{db: db, kind: kind}
}

// Insert adds a new record. It fails if the uid already exists.
func (r *SQLiteRepository[T]) Insert(ctx context.Context, rec T) error {
	m := rec.Meta()
	if m.UID == "" {
		return common.ErrEmptyUID
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", r.kind, m.UID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (kind, uid, last_updated, is_deleted, payload)
		VALUES (?, ?, ?, ?, ?)
	`, r.kind, m.UID, m.LastUpdated, m.IsDeleted, payload)
	if err != nil {
		return fmt.Errorf("failed to insert %s %s: %w", r.kind, m.UID, err)
	}
	return nil
}

// Update overwrites an existing record. It returns common.ErrNotFound when
// the uid is unknown.
func (r *SQLiteRepository[T]) Update(ctx context.Context, rec T) error {
	m := rec.Meta()
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", r.kind, m.UID, err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET last_updated = ?, is_deleted = ?, payload = ?
		WHERE kind = ? AND uid = ?
	`, m.LastUpdated, m.IsDeleted, payload, r.kind, m.UID)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", r.kind, m.UID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", r.kind, m.UID, common.ErrNotFound)
	}
	return nil
}

// GetByID returns the record with uid, tombstones included.
func (r *SQLiteRepository[T]) GetByID(ctx context.Context, uid string) (T, error) {
	var zero T
	row := r.db.QueryRowContext(ctx, `
		SELECT uid, last_updated, is_deleted, payload FROM records WHERE kind = ? AND uid = ?
	`, r.kind, uid)

	rec, err := scanRecord[T](row)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s %s: %w", r.kind, uid, common.ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s %s: %w", r.kind, uid, err)
	}
	return rec, nil
}

// All returns every record of the kind, tombstones included.
func (r *SQLiteRepository[T]) All(ctx context.Context) ([]T, error) {
	return r.query(ctx, `
		SELECT uid, last_updated, is_deleted, payload FROM records
		WHERE kind = ? ORDER BY last_updated, uid
	`, r.kind)
}

// AllSince returns records with last_updated strictly greater than ts.
func (r *SQLiteRepository[T]) AllSince(ctx context.Context, ts int64) ([]T, error) {
	return r.query(ctx, `
		SELECT uid, last_updated, is_deleted, payload FROM records
		WHERE kind = ? AND last_updated > ? ORDER BY last_updated, uid
	`, r.kind, ts)
}

// Live returns the records that are not tombstoned, newest first.
func (r *SQLiteRepository[T]) Live(ctx context.Context) ([]T, error) {
	return r.query(ctx, `
		SELECT uid, last_updated, is_deleted, payload FROM records
		WHERE kind = ? AND is_deleted = 0 ORDER BY last_updated DESC, uid
	`, r.kind)
}

func (r *SQLiteRepository[T]) query(ctx context.Context, q string, args ...any) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s records: %w", r.kind, err)
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		rec, err := scanRecord[T](rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", r.kind, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s records: %w", r.kind, err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord decodes the payload and then applies the column values, which
// are authoritative for the sync metadata.
func scanRecord[T models.Record[T]](s scanner) (T, error) {
	var (
		rec     T
		meta    models.SyncMeta
		payload []byte
	)
	if err := s.Scan(&meta.UID, &meta.LastUpdated, &meta.IsDeleted, &payload); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return rec, fmt.Errorf("decode payload: %w", err)
	}
	return rec.WithMeta(meta), nil
}
