package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// WithTx returns a repository bound to tx, for use inside dbx.WithTx.
func (r *SQLiteRepository) WithTx(tx dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: tx}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("metadata[%s]: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

// SetMany writes all values atomically. On a repository already bound to a
// transaction the writes join that transaction.
func (r *SQLiteRepository) SetMany(ctx context.Context, values map[string][]byte) error {
	db, ok := r.db.(*sql.DB)
	if !ok {
		return r.setAll(ctx, values)
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return r.WithTx(tx).setAll(ctx, values)
	})
}

func (r *SQLiteRepository) setAll(ctx context.Context, values map[string][]byte) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if err := r.Set(ctx, key, values[key]); err != nil {
			return err
		}
	}
	return nil
}
