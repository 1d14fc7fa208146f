// Package metadata is a small key/value store in the local database. The
// settings package builds the persisted credential and sync cursor on top
// of it.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value store. Get returns
// common.ErrNotFound for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	SetMany(ctx context.Context, values map[string][]byte) error
}
