// Package settings persists the login credential and the sync cursor in the
// metadata table.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/common"
)

const (
	keyCredential    = "credential"
	keyLastSync      = "last_sync"
	keyNeedsFullSync = "needs_full_sync"
)

type Store struct {
	meta metadata.Repository
}

func NewStore(meta metadata.Repository) *Store {
	return &Store{meta: meta}
}

// LoadCredential returns the stored credential, or nil when the client is
// logged out.
func (s *Store) LoadCredential(ctx context.Context) (*models.Credential, error) {
	raw, err := s.meta.Get(ctx, keyCredential)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var c models.Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &c, nil
}

func (s *Store) SaveCredential(ctx context.Context, c *models.Credential) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	return s.meta.Set(ctx, keyCredential, raw)
}

func (s *Store) ClearCredential(ctx context.Context) error {
	return s.meta.Delete(ctx, keyCredential)
}

// LoadCursor returns the persisted cursor. A client that never synced gets
// the zero cursor.
func (s *Store) LoadCursor(ctx context.Context) (models.SyncCursor, error) {
	var c models.SyncCursor

	raw, err := s.meta.Get(ctx, keyLastSync)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return c, err
	default:
		if c.LastSync, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
			return c, fmt.Errorf("decode %s: %w", keyLastSync, err)
		}
	}

	raw, err = s.meta.Get(ctx, keyNeedsFullSync)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return c, err
	default:
		if c.NeedsFullSync, err = strconv.ParseBool(string(raw)); err != nil {
			return c, fmt.Errorf("decode %s: %w", keyNeedsFullSync, err)
		}
	}

	return c, nil
}

// SaveCursor writes both cursor fields in one transaction.
func (s *Store) SaveCursor(ctx context.Context, c models.SyncCursor) error {
	return s.meta.SetMany(ctx, map[string][]byte{
		keyLastSync:      []byte(strconv.FormatInt(c.LastSync, 10)),
		keyNeedsFullSync: []byte(strconv.FormatBool(c.NeedsFullSync)),
	})
}
