package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
)

type mergeResult int

const (
	mergeInserted mergeResult = iota
	mergeUpdated
	mergeUnchanged
	mergeSkipped
	mergeFailed
)

var errUIDMismatch = errors.New("envelope uid does not match payload")

// mergeOne applies one inbound record with last-write-wins: an unknown uid is
// inserted, a strictly newer record overwrites the local copy, anything else
// leaves the local copy in place. Tombstones follow the same rule.
func mergeOne[T models.Record[T]](ctx context.Context, store Store[T], key []byte, env models.EncryptedRecord) (mergeResult, error) {
	in, err := open[T](env, key)
	if err != nil {
		return mergeSkipped, err
	}
	m := in.Meta()

	local, err := store.GetByID(ctx, m.UID)
	if errors.Is(err, common.ErrNotFound) {
		if err := store.Insert(ctx, in); err != nil {
			return mergeFailed, err
		}
		return mergeInserted, nil
	}
	if err != nil {
		return mergeFailed, err
	}

	if m.LastUpdated <= local.Meta().LastUpdated {
		return mergeUnchanged, nil
	}
	if err := store.Update(ctx, in); err != nil {
		return mergeFailed, err
	}
	return mergeUpdated, nil
}

// open decrypts env into a record. The sealed payload carries its own
// SyncMeta; the clear envelope fields only fill in what it lacks.
func open[T models.Record[T]](env models.EncryptedRecord, key []byte) (T, error) {
	var rec T
	if err := cryptox.Decrypt(env.Ciphertext, env.Nonce, key, &rec); err != nil {
		return rec, err
	}

	m := rec.Meta()
	switch {
	case m.UID == "":
		m.UID = env.UID
	case env.UID != "" && m.UID != env.UID:
		return rec, fmt.Errorf("%w: %q vs %q", errUIDMismatch, env.UID, m.UID)
	}
	if m.UID == "" {
		return rec, common.ErrEmptyUID
	}
	if m.LastUpdated == 0 {
		m.LastUpdated = env.LastUpdated
	}
	return rec.WithMeta(m), nil
}
