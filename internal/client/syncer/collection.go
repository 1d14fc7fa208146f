package syncer

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

// collection erases the record type so the engine can walk all kinds in one
// loop.
type collection interface {
	kind() models.Kind
	gather(ctx context.Context, key []byte, cursor models.SyncCursor, out *Outcome) ([]models.EncryptedRecord, error)
	lookup(ctx context.Context, key []byte, uids []string, out *Outcome) []models.EncryptedRecord
	merge(ctx context.Context, key []byte, inbound []models.EncryptedRecord, out *Outcome)
}

type typedCollection[T models.Record[T]] struct {
	k     models.Kind
	store Store[T]
	log   logging.Logger
}

func newCollection[T models.Record[T]](k models.Kind, store Store[T], log logging.Logger) *typedCollection[T] {
	return &typedCollection[T]{k: k, store: store, log: log.With("kind", string(k))}
}

func (c *typedCollection[T]) kind() models.Kind { return c.k }

func (c *typedCollection[T]) gather(ctx context.Context, key []byte, cursor models.SyncCursor, out *Outcome) ([]models.EncryptedRecord, error) {
	var (
		recs []T
		err  error
	)
	if cursor.NeedsFullSync {
		recs, err = c.store.All(ctx)
	} else {
		recs, err = c.store.AllSince(ctx, cursor.LastSync)
	}
	if err != nil {
		return nil, err
	}

	sealed := make([]models.EncryptedRecord, 0, len(recs))
	for _, rec := range recs {
		env, err := seal(rec, key)
		if err != nil {
			out.Dropped++
			c.log.Warn(ctx, "dropping record from sync payload", "uid", rec.Meta().UID, "error", err)
			continue
		}
		sealed = append(sealed, env)
	}
	return sealed, nil
}

func (c *typedCollection[T]) lookup(ctx context.Context, key []byte, uids []string, out *Outcome) []models.EncryptedRecord {
	sealed := make([]models.EncryptedRecord, 0, len(uids))
	for _, uid := range uids {
		rec, err := c.store.GetByID(ctx, uid)
		if errors.Is(err, common.ErrNotFound) {
			c.log.Warn(ctx, "server reported orphan that does not exist locally", "uid", uid)
			continue
		}
		if err != nil {
			c.log.Error(ctx, "orphan lookup failed", "uid", uid, "error", err)
			continue
		}
		env, err := seal(rec, key)
		if err != nil {
			out.Dropped++
			c.log.Warn(ctx, "dropping orphan from repair payload", "uid", uid, "error", err)
			continue
		}
		sealed = append(sealed, env)
	}
	return sealed
}

func (c *typedCollection[T]) merge(ctx context.Context, key []byte, inbound []models.EncryptedRecord, out *Outcome) {
	for _, env := range inbound {
		out.Received++

		res, err := mergeOne(ctx, c.store, key, env)
		switch res {
		case mergeInserted:
			out.Inserted++
		case mergeUpdated:
			out.Updated++
		case mergeUnchanged:
			out.Unchanged++
		case mergeSkipped:
			out.Skipped++
			c.log.Warn(ctx, "skipping inbound record", "uid", env.UID, "error", err)
		case mergeFailed:
			out.Failed++
			c.log.Error(ctx, "failed to store inbound record", "uid", env.UID, "error", err)
		}
	}
}

func seal[T models.Syncable](rec T, key []byte) (models.EncryptedRecord, error) {
	m := rec.Meta()
	ct, nonce, err := cryptox.Encrypt(rec, key)
	if err != nil {
		return models.EncryptedRecord{}, err
	}
	return models.EncryptedRecord{
		Ciphertext:  ct,
		Nonce:       nonce,
		UID:         m.UID,
		LastUpdated: m.LastUpdated,
	}, nil
}
