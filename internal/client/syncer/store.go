package syncer

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
)

// Store is the local record storage the engine reads from and merges into.
// GetByID returns common.ErrNotFound for an unknown uid.
type Store[T models.Record[T]] interface {
	GetByID(ctx context.Context, uid string) (T, error)
	Insert(ctx context.Context, rec T) error
	Update(ctx context.Context, rec T) error
	AllSince(ctx context.Context, ts int64) ([]T, error)
	All(ctx context.Context) ([]T, error)
}

// State is everything a sync run reads and advances.
type State struct {
	Session session.State
	Cursor  models.SyncCursor
}

// Outcome summarises a sync run.
type Outcome struct {
	FullSync bool
	Rounds   int

	// Sent counts distinct records pushed across all rounds.
	Sent int
	// Dropped counts outbound records that could not be sealed.
	Dropped int

	Received  int
	Inserted  int
	Updated   int
	Unchanged int
	// Skipped counts inbound records that failed to decrypt.
	Skipped int
	// Failed counts inbound records the local store could not write.
	Failed int

	// Orphans is the number of ids the server reported as unknown;
	// Repaired is how many of them were found locally and re-sent.
	Orphans  int
	Repaired int

	ServerTimestamp int64
}
