package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/google/uuid"
)

// RecordStore is the local storage a RecordService writes through.
type RecordStore[T models.Record[T]] interface {
	GetByID(ctx context.Context, uid string) (T, error)
	Insert(ctx context.Context, rec T) error
	Update(ctx context.Context, rec T) error
	Live(ctx context.Context) ([]T, error)
}

// Notifier is told about every local change.
type Notifier interface {
	Notify()
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func()

func (f NotifierFunc) Notify() { f() }

// Cursor is the part of the sync state a RecordService consults.
//
// LastSync is the current cursor; every new stamp is placed above it so
// that the next delta sync picks the edit up even when it happened in the
// same second as the last sync. MarkFullSync forces the next sync to send
// every record.
type Cursor interface {
	LastSync() int64
	MarkFullSync(ctx context.Context) error
}

// RecordService creates, edits and deletes records of one kind. Every
// mutation assigns a fresh last_updated stamp and notifies the sync
// trigger. Delete writes a tombstone; tombstones are invisible to Get and
// List.
type RecordService[T models.Record[T]] interface {
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, rec T) (T, error)
	Delete(ctx context.Context, uid string) error
	Get(ctx context.Context, uid string) (T, error)
	List(ctx context.Context) ([]T, error)
	// Import stores records as given, without restamping, and schedules a
	// full sync so they reach the server regardless of the cursor.
	Import(ctx context.Context, recs []T) (int, error)
}

type recordService[T models.Record[T]] struct {
	store    RecordStore[T]
	notifier Notifier
	cursor   Cursor
	log      logging.Logger
	now      func() time.Time
}

func NewRecordService[T models.Record[T]](store RecordStore[T], notifier Notifier, cursor Cursor, log logging.Logger) RecordService[T] {
	var zero T
	return &recordService[T]{
		store:    store,
		notifier: notifier,
		cursor:   cursor,
		log:      log.With("kind", string(zero.Kind())),
		now:      time.Now,
	}
}

// stamp returns the last_updated value for a mutation of a record whose
// current stamp is prev.
func (s *recordService[T]) stamp(prev int64) int64 {
	return models.NextStamp(max(prev, s.cursor.LastSync()), s.now())
}

func (s *recordService[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T

	meta := rec.Meta()
	if meta.UID == "" {
		meta.UID = uuid.NewString()
	}
	meta.LastUpdated = s.stamp(0)
	meta.IsDeleted = false
	rec = rec.WithMeta(meta)

	if err := s.store.Insert(ctx, rec); err != nil {
		return zero, fmt.Errorf("create %s: %w", rec.Kind(), err)
	}

	s.log.Debug(ctx, "record created", "uid", meta.UID)
	s.notifier.Notify()
	return rec, nil
}

func (s *recordService[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T

	meta := rec.Meta()
	if meta.UID == "" {
		return zero, common.ErrEmptyUID
	}

	cur, err := s.store.GetByID(ctx, meta.UID)
	if err != nil {
		return zero, err
	}

	rec = rec.WithMeta(models.SyncMeta{
		UID:         meta.UID,
		LastUpdated: s.stamp(cur.Meta().LastUpdated),
	})
	if err := s.store.Update(ctx, rec); err != nil {
		return zero, fmt.Errorf("update %s: %w", rec.Kind(), err)
	}

	s.log.Debug(ctx, "record updated", "uid", meta.UID)
	s.notifier.Notify()
	return rec, nil
}

func (s *recordService[T]) Delete(ctx context.Context, uid string) error {
	if uid == "" {
		return common.ErrEmptyUID
	}

	cur, err := s.store.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	meta := cur.Meta()
	if meta.IsDeleted {
		return common.ErrNotFound
	}

	meta.LastUpdated = s.stamp(meta.LastUpdated)
	meta.IsDeleted = true
	if err := s.store.Update(ctx, cur.WithMeta(meta)); err != nil {
		return fmt.Errorf("delete %s: %w", cur.Kind(), err)
	}

	s.log.Debug(ctx, "record deleted", "uid", uid)
	s.notifier.Notify()
	return nil
}

func (s *recordService[T]) Get(ctx context.Context, uid string) (T, error) {
	var zero T

	rec, err := s.store.GetByID(ctx, uid)
	if err != nil {
		return zero, err
	}
	if rec.Meta().IsDeleted {
		return zero, common.ErrNotFound
	}
	return rec, nil
}

func (s *recordService[T]) List(ctx context.Context) ([]T, error) {
	return s.store.Live(ctx)
}

func (s *recordService[T]) Import(ctx context.Context, recs []T) (int, error) {
	n, err := s.importAll(ctx, recs)
	if n == 0 {
		return 0, err
	}

	// Imported stamps may sit below the cursor, so even a partial import
	// must force a full sync or the stored records are never sent.
	if mErr := s.cursor.MarkFullSync(ctx); mErr != nil {
		return n, errors.Join(err, fmt.Errorf("mark full sync: %w", mErr))
	}

	s.log.Info(ctx, "records imported", "count", n)
	s.notifier.Notify()
	return n, err
}

func (s *recordService[T]) importAll(ctx context.Context, recs []T) (int, error) {
	n := 0
	for _, rec := range recs {
		meta := rec.Meta()
		if meta.UID == "" {
			meta.UID = uuid.NewString()
		}
		if meta.LastUpdated == 0 {
			meta.LastUpdated = s.now().Unix()
		}
		rec = rec.WithMeta(meta)

		_, err := s.store.GetByID(ctx, meta.UID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			err = s.store.Insert(ctx, rec)
		case err == nil:
			err = s.store.Update(ctx, rec)
		}
		if err != nil {
			return n, fmt.Errorf("import %s %s: %w", rec.Kind(), meta.UID, err)
		}
		n++
	}
	return n, nil
}
