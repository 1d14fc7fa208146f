// Package records provides the client-side persistence layer for syncable
// records (tasks, shortcuts and todos).
//
// # Overview
//
// SQLiteRepository is generic over the record type and stores every kind in
// one table keyed by (kind, uid). The sync bookkeeping (uid, last_updated,
// is_deleted) lives in dedicated columns so delta queries can use the index;
// the rest of the record is a JSON payload.
//
// Deletions are tombstones: Delete is expressed as an Update with
// is_deleted set, and tombstones are returned by All and AllSince so they
// can be synced.
//
// # Typical Usage
//
//	tasks := records.NewSQLiteRepository[models.Task](db, models.KindTask)
//	_ = tasks.Insert(ctx, task)
//	changed, _ := tasks.AllSince(ctx, cursor.LastSync)
//	one, err := tasks.GetByID(ctx, uid) // common.ErrNotFound if absent
package records
