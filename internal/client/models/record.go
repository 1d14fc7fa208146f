// Package models defines the records the client stores and syncs, the
// encrypted envelope they travel in, and the wire messages of the sync API.
package models

import "time"

// Kind names one of the three record collections.
type Kind string

const (
	KindTask     Kind = "task"
	KindShortcut Kind = "shortcut"
	KindTodo     Kind = "todo"
)

// Kinds lists every syncable kind in the order they are sent.
var Kinds = []Kind{KindTask, KindShortcut, KindTodo}

// SyncMeta is the bookkeeping every syncable record carries.
//
// UID never changes once assigned. LastUpdated is a Unix timestamp in
// seconds that acts as a logical write clock: every mutation moves it
// forward. IsDeleted marks a tombstone.
type SyncMeta struct {
	UID         string `json:"uid"`
	LastUpdated int64  `json:"last_updated"`
	IsDeleted   bool   `json:"is_deleted"`
}

// Syncable is implemented by every record kind.
type Syncable interface {
	Kind() Kind
	Meta() SyncMeta
}

// Record is the constraint used by generic stores and services: a value
// type that can report and replace its own SyncMeta.
type Record[T any] interface {
	Syncable
	WithMeta(SyncMeta) T
}

// NextStamp returns the last_updated value for a mutation happening at now
// on a record whose current stamp is prev. The result is at least now and
// always strictly greater than prev.
func NextStamp(prev int64, now time.Time) int64 {
	ts := now.Unix()
	if ts <= prev {
		ts = prev + 1
	}
	return ts
}
