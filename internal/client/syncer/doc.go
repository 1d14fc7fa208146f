// Package syncer implements one sync run: it gathers local changes, seals
// them with the user key, exchanges them with the server through the
// authenticated session, merges what comes back with last-write-wins, and
// re-sends records the server reports as unknown.
//
// # Rounds
//
// A run makes at most two round trips. The first carries the delta (or
// everything when the cursor asks for a full sync). If the server answers
// with orphan ids, the engine looks those records up locally and sends
// them in a second request. Orphans reported by the second response are
// logged and left for the next run.
//
// # State
//
// The engine holds no session or cursor state. Sync takes a State and
// returns the next one; the caller decides whether to apply it.
package syncer
