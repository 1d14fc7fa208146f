// Package client contains the client-side plumbing of timekeeper.
//
// # Overview
//
// The package provides:
//  1. The transport contract for the sync API (see the Client interface):
//     Login, RefreshToken, Logout and Sync.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that sends bearer
//     tokens and maps responses to sentinel errors. It never retries on its
//     own; the refresh-once policy lives in the session package.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations), wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors that callers match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrAuth, ErrTokenRefresh,
// ErrServer and ErrInactiveSubscription. Non-2xx responses are returned as
// *ServerError, which matches ErrServer or ErrInactiveSubscription.
//
// # Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation.
package client
