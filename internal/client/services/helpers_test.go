package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/settings"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) (*sql.DB, *client.Repositories) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "timekeeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, client.NewRepositories(db)
}

func setupSettings(t *testing.T) *settings.Store {
	t.Helper()
	_, repos := setupDB(t)
	return setupSettingsFor(t, repos)
}

func setupSettingsFor(t *testing.T, repos *client.Repositories) *settings.Store {
	t.Helper()
	return settings.NewStore(repos.Metadata)
}

func testCredential() *models.Credential {
	return &models.Credential{
		Email:        "user@example.com",
		WrappedKey:   "wrapped",
		WrapNonce:    "nonce",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ServerURL:    "http://sync.example",
	}
}

type fakeAuth struct {
	mu          sync.Mutex
	loginErr    error
	logoutCalls int
}

func (a *fakeAuth) Login(_ context.Context, email string, _ []byte, server string) (session.State, error) {
	if a.loginErr != nil {
		return session.State{}, a.loginErr
	}
	cred := testCredential()
	cred.Email = email
	cred.ServerURL = server
	return session.State{Status: session.LoggedIn, Credential: cred}, nil
}

func (a *fakeAuth) Logout(_ context.Context, _ session.State) session.State {
	a.mu.Lock()
	a.logoutCalls++
	a.mu.Unlock()
	return session.State{}
}

type engineFunc func(ctx context.Context, st syncer.State) (syncer.State, syncer.Outcome, error)

func (f engineFunc) Sync(ctx context.Context, st syncer.State) (syncer.State, syncer.Outcome, error) {
	return f(ctx, st)
}

// advanceTo returns an engine that moves the cursor to ts.
func advanceTo(ts int64) engineFunc {
	return func(_ context.Context, st syncer.State) (syncer.State, syncer.Outcome, error) {
		st.Cursor = models.SyncCursor{LastSync: ts}
		return st, syncer.Outcome{ServerTimestamp: ts, Rounds: 1}, nil
	}
}

// blockingEngine parks every run until release is closed.
type blockingEngine struct {
	started chan struct{}
	release chan struct{}
	next    engineFunc
}

func newBlockingEngine(next engineFunc) *blockingEngine {
	return &blockingEngine{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		next:    next,
	}
}

func (e *blockingEngine) Sync(ctx context.Context, st syncer.State) (syncer.State, syncer.Outcome, error) {
	e.started <- struct{}{}
	<-e.release
	return e.next(ctx, st)
}

type countingNotifier struct {
	n atomic.Int32
}

func (c *countingNotifier) Notify() { c.n.Add(1) }

type countingMarker struct {
	n        atomic.Int32
	err      error
	lastSync int64
}

func (c *countingMarker) LastSync() int64 { return c.lastSync }

func (c *countingMarker) MarkFullSync(context.Context) error {
	c.n.Add(1)
	return c.err
}
