package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/timekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedIn(t *testing.T, store SettingsStore, engine SyncEngine) SyncService {
	t.Helper()
	ctx := context.Background()
	svc := NewSyncService(store, &fakeAuth{}, engine, nil, logging.Discard())
	require.NoError(t, svc.Login(ctx, "user@example.com", []byte("pass"), "http://sync.example"))
	return svc
}

func TestSyncService_LoginPersistsAndForcesFullSync(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)
	require.NoError(t, store.SaveCursor(ctx, models.SyncCursor{LastSync: 500}))

	svc := NewSyncService(store, &fakeAuth{}, advanceTo(1), nil, logging.Discard())
	require.NoError(t, svc.Load(ctx))
	require.NoError(t, svc.Login(ctx, "me@example.com", []byte("pass"), "http://sync.example"))

	st := svc.Status()
	assert.Equal(t, session.LoggedIn, st.Session)
	assert.Equal(t, "me@example.com", st.Email)
	assert.True(t, st.Cursor.NeedsFullSync)

	cred, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "me@example.com", cred.Email)

	cursor, err := store.LoadCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCursor{LastSync: 500, NeedsFullSync: true}, cursor)
}

func TestSyncService_LoginFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)
	auth := &fakeAuth{loginErr: errors.New("bad credentials")}

	svc := NewSyncService(store, auth, advanceTo(1), nil, logging.Discard())
	require.Error(t, svc.Login(ctx, "me@example.com", []byte("pass"), "http://sync.example"))

	assert.Equal(t, session.LoggedOut, svc.Status().Session)
	cred, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestSyncService_LoadRestoresSession(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)
	require.NoError(t, store.SaveCredential(ctx, testCredential()))
	require.NoError(t, store.SaveCursor(ctx, models.SyncCursor{LastSync: 42}))

	svc := NewSyncService(store, &fakeAuth{}, advanceTo(1), nil, logging.Discard())
	require.NoError(t, svc.Load(ctx))

	st := svc.Status()
	assert.Equal(t, session.LoggedIn, st.Session)
	assert.Equal(t, "http://sync.example", st.Server)
	assert.Equal(t, int64(42), st.Cursor.LastSync)
}

func TestSyncService_SyncRequiresLogin(t *testing.T) {
	svc := NewSyncService(setupSettings(t), &fakeAuth{}, advanceTo(1), nil, logging.Discard())

	_, err := svc.Sync(context.Background())
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestSyncService_SyncPersistsCursor(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)
	reg := prometheus.NewRegistry()

	svc := NewSyncService(store, &fakeAuth{}, advanceTo(1700), metrics.New(reg), logging.Discard())
	require.NoError(t, svc.Login(ctx, "user@example.com", []byte("pass"), "http://sync.example"))

	out, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1700), out.ServerTimestamp)

	cursor, err := store.LoadCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCursor{LastSync: 1700}, cursor)
	assert.False(t, svc.Status().Cursor.NeedsFullSync)

	n, err := testutil.GatherAndCount(reg, "timekeeper_sync_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncService_RejectsConcurrentSync(t *testing.T) {
	ctx := context.Background()
	engine := newBlockingEngine(advanceTo(10))
	svc := newLoggedIn(t, setupSettings(t), engine)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(ctx)
		done <- err
	}()
	<-engine.started

	assert.True(t, svc.Status().Syncing)
	_, err := svc.Sync(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(engine.release)
	require.NoError(t, <-done)
	assert.False(t, svc.Status().Syncing)
}

func TestSyncService_FullSyncMarkDuringRunSurvives(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)
	engine := newBlockingEngine(advanceTo(10))
	svc := newLoggedIn(t, store, engine)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(ctx)
		done <- err
	}()
	<-engine.started

	require.NoError(t, svc.MarkFullSync(ctx))
	close(engine.release)
	require.NoError(t, <-done)

	cursor, err := store.LoadCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCursor{LastSync: 10, NeedsFullSync: true}, cursor)
}

func TestSyncService_EditDuringRunHoldsCursor(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)

	svc := newLoggedIn(t, store, advanceTo(10))
	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	engine := newBlockingEngine(advanceTo(20))
	svc.(*syncService).engine = engine

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(ctx)
		done <- err
	}()
	<-engine.started

	svc.NoteChange()
	close(engine.release)
	require.NoError(t, <-done)

	assert.Equal(t, int64(10), svc.Status().Cursor.LastSync)

	svc.(*syncService).engine = advanceTo(30)
	_, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30), svc.Status().Cursor.LastSync)
}

func TestSyncService_LogoutDuringRunDiscardsResult(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)
	engine := newBlockingEngine(advanceTo(99))
	svc := newLoggedIn(t, store, engine)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(ctx)
		done <- err
	}()
	<-engine.started

	require.NoError(t, svc.Logout(ctx))
	close(engine.release)
	assert.ErrorIs(t, <-done, ErrSessionChanged)

	st := svc.Status()
	assert.Equal(t, session.LoggedOut, st.Session)
	assert.NotEqual(t, int64(99), st.Cursor.LastSync)

	cred, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestSyncService_ReloginRequiredErasesCredential(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)

	engine := engineFunc(func(_ context.Context, st syncer.State) (syncer.State, syncer.Outcome, error) {
		st.Session = session.State{}
		return st, syncer.Outcome{}, fmt.Errorf("sync: %w", session.ErrReloginRequired)
	})
	svc := newLoggedIn(t, store, engine)

	_, err := svc.Sync(ctx)
	require.ErrorIs(t, err, session.ErrReloginRequired)

	assert.Equal(t, session.LoggedOut, svc.Status().Session)
	cred, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestSyncService_RefreshedTokenIsPersisted(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)

	engine := engineFunc(func(_ context.Context, st syncer.State) (syncer.State, syncer.Outcome, error) {
		next := *st.Session.Credential
		next.AccessToken = "access-2"
		st.Session = session.State{Status: session.LoggedIn, Credential: &next}
		st.Cursor = models.SyncCursor{LastSync: 5}
		return st, syncer.Outcome{}, nil
	})
	svc := newLoggedIn(t, store, engine)

	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	cred, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-2", cred.AccessToken)
}

func TestSyncService_FailedRunKeepsCursor(t *testing.T) {
	ctx := context.Background()
	store := setupSettings(t)

	engine := engineFunc(func(_ context.Context, st syncer.State) (syncer.State, syncer.Outcome, error) {
		return st, syncer.Outcome{}, errors.New("server down")
	})
	svc := newLoggedIn(t, store, engine)

	_, err := svc.Sync(ctx)
	require.Error(t, err)

	cursor, err := store.LoadCursor(ctx)
	require.NoError(t, err)
	assert.True(t, cursor.NeedsFullSync)
	assert.Equal(t, session.LoggedIn, svc.Status().Session)
}

func TestSyncService_LogoutNotifiesServer(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{}
	svc := NewSyncService(setupSettings(t), auth, advanceTo(1), nil, logging.Discard())
	require.NoError(t, svc.Login(ctx, "user@example.com", []byte("pass"), "http://sync.example"))

	require.NoError(t, svc.Logout(ctx))
	assert.Equal(t, 1, auth.logoutCalls)
	assert.Equal(t, session.LoggedOut, svc.Status().Session)
}
