package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

const testDevice = "device-under-test"

var testKey = []byte("0123456789abcdef0123456789abcdef")

type memStore[T models.Record[T]] struct {
	mu       sync.Mutex
	recs     map[string]T
	writeErr error
}

func newMemStore[T models.Record[T]](recs ...T) *memStore[T] {
	s := &memStore[T]{recs: make(map[string]T)}
	for _, r := range recs {
		s.recs[r.Meta().UID] = r
	}
	return s
}

func (s *memStore[T]) GetByID(_ context.Context, uid string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[uid]
	if !ok {
		var zero T
		return zero, common.ErrNotFound
	}
	return r, nil
}

func (s *memStore[T]) Insert(_ context.Context, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.recs[rec.Meta().UID]; ok {
		return errors.New("duplicate uid")
	}
	s.recs[rec.Meta().UID] = rec
	return nil
}

func (s *memStore[T]) Update(_ context.Context, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.recs[rec.Meta().UID]; !ok {
		return common.ErrNotFound
	}
	s.recs[rec.Meta().UID] = rec
	return nil
}

func (s *memStore[T]) AllSince(_ context.Context, ts int64) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, r := range s.recs {
		if r.Meta().LastUpdated > ts {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Meta().UID < out[j].Meta().UID })
	return out, nil
}

func (s *memStore[T]) All(ctx context.Context) ([]T, error) {
	return s.AllSince(ctx, -1)
}

func (s *memStore[T]) get(t *testing.T, uid string) T {
	t.Helper()
	r, err := s.GetByID(context.Background(), uid)
	require.NoError(t, err)
	return r
}

type fakeDevice struct{}

func (fakeDevice) DeviceID(context.Context) (string, error) { return testDevice, nil }

// scriptedAPI answers sync calls from a queue and records every request.
type scriptedAPI struct {
	mu        sync.Mutex
	responses []func(token string, req *models.SyncRequest) (*models.SyncResponse, error)
	requests  []*models.SyncRequest
	tokens    []string
	refreshes int
	refreshed string
}

func (a *scriptedAPI) then(fn func(token string, req *models.SyncRequest) (*models.SyncResponse, error)) *scriptedAPI {
	a.responses = append(a.responses, fn)
	return a
}

func (a *scriptedAPI) reply(resp *models.SyncResponse) *scriptedAPI {
	return a.then(func(string, *models.SyncRequest) (*models.SyncResponse, error) { return resp, nil })
}

func (a *scriptedAPI) fail(err error) *scriptedAPI {
	return a.then(func(string, *models.SyncRequest) (*models.SyncResponse, error) { return nil, err })
}

func (a *scriptedAPI) Login(context.Context, string, models.LoginRequest) (*models.LoginResponse, error) {
	return nil, errors.New("not used")
}

func (a *scriptedAPI) RefreshToken(context.Context, string, string, string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshes++
	if a.refreshed == "" {
		return "", fmt.Errorf("%w: rejected", client.ErrTokenRefresh)
	}
	return a.refreshed, nil
}

func (a *scriptedAPI) Logout(context.Context, string, string, string) error { return nil }

func (a *scriptedAPI) Sync(_ context.Context, _ string, token string, req *models.SyncRequest) (*models.SyncResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	a.tokens = append(a.tokens, token)
	if len(a.responses) == 0 {
		return nil, errors.New("unexpected sync call")
	}
	fn := a.responses[0]
	a.responses = a.responses[1:]
	return fn(token, req)
}

type fixture struct {
	api       *scriptedAPI
	tasks     *memStore[models.Task]
	shortcuts *memStore[models.Shortcut]
	todos     *memStore[models.Todo]
	engine    *Engine
}

func newFixture(t *testing.T, api *scriptedAPI) *fixture {
	t.Helper()
	f := &fixture{
		api:       api,
		tasks:     newMemStore[models.Task](),
		shortcuts: newMemStore[models.Shortcut](),
		todos:     newMemStore[models.Todo](),
	}
	sess := session.New(api, fakeDevice{}, logging.Discard())
	f.engine = NewEngine(sess, api, f.tasks, f.shortcuts, f.todos, logging.Discard())
	return f
}

func loggedInState(t *testing.T, cursor models.SyncCursor) State {
	t.Helper()
	wrapped, nonce, err := cryptox.WrapUserKey(testKey, testDevice)
	require.NoError(t, err)
	return State{
		Session: session.State{Status: session.LoggedIn, Credential: &models.Credential{
			Email: "me@example.com", WrappedKey: wrapped, WrapNonce: nonce,
			AccessToken: "a1", RefreshToken: "r1", ServerURL: "http://sync.test",
		}},
		Cursor: cursor,
	}
}

func task(uid string, ts int64, name string) models.Task {
	return models.Task{SyncMeta: models.SyncMeta{UID: uid, LastUpdated: ts}, Name: name}
}

// sealFor encrypts rec the way another device would.
func sealFor[T models.Syncable](t *testing.T, rec T) models.EncryptedRecord {
	t.Helper()
	env, err := seal(rec, testKey)
	require.NoError(t, err)
	return env
}

func uids(recs []models.EncryptedRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.UID)
	}
	sort.Strings(out)
	return out
}
