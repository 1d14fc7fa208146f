// Package services contains the application services of the timekeeper
// client. SyncService owns the session and the sync cursor; RecordService
// is the mutation layer every local edit goes through.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

var (
	// ErrSyncInProgress is returned when a sync is requested while another
	// one is running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrSessionChanged is returned when a login or logout happened while a
	// sync was running; the sync result was discarded.
	ErrSessionChanged = errors.New("session changed during sync")
)

// SettingsStore persists the credential and the cursor.
type SettingsStore interface {
	LoadCredential(ctx context.Context) (*models.Credential, error)
	SaveCredential(ctx context.Context, c *models.Credential) error
	ClearCredential(ctx context.Context) error
	LoadCursor(ctx context.Context) (models.SyncCursor, error)
	SaveCursor(ctx context.Context, c models.SyncCursor) error
}

// Authenticator performs session transitions that talk to the server.
type Authenticator interface {
	Login(ctx context.Context, email string, passphrase []byte, server string) (session.State, error)
	Logout(ctx context.Context, st session.State) session.State
}

// SyncEngine performs one sync run.
type SyncEngine interface {
	Sync(ctx context.Context, st syncer.State) (syncer.State, syncer.Outcome, error)
}

// Status is a snapshot for display.
type Status struct {
	Session     session.Status
	Email       string
	Server      string
	Cursor      models.SyncCursor
	TokenExpiry time.Time
	Syncing     bool
}

// SyncService serializes every session transition and sync run.
//
// Contract:
//   - Load restores the persisted credential and cursor.
//   - Login replaces the session and forces a full sync.
//   - Logout notifies the server on a best-effort basis and erases the
//     local credential.
//   - Sync runs one sync; concurrent calls get ErrSyncInProgress.
//   - MarkFullSync makes the next sync send every record. A mark raised
//     while a sync is running survives that sync.
//   - LastSync is the current cursor.
//   - NoteChange records a local edit. Edits made while a sync is running
//     keep the cursor from moving past them.
type SyncService interface {
	Load(ctx context.Context) error
	Login(ctx context.Context, email string, passphrase []byte, server string) error
	Logout(ctx context.Context) error
	Sync(ctx context.Context) (syncer.Outcome, error)
	MarkFullSync(ctx context.Context) error
	LastSync() int64
	NoteChange()
	Status() Status
}

type syncService struct {
	settings SettingsStore
	auth     Authenticator
	engine   SyncEngine
	metrics  *metrics.Metrics
	log      logging.Logger

	mu         sync.Mutex
	state      syncer.State
	generation uint64
	fullMarks  uint64
	changes    uint64
	syncing    bool
}

// NewSyncService wires the service. m may be nil.
func NewSyncService(settings SettingsStore, auth Authenticator, engine SyncEngine, m *metrics.Metrics, log logging.Logger) SyncService {
	return &syncService{
		settings: settings,
		auth:     auth,
		engine:   engine,
		metrics:  m,
		log:      log.With("component", "sync_service"),
	}
}

func (s *syncService) Load(ctx context.Context) error {
	cred, err := s.settings.LoadCredential(ctx)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	cursor, err := s.settings.LoadCursor(ctx)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = syncer.State{Cursor: cursor}
	if cred != nil {
		s.state.Session = session.State{Status: session.LoggedIn, Credential: cred}
	}
	s.generation++
	return nil
}

func (s *syncService) Login(ctx context.Context, email string, passphrase []byte, server string) error {
	st, err := s.auth.Login(ctx, email, passphrase, server)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.fullMarks++
	s.state.Session = st
	s.state.Cursor.NeedsFullSync = true

	if err := s.settings.SaveCredential(ctx, st.Credential); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	if err := s.settings.SaveCursor(ctx, s.state.Cursor); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func (s *syncService) Logout(ctx context.Context) error {
	s.mu.Lock()
	st := s.state.Session
	s.mu.Unlock()

	next := s.auth.Logout(ctx, st)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state.Session = next
	if err := s.settings.ClearCredential(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (s *syncService) Sync(ctx context.Context) (syncer.Outcome, error) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return syncer.Outcome{}, ErrSyncInProgress
	}
	if !s.state.Session.IsLoggedIn() {
		s.mu.Unlock()
		return syncer.Outcome{}, session.ErrNotLoggedIn
	}
	s.syncing = true
	snapshot := s.state
	gen, marks, changes := s.generation, s.fullMarks, s.changes
	s.mu.Unlock()

	started := time.Now()
	next, out, err := s.engine.Sync(ctx, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = false

	if s.metrics != nil {
		s.metrics.Observe(out, err, time.Since(started))
	}

	if gen != s.generation {
		s.log.Warn(ctx, "discarding sync result, session changed while it ran")
		return out, ErrSessionChanged
	}

	if s.fullMarks != marks {
		next.Cursor.NeedsFullSync = true
	}
	if s.changes != changes {
		next.Cursor.LastSync = snapshot.Cursor.LastSync
	}

	perr := s.apply(ctx, snapshot, next, errors.Is(err, session.ErrReloginRequired))

	if err != nil {
		s.log.Warn(ctx, "sync failed", "error", err)
	} else {
		s.log.Info(ctx, "sync finished",
			"full", out.FullSync, "rounds", out.Rounds, "sent", out.Sent, "received", out.Received,
			"skipped", out.Skipped, "orphans", out.Orphans, "last_sync", next.Cursor.LastSync)
	}
	return out, errors.Join(err, perr)
}

// apply installs next as the current state and persists what changed.
// Called with s.mu held.
func (s *syncService) apply(ctx context.Context, prev, next syncer.State, relogin bool) error {
	s.state = next

	var errs []error
	switch {
	case relogin:
		s.generation++
		if err := s.settings.ClearCredential(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear credential: %w", err))
		}
	case next.Session.Credential != prev.Session.Credential && next.Session.Credential != nil:
		if err := s.settings.SaveCredential(ctx, next.Session.Credential); err != nil {
			errs = append(errs, fmt.Errorf("save credential: %w", err))
		}
	}

	if next.Cursor != prev.Cursor {
		if err := s.settings.SaveCursor(ctx, next.Cursor); err != nil {
			errs = append(errs, fmt.Errorf("save cursor: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *syncService) MarkFullSync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fullMarks++
	s.state.Cursor.NeedsFullSync = true
	return s.settings.SaveCursor(ctx, s.state.Cursor)
}

func (s *syncService) LastSync() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Cursor.LastSync
}

func (s *syncService) NoteChange() {
	s.mu.Lock()
	s.changes++
	s.mu.Unlock()
}

func (s *syncService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Session: s.state.Session.Status,
		Cursor:  s.state.Cursor,
		Syncing: s.syncing,
	}
	if c := s.state.Session.Credential; c != nil {
		st.Email = c.Email
		st.Server = c.ServerURL
		if exp, ok := session.TokenExpiry(c.AccessToken); ok {
			st.TokenExpiry = exp
		}
	}
	return st
}
