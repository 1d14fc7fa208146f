package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/dmitrijs2005/timekeeper/internal/client/device"
	"github.com/dmitrijs2005/timekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/settings"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/timekeeper/internal/client/trigger"
	"github.com/dmitrijs2005/timekeeper/internal/filex"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// newDeviceIdentity is a test seam for the host-derived device id.
var newDeviceIdentity = func() session.DeviceIdentity { return device.NewIdentifier() }

// App holds everything a command needs.
type App struct {
	cfg      *config.Config
	log      logging.Logger
	db       *sql.DB
	registry *prometheus.Registry

	sync      services.SyncService
	runner    *trigger.Runner
	tasks     services.RecordService[models.Task]
	shortcuts services.RecordService[models.Shortcut]
	todos     services.RecordService[models.Todo]

	in  *bufio.Reader
	out io.Writer

	// dirty is set by every local edit.
	dirty atomic.Bool
	// interactive is true while the shell owns the runner.
	interactive bool
}

// NewApp opens the local store and wires the services.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out, logOut io.Writer) (*App, error) {
	log, err := logging.New(cfg.LogLevel, logOut)
	if err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
	}

	db, err := client.InitDatabase(ctx, cfg.DatabasePath())
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	repos := client.NewRepositories(db)
	api := client.NewHTTPClient(cfg.RequestTimeout)
	sess := session.New(api, newDeviceIdentity(), log)
	engine := syncer.NewEngine(sess, api, repos.Tasks, repos.Shortcuts, repos.Todos, log)

	reg := prometheus.NewRegistry()
	syncSvc := services.NewSyncService(settings.NewStore(repos.Metadata), sess, engine, metrics.New(reg), log)
	if err := syncSvc.Load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: reg,
		sync:     syncSvc,
		runner:   trigger.NewRunner(cfg.DebounceDelay, syncSvc.Sync, log),
		in:       bufio.NewReader(in),
		out:      out,
	}

	notify := services.NotifierFunc(a.changed)
	a.tasks = services.NewRecordService[models.Task](repos.Tasks, notify, syncSvc, log)
	a.shortcuts = services.NewRecordService[models.Shortcut](repos.Shortcuts, notify, syncSvc, log)
	a.todos = services.NewRecordService[models.Todo](repos.Todos, notify, syncSvc, log)

	return a, nil
}

func (a *App) changed() {
	a.sync.NoteChange()
	a.dirty.Store(true)
	a.runner.Notify()
}

// syncSoon asks for a sync: right away in the shell, on exit otherwise.
func (a *App) syncSoon() {
	if a.interactive {
		a.runner.TriggerNow()
		return
	}
	a.dirty.Store(true)
}

func (a *App) isLoggedIn() bool {
	return a.sync.Status().Session == session.LoggedIn
}

// flush syncs once after a one-shot command changed something. Failures
// are reported but never fail the command: the edit is already stored.
func (a *App) flush(ctx context.Context) {
	if a.interactive || !a.dirty.Load() || !a.isLoggedIn() {
		return
	}
	a.dirty.Store(false)

	out, err := a.sync.Sync(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "sync failed, changes kept locally: %v\n", err)
		return
	}
	fmt.Fprintln(a.out, summarize(out))
}

// Close writes the metrics textfile, if configured, and closes the store.
func (a *App) Close() error {
	var errs []error
	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.registry, a.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
