package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/dmitrijs2005/timekeeper/internal/client/trigger"
	"github.com/spf13/cobra"
)

// noticeTTL is how long a sync notice stays in the prompt.
const noticeTTL = 15 * time.Second

func shellCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive mode with background sync",
		Args:  cobra.NoArgs,
		RunE: h.run(func(ctx context.Context, a *App, _ []string) error {
			a.shell(ctx, func(ctx context.Context, args []string) error {
				c := newShellTree(h)
				c.SetArgs(args)
				c.SetIn(a.in)
				c.SetOut(a.out)
				c.SetErr(a.out)
				return c.ExecuteContext(ctx)
			})
			return nil
		}),
	}
}

// shell runs the REPL while the trigger runner syncs in the background.
// On return the runner is stopped and pending edits are left for flush.
func (a *App) shell(ctx context.Context, exec execFunc) {
	ctx, cancel := context.WithCancel(ctx)

	a.interactive = true
	defer func() { a.interactive = false }()

	n := newNotices(noticeTTL)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = a.runner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		n.watch(ctx, a.runner.Results())
	}()

	if a.isLoggedIn() {
		a.runner.TriggerNow()
	}

	fmt.Fprintln(a.out, "Welcome to timekeeper (type 'help' for commands, 'exit' to leave)")
	runREPL(ctx, exec, func() string { return a.prompt(n) }, a.in, a.out)

	cancel()
	wg.Wait()
}

func (a *App) prompt(n *notices) string {
	st := a.sync.Status()

	parts := []string{st.Session.String()}
	if st.Email != "" {
		parts[0] = st.Email
	}
	if msg := n.current(); msg != "" {
		parts = append(parts, msg)
	}
	return " (" + strings.Join(parts, " | ") + ")"
}

// notices keeps the latest sync notice until it expires.
type notices struct {
	mu    sync.Mutex
	text  string
	until time.Time
	ttl   time.Duration
	now   func() time.Time
}

func newNotices(ttl time.Duration) *notices {
	return &notices{ttl: ttl, now: time.Now}
}

func (n *notices) set(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = text
	n.until = n.now().Add(n.ttl)
}

func (n *notices) current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.text == "" || !n.now().Before(n.until) {
		n.text = ""
		return ""
	}
	return n.text
}

func (n *notices) watch(ctx context.Context, results <-chan trigger.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-results:
			if msg := describe(r); msg != "" {
				n.set(msg)
			}
		}
	}
}

// describe turns a runner result into a prompt notice.
func describe(r trigger.Result) string {
	switch {
	case r.Err == nil:
		return "synced " + r.At.Local().Format("15:04:05")
	case errors.Is(r.Err, services.ErrSyncInProgress),
		errors.Is(r.Err, services.ErrSessionChanged),
		errors.Is(r.Err, session.ErrNotLoggedIn),
		errors.Is(r.Err, context.Canceled):
		return ""
	case errors.Is(r.Err, session.ErrReloginRequired):
		return "session expired, please login"
	case errors.Is(r.Err, client.ErrInactiveSubscription):
		return "subscription inactive, sync paused"
	case errors.Is(r.Err, client.ErrUnavailable):
		return "offline, changes kept locally"
	}
	return "sync failed: " + r.Err.Error()
}
