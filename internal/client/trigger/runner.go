// Package trigger schedules sync runs. Local edits call Notify; the runner
// waits until edits have been quiet for the debounce delay and then starts
// a run. At most one run is in flight. Triggers that arrive during a run
// collapse into a single follow-up run, and edits never cancel a run.
package trigger

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

// DefaultDelay is the quiet period after the last edit.
const DefaultDelay = time.Second

const resultBuffer = 16

// SyncFunc performs one sync run.
type SyncFunc func(ctx context.Context) (syncer.Outcome, error)

// Result is delivered on the Results channel after every run.
type Result struct {
	Outcome syncer.Outcome
	Err     error
	At      time.Time
}

type Runner struct {
	delay time.Duration
	run   SyncFunc
	log   logging.Logger

	notify  chan struct{}
	now     chan struct{}
	results chan Result
}

func NewRunner(delay time.Duration, run SyncFunc, log logging.Logger) *Runner {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Runner{
		delay:   delay,
		run:     run,
		log:     log.With("component", "trigger"),
		notify:  make(chan struct{}, 1),
		now:     make(chan struct{}, 1),
		results: make(chan Result, resultBuffer),
	}
}

// Notify records a local edit and restarts the debounce timer.
// It never blocks.
func (r *Runner) Notify() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// TriggerNow starts a run without waiting for the debounce delay, or
// schedules a follow-up if one is already in flight.
func (r *Runner) TriggerNow() {
	select {
	case r.now <- struct{}{}:
	default:
	}
}

// Results delivers the outcome of every run. Results are dropped with a
// warning when nobody reads them.
func (r *Runner) Results() <-chan Result {
	return r.results
}

// Run drives the runner until ctx is cancelled. A run that is in flight
// when ctx ends sees the cancelled context; Run waits for it to return and
// discards its result.
func (r *Runner) Run(ctx context.Context) error {
	timer := time.NewTimer(r.delay)
	timer.Stop()
	defer timer.Stop()

	var (
		inFlight bool
		pending  bool
		done     = make(chan Result, 1)
	)

	start := func() {
		if inFlight {
			pending = true
			return
		}
		inFlight = true
		go func() {
			out, err := r.run(ctx)
			done <- Result{Outcome: out, Err: err, At: time.Now()}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if inFlight {
				<-done
			}
			return ctx.Err()

		case <-r.notify:
			timer.Reset(r.delay)

		case <-r.now:
			timer.Stop()
			start()

		case <-timer.C:
			start()

		case res := <-done:
			inFlight = false
			r.publish(ctx, res)
			if pending {
				pending = false
				start()
			}
		}
	}
}

func (r *Runner) publish(ctx context.Context, res Result) {
	select {
	case r.results <- res:
	default:
		r.log.Warn(ctx, "sync result dropped, nobody is listening", "error", res.Err)
	}
}
