// Package metrics exposes Prometheus counters for sync runs. The CLI is a
// short-lived process, so the registry is written to a node_exporter
// textfile instead of being served.
package metrics

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "timekeeper"

type Metrics struct {
	runs        *prometheus.CounterVec
	records     *prometheus.CounterVec
	orphans     prometheus.Counter
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// New registers the sync metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by result.",
		}, []string{"result"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Records handled by sync, by direction or outcome.",
		}, []string{"op"}),
		orphans: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "orphans_repaired_total",
			Help:      "Records re-sent because the server did not know them.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync.",
		}),
	}
}

// Observe records one finished run.
func (m *Metrics) Observe(out syncer.Outcome, err error, took time.Duration) {
	m.runs.WithLabelValues(Result(err)).Inc()
	m.duration.Observe(took.Seconds())

	m.records.WithLabelValues("sent").Add(float64(out.Sent))
	m.records.WithLabelValues("received").Add(float64(out.Received))
	m.records.WithLabelValues("skipped").Add(float64(out.Skipped))
	m.records.WithLabelValues("dropped").Add(float64(out.Dropped))
	m.orphans.Add(float64(out.Repaired))

	if err == nil {
		m.lastSuccess.SetToCurrentTime()
	}
}

// Result maps a sync error to the value of the result label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, client.ErrUnavailable):
		return "network"
	case errors.Is(err, client.ErrInactiveSubscription):
		return "inactive_subscription"
	case errors.Is(err, session.ErrReloginRequired):
		return "relogin"
	case errors.Is(err, session.ErrDevice):
		return "device"
	case errors.Is(err, client.ErrServer):
		return "server"
	case errors.Is(err, session.ErrNotLoggedIn):
		return "logged_out"
	}
	return "error"
}

// WriteTextfile dumps g in the text exposition format to path, atomically.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
