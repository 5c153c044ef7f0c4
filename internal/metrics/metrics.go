package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgersync",
			Name:      "sync_runs_total",
			Help:      "Sync runs by result.",
		},
		[]string{"result"},
	)

	recordsSynced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgersync",
			Name:      "records_synced_total",
			Help:      "Successfully saved records by target kind.",
		},
		[]string{"kind"},
	)

	recordSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgersync",
			Name:      "record_skips_total",
			Help:      "Skipped records by target kind and skip class.",
		},
		[]string{"kind", "class"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ledgersync",
			Name:      "sync_run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 9),
		},
	)

	monitoredErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledgersync",
			Name:      "monitored_errors_total",
			Help:      "Errors forwarded to the monitoring sink.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(syncRuns, recordsSynced, recordSkips, runDuration, monitoredErrors)
	})
}

// IncRun counts one finished run with its result label.
func IncRun(result string) {
	syncRuns.WithLabelValues(result).Inc()
}

// AddSynced counts saved records for a kind.
func AddSynced(kind string, n int) {
	recordsSynced.WithLabelValues(kind).Add(float64(n))
}

// IncSkip counts one skipped record. class is "hard" or the allowable
// counter name.
func IncSkip(kind, class string) {
	recordSkips.WithLabelValues(kind, class).Inc()
}

// ObserveRunDuration records run wall time.
func ObserveRunDuration(d time.Duration) {
	runDuration.Observe(d.Seconds())
}

// IncMonitoredError counts one error forwarded to monitoring.
func IncMonitoredError() {
	monitoredErrors.Inc()
}
