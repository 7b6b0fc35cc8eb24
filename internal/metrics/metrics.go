// Package metrics provides Prometheus metrics for packagebot runs.
// It counts harvested records and publishing outcomes and measures wiki API
// latency. A run is a batch job, so metrics are exported by writing the
// default registry to a node_exporter textfile instead of serving them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "packagebot"
)

var (
	// DiscoveredTotal counts metadata files found by the scanner by kind
	DiscoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "discovered_total",
		Help:      "Metadata files discovered by kind",
	}, []string{"kind"})

	// ScanWarningsTotal counts directories the scanner could not read
	ScanWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "scan_warnings_total",
		Help:      "Directories skipped because they could not be read",
	})

	// ParseFailuresTotal counts metadata files that failed to parse
	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "parse_failures_total",
		Help:      "Metadata files skipped because they could not be parsed",
	})

	// PagesTotal counts publishing outcomes
	PagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "pages_total",
		Help:      "Wiki pages handled by outcome",
	}, []string{"kind", "outcome"})

	// WikiRequestsTotal counts wiki API calls by action and status
	WikiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_requests_total",
		Help:      "Total wiki API requests by action and status",
	}, []string{"action", "status"})

	// WikiRequestDuration measures wiki API latency by action
	WikiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "wiki_request_duration_seconds",
		Help:      "Wiki API latency distribution by action",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"action"})

	// LoginAttemptsTotal counts login round trips by server result code
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by result code",
	}, []string{"result"})

	// StepDuration measures how long each pipeline step took
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "step_duration_seconds",
		Help:      "Pipeline step duration",
		Buckets:   []float64{.01, .1, .5, 1, 5, 15, 60, 300, 900},
	}, []string{"step"})

	// WorkersActive tracks harvest workers currently running
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "workers_active",
		Help:      "Harvest workers currently running",
	})

	// LastRunTimestamp records when the last run finished
	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})
)

// RecordDiscovery counts one discovered metadata file.
func RecordDiscovery(kind string) {
	DiscoveredTotal.WithLabelValues(kind).Inc()
}

// RecordScanWarning counts one unreadable directory.
func RecordScanWarning() {
	ScanWarningsTotal.Inc()
}

// RecordParseFailure counts one metadata file that failed to parse.
func RecordParseFailure() {
	ParseFailuresTotal.Inc()
}

// RecordPage counts one publishing outcome.
func RecordPage(kind, outcome string) {
	PagesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordWikiRequest records a wiki API call.
func RecordWikiRequest(action string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	WikiRequestsTotal.WithLabelValues(action, status).Inc()
	WikiRequestDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordLoginAttempt counts one login round trip.
func RecordLoginAttempt(result string) {
	if result == "" {
		result = "none"
	}
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveStep records a pipeline step duration.
func ObserveStep(step string, duration time.Duration) {
	StepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// WorkerStarted increments the active worker gauge.
func WorkerStarted() {
	WorkersActive.Inc()
}

// WorkerFinished decrements the active worker gauge.
func WorkerFinished() {
	WorkersActive.Dec()
}

// MarkRunFinished sets the last run timestamp.
func MarkRunFinished(t time.Time) {
	LastRunTimestamp.Set(float64(t.Unix()))
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format, for collection by node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
