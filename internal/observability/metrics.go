// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Position metrics
	RefreshesTotal   *prometheus.CounterVec
	StaleDiscarded   prometheus.Counter
	RefreshDuration  prometheus.Histogram
	DegradedSections *prometheus.CounterVec
	WatchedSessions  prometheus.Gauge

	// Chain metrics
	BalanceReads   *prometheus.CounterVec
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec
	LastSlot       prometheus.Gauge
	SlotPublishes  *prometheus.CounterVec

	// Indexer metrics
	IndexerLatency *prometheus.HistogramVec
	IndexerErrors  *prometheus.CounterVec
	IndexerPages   *prometheus.CounterVec

	// Storage and cache metrics
	SnapshotsStored prometheus.Counter
	ReportSamples   prometheus.Counter
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec

	// API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "vault_position"
	}
	f := promauto.With(reg)

	return &Metrics{
		RefreshesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "refreshes_total",
			Help:      "Position refreshes by trigger and outcome",
		}, []string{"trigger", "status"}),
		StaleDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "stale_results_discarded_total",
			Help:      "Refresh results dropped because a newer refresh started",
		}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "refresh_duration_seconds",
			Help:      "Time to aggregate a position view",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DegradedSections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "degraded_sections_total",
			Help:      "View sections that fell back to a default",
		}, []string{"section"}),
		WatchedSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "watched_sessions",
			Help:      "Number of positions kept fresh on every block",
		}),

		BalanceReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "balance_reads_total",
			Help:      "Token balance reads by result",
		}, []string{"status"}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_duration_seconds",
			Help:      "Solana RPC call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_errors_total",
			Help:      "Solana RPC calls that failed after retries",
		}, []string{"method"}),
		LastSlot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "last_slot",
			Help:      "Latest slot published to the block signal",
		}),
		SlotPublishes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "slot_publishes_total",
			Help:      "Slots published by source",
		}, []string{"source"}),

		IndexerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "query_duration_seconds",
			Help:      "Subgraph query latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		IndexerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "query_errors_total",
			Help:      "Subgraph queries that failed",
		}, []string{"query"}),
		IndexerPages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "pages_fetched_total",
			Help:      "Pages fetched while paginating",
		}, []string{"query"}),

		SnapshotsStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshots_stored_total",
			Help:      "Position snapshots persisted",
		}),
		ReportSamples: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "report_samples_stored_total",
			Help:      "Strategy report samples persisted",
		}),
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_errors_total",
			Help:      "Database query errors",
		}, []string{"database", "operation"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "View cache lookups by result",
		}, []string{"result"}),

		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP API requests",
		}, []string{"route", "code"}),
		APILatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP API latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordRefresh records a completed position refresh.
func RecordRefresh(trigger, status string, d time.Duration) {
	DefaultMetrics.RefreshesTotal.WithLabelValues(trigger, status).Inc()
	DefaultMetrics.RefreshDuration.Observe(d.Seconds())
}

// RecordStaleDiscard counts a refresh result dropped for being superseded.
func RecordStaleDiscard() {
	DefaultMetrics.StaleDiscarded.Inc()
}

// RecordDegraded counts a view section that fell back to a default.
func RecordDegraded(section string) {
	DefaultMetrics.DegradedSections.WithLabelValues(section).Inc()
}

// SetWatchedSessions updates the watched sessions gauge.
func SetWatchedSessions(n int) {
	DefaultMetrics.WatchedSessions.Set(float64(n))
}

// RecordBalanceRead counts a token balance read by status (found, not_found, failed).
func RecordBalanceRead(status string) {
	DefaultMetrics.BalanceReads.WithLabelValues(status).Inc()
}

// RecordRPCCall records RPC call latency and failures.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// UpdateLastSlot records a slot published by source.
func UpdateLastSlot(source string, slot int64) {
	DefaultMetrics.LastSlot.Set(float64(slot))
	DefaultMetrics.SlotPublishes.WithLabelValues(source).Inc()
}

// RecordIndexerQuery records subgraph query latency and failures.
func RecordIndexerQuery(query string, seconds float64, err error) {
	DefaultMetrics.IndexerLatency.WithLabelValues(query).Observe(seconds)
	if err != nil {
		DefaultMetrics.IndexerErrors.WithLabelValues(query).Inc()
	}
}

// RecordIndexerPage counts one fetched page.
func RecordIndexerPage(query string) {
	DefaultMetrics.IndexerPages.WithLabelValues(query).Inc()
}

// RecordSnapshotStored counts a persisted position snapshot.
func RecordSnapshotStored() {
	DefaultMetrics.SnapshotsStored.Inc()
}

// RecordReportSamples counts persisted report samples.
func RecordReportSamples(n int) {
	DefaultMetrics.ReportSamples.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordCacheLookup counts a cache lookup by result (hit, miss, error).
func RecordCacheLookup(result string) {
	DefaultMetrics.CacheLookups.WithLabelValues(result).Inc()
}

// RecordAPIRequest records an HTTP API request.
func RecordAPIRequest(route string, code int, d time.Duration) {
	DefaultMetrics.APIRequests.WithLabelValues(route, http.StatusText(code)).Inc()
	DefaultMetrics.APILatency.WithLabelValues(route).Observe(d.Seconds())
}
