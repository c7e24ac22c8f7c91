package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard state core.
type Metrics struct {
	StateUpdates     *prometheus.CounterVec // labels: root={filters,visualizationStates,urlSync,...}
	Notifications    prometheus.Counter
	SubscriberFaults prometheus.Counter

	// URL synchronization metrics.
	URLLoads      prometheus.Counter
	URLWrites     prometheus.Counter
	URLSyncFaults *prometheus.CounterVec // labels: op={load,write}

	// Filter application metrics.
	FilterRuns     prometheus.Counter
	RecordsKept    prometheus.Histogram
	FilterDuration prometheus.Histogram

	// Preview server metrics.
	ResultCache    *prometheus.CounterVec // labels: result={hit,miss}
	DatasetRecords prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewUnregisteredMetrics()

	prometheus.MustRegister(
		m.StateUpdates,
		m.Notifications,
		m.SubscriberFaults,
		m.URLLoads,
		m.URLWrites,
		m.URLSyncFaults,
		m.FilterRuns,
		m.RecordsKept,
		m.FilterDuration,
		m.ResultCache,
		m.DatasetRecords,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics without registering them, so tests
// and short-lived stores can build as many as they like without
// "already registered" panics.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		StateUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "himark_dashboard",
			Name:      "state_updates_total",
			Help:      "State writes that changed a value, by root key.",
		}, []string{"root"}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "himark_dashboard",
			Name:      "notifications_total",
			Help:      "Debounced path notifications dispatched to subscribers.",
		}),
		SubscriberFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "himark_dashboard",
			Name:      "subscriber_faults_total",
			Help:      "Subscriber or event listener calls that panicked.",
		}),
		URLLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "himark_dashboard",
			Name:      "url_loads_total",
			Help:      "Filter state loads from the URL query string.",
		}),
		URLWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "himark_dashboard",
			Name:      "url_writes_total",
			Help:      "Filter state writes to the URL query string.",
		}),
		URLSyncFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "himark_dashboard",
			Name:      "url_sync_faults_total",
			Help:      "Failures reading or writing the URL, by operation.",
		}, []string{"op"}),
		FilterRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "himark_dashboard",
			Name:      "filter_runs_total",
			Help:      "Calls applying the current filters to a record set.",
		}),
		RecordsKept: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "himark_dashboard",
			Name:      "filter_records_kept",
			Help:      "Records left after applying filters.",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		}),
		FilterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "himark_dashboard",
			Name:      "filter_duration_seconds",
			Help:      "Duration of one filter application.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		ResultCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "himark_dashboard",
			Name:      "result_cache_total",
			Help:      "Filtered result cache lookups by result.",
		}, []string{"result"}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "himark_dashboard",
			Name:      "dataset_records",
			Help:      "Records in the loaded report dataset.",
		}),
	}
}
