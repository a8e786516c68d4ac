// Package metrics exposes importer activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/legisync/pkg/reconciler"
)

const namespace = "legisync"

// Import kinds used as the "kind" label.
const (
	KindSession = "session"
	KindBill    = "bill"
)

// Metrics holds the importer's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	bills       *prometheus.CounterVec
	pages       *prometheus.CounterVec
	records     *prometheus.CounterVec
	activities  prometheus.Counter
	issues      prometheus.Counter
	duration    *prometheus.HistogramVec
	failures    *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// New creates and registers the importer metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_reconciled_total",
			Help:      "Feed records reconciled, by outcome.",
		}, []string{"outcome"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "pages_fetched_total",
			Help:      "Feed pages fetched, by session.",
		}, []string{"session"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "records_total",
			Help:      "Feed records received, by session.",
		}, []string{"session"}),
		activities: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sponsor_activities_total",
			Help:      "Sponsor activity entries recorded.",
		}),
		issues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_merge_issues_total",
			Help:      "Duplicates left for manual merging.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Import duration, by kind.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_failures_total",
			Help:      "Imports that rolled back, by kind.",
		}, []string{"kind"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last committed session import.",
		}, []string{"session"}),
	}
	m.registry.MustRegister(
		m.bills, m.pages, m.records, m.activities, m.issues,
		m.duration, m.failures, m.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, outcome := range reconciler.Outcomes {
		m.bills.WithLabelValues(string(outcome))
	}
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePage records one fetched feed page.
func (m *Metrics) ObservePage(session string, records int) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(session).Inc()
	m.records.WithLabelValues(session).Add(float64(records))
}

// ObserveResult records one reconciled record.
func (m *Metrics) ObserveResult(res *reconciler.Result) {
	if m == nil || res == nil {
		return
	}
	m.bills.WithLabelValues(string(res.Outcome)).Inc()
	if res.Activity != nil {
		m.activities.Inc()
	}
	if res.MergeIssue != nil {
		m.issues.Inc()
	}
}

// ObserveImport records how an import of the given kind ended. A committed
// session import also stamps the session's last-success gauge.
func (m *Metrics) ObserveImport(kind, session string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(kind).Inc()
		return
	}
	if kind == KindSession && session != "" {
		m.lastSuccess.WithLabelValues(session).SetToCurrentTime()
	}
}
