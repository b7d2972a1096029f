// Package metrics provides Prometheus metrics for the scan loop and its collaborators.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "tokenscout"

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// Provider
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec

	// Scanner
	CyclesTotal        prometheus.Counter
	CycleDuration      prometheus.Histogram
	CandidatesSeen     *prometheus.CounterVec
	CandidatesSkipped  *prometheus.CounterVec
	EnrichmentFailures *prometheus.CounterVec
	Matches            *prometheus.CounterVec
	ChainErrors        *prometheus.CounterVec
	ChainBreakerOpen   *prometheus.GaugeVec
	LastCycleUnix      prometheus.Gauge

	// Alerts
	AlertsTotal *prometheus.CounterVec

	// Criteria
	CriteriaUpdates *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Provider HTTP attempts by endpoint and status code",
		}, []string{"endpoint", "code"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Provider HTTP attempt latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		CyclesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycles_total",
			Help:      "Total number of scan cycles run",
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycle_duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		CandidatesSeen: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "candidates_total",
			Help:      "Candidates returned by discovery per chain",
		}, []string{"chain"}),
		CandidatesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "candidates_skipped_total",
			Help:      "Candidates dropped before enrichment by reason",
		}, []string{"chain", "reason"}),
		EnrichmentFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "enrichment_failures_total",
			Help:      "Tokens skipped because enrichment failed",
		}, []string{"chain"}),
		Matches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "matches_total",
			Help:      "Tokens accepted by the filter",
		}, []string{"chain"}),
		ChainErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "chain_errors_total",
			Help:      "Chains skipped in a cycle because discovery failed or the breaker was open",
		}, []string{"chain"}),
		ChainBreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "chain_breaker_open",
			Help:      "1 while the chain circuit breaker is not closed",
		}, []string{"chain"}),
		LastCycleUnix: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last scan cycle finished",
		}),

		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "total",
			Help:      "Alerts by outcome (sent, failed, suppressed)",
		}, []string{"outcome"}),

		CriteriaUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "criteria",
			Name:      "updates_total",
			Help:      "Accepted criteria updates by source",
		}, []string{"source"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest matches birdeye.RequestHook.
func (m *Metrics) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.ProviderLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ChainStats mirrors the per-chain counters of a scan report.
type ChainStats struct {
	Chain              string
	Candidates         int
	Malformed          int
	Invalid            int
	DetailFailures     int
	EnrichmentFailures int
	Cancelled          int
	Matches            int
	Failed             bool
}

// ObserveChain records one chain's share of a cycle.
func (m *Metrics) ObserveChain(s ChainStats) {
	if m == nil {
		return
	}
	m.CandidatesSeen.WithLabelValues(s.Chain).Add(float64(s.Candidates))
	m.CandidatesSkipped.WithLabelValues(s.Chain, "malformed").Add(float64(s.Malformed))
	m.CandidatesSkipped.WithLabelValues(s.Chain, "invalid_address").Add(float64(s.Invalid))
	m.CandidatesSkipped.WithLabelValues(s.Chain, "detail_failed").Add(float64(s.DetailFailures))
	m.CandidatesSkipped.WithLabelValues(s.Chain, "cancelled").Add(float64(s.Cancelled))
	m.EnrichmentFailures.WithLabelValues(s.Chain).Add(float64(s.EnrichmentFailures))
	m.Matches.WithLabelValues(s.Chain).Add(float64(s.Matches))
	if s.Failed {
		m.ChainErrors.WithLabelValues(s.Chain).Inc()
	}
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(elapsed time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
	m.LastCycleUnix.Set(float64(finishedAt.Unix()))
}

// SetBreakerOpen flags the chain breaker gauge.
func (m *Metrics) SetBreakerOpen(chain string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.ChainBreakerOpen.WithLabelValues(chain).Set(v)
}

// Alert outcomes.
const (
	AlertSent       = "sent"
	AlertFailed     = "failed"
	AlertSuppressed = "suppressed"
)

func (m *Metrics) ObserveAlert(outcome string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCriteriaUpdate(source string) {
	if m == nil {
		return
	}
	m.CriteriaUpdates.WithLabelValues(source).Inc()
}
