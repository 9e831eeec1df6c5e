package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	transactions    *prometheus.CounterVec
	events          *prometheus.CounterVec
	logins          *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrack_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_external_errors_total",
				Help: "Total errors from external dependencies.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_transactions_total",
				Help: "Transactions written, by operation.",
			},
			[]string{"op"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_events_total",
				Help: "Domain events handed to the broker, by outcome.",
			},
			[]string{"status"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_logins_total",
				Help: "Login attempts, by result.",
			},
			[]string{"result"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// AddTransactions counts written transactions; op is created, imported or deleted.
func (m *Metrics) AddTransactions(op string, n int) {
	m.transactions.WithLabelValues(op).Add(float64(n))
}

// IncrEvent counts a publish outcome ("published" or "failed").
func (m *Metrics) IncrEvent(status string) {
	m.events.WithLabelValues(status).Inc()
}

// IncrLogin counts a login attempt ("success", "failure" or "locked").
func (m *Metrics) IncrLogin(result string) {
	m.logins.WithLabelValues(result).Inc()
}

// GetServiceSnapshot returns a snapshot suitable for GET /v1/metrics/service.
func (m *Metrics) GetServiceSnapshot() *domain.ServiceMetrics {
	hits := getCounterValue(m.cacheHits, "summary")
	misses := getCounterValue(m.cacheMisses, "summary")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.ServiceMetrics{
		TransactionsRecorded: int64(getCounterValue(m.transactions, "created")),
		TransactionsImported: int64(getCounterValue(m.transactions, "imported")),
		TransactionsDeleted:  int64(getCounterValue(m.transactions, "deleted")),
		LoginFailures:        int64(getCounterValue(m.logins, "failure") + getCounterValue(m.logins, "locked")),
		SummaryCacheHitRate:  hitRate,
		AvgSummaryLatencyMs:  getHistogramMeanMs(m.requestDuration, "summary.monthly"),
		EventsPublished:      int64(getCounterValue(m.events, "published")),
		EventsFailed:         int64(getCounterValue(m.events, "failed")),
		Period:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getHistogramMeanMs(hv *prometheus.HistogramVec, label string) float64 {
	obs, err := hv.GetMetricWithLabelValues(label)
	if err != nil {
		return 0
	}
	m := &dto.Metric{}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	h := m.GetHistogram()
	if h.GetSampleCount() == 0 {
		return 0
	}
	return h.GetSampleSum() / float64(h.GetSampleCount()) * 1000
}
