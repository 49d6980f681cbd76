package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchAttempts  *prometheus.CounterVec
	fetchOutcomes  *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	cacheSize      prometheus.Gauge
	lastPrice      *prometheus.GaugeVec
}

// New creates a recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpull_fetch_attempts_total",
				Help: "Outbound market_chart attempts by result",
			},
			[]string{"result"},
		),
		fetchOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpull_fetch_outcomes_total",
				Help: "Logical fetches by final outcome",
			},
			[]string{"outcome"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpull_fetch_duration_seconds",
				Help:    "Duration of a logical fetch including retries",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
			},
			[]string{"outcome"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpull_cache_lookups_total",
				Help: "Bucketed cache lookups by result (hit, miss, shared)",
			},
			[]string{"result"},
		),
		cacheEvictions: f.NewCounter(
			prometheus.CounterOpts{
				Name: "coinpull_cache_evictions_total",
				Help: "Entries evicted from the bucketed cache",
			},
		),
		cacheSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinpull_cache_entries",
				Help: "Entries currently held by the bucketed cache",
			},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinpull_last_price_usd",
				Help: "Last fetched USD price for a coin",
			},
			[]string{"coin"},
		),
	}
}

// RecordFetchAttempt records a single outbound attempt.
func (r *Recorder) RecordFetchAttempt(result string) {
	r.fetchAttempts.WithLabelValues(result).Inc()
}

// RecordFetchOutcome records a finished logical fetch.
func (r *Recorder) RecordFetchOutcome(outcome string, seconds float64) {
	r.fetchOutcomes.WithLabelValues(outcome).Inc()
	r.fetchLatency.WithLabelValues(outcome).Observe(seconds)
}

func (r *Recorder) RecordCacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordCacheEviction() {
	r.cacheEvictions.Inc()
}

func (r *Recorder) RecordCacheSize(n int) {
	r.cacheSize.Set(float64(n))
}

// RecordLastPrice records the last price for a coin.
func (r *Recorder) RecordLastPrice(coin string, price float64) {
	r.lastPrice.WithLabelValues(coin).Set(price)
}
