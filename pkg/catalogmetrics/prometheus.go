package catalogmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink is the production Sink, backed by Prometheus counters,
// histograms, and a query-outcome vector. Constructed once per process and
// shared across the cache and catalog layers.
type PromSink struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    prometheus.Counter
	cacheEvictions *prometheus.CounterVec
	loadDuration   prometheus.Histogram
	loadOrigins    prometheus.Counter
	storeQueries   *prometheus.CounterVec
	storeDuration  *prometheus.HistogramVec
	lockAttempts   *prometheus.CounterVec
	lockHold       prometheus.Histogram
}

// NewPromSink builds a PromSink and registers its collectors. reg may be nil,
// in which case prometheus.DefaultRegisterer is used.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	const ns = "catalogcache"
	s := &PromSink{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_hits_total",
			Help:      "Cache hits by tier.",
		}, []string{"tier"}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_misses_total",
			Help:      "Keys absent from every tier.",
		}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted by tier.",
		}, []string{"tier"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "cache_load_duration_seconds",
			Help:      "Loader invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		loadOrigins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_load_origin_total",
			Help:      "Values materialized from the origin after a full cache miss.",
		}),
		storeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "store_queries_total",
			Help:      "Backing store calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "store_query_duration_seconds",
			Help:      "Backing store call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		lockAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "lock_attempts_total",
			Help:      "Stampede-guard lock attempts by outcome.",
		}, []string{"outcome"}),
		lockHold: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "lock_hold_duration_seconds",
			Help:      "Stampede-guard lock hold duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		s.cacheHits, s.cacheMisses, s.cacheEvictions, s.loadDuration,
		s.loadOrigins, s.storeQueries, s.storeDuration, s.lockAttempts, s.lockHold,
	)
	return s
}

func (s *PromSink) CacheHit(tier Tier)      { s.cacheHits.WithLabelValues(string(tier)).Inc() }
func (s *PromSink) CacheMiss()              { s.cacheMisses.Inc() }
func (s *PromSink) CacheEviction(tier Tier) { s.cacheEvictions.WithLabelValues(string(tier)).Inc() }

func (s *PromSink) LoadDuration(d time.Duration) {
	s.loadDuration.Observe(d.Seconds())
}

func (s *PromSink) LoadOrigin() {
	s.loadOrigins.Inc()
}

func (s *PromSink) StoreQuery(op string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.storeQueries.WithLabelValues(op, outcome).Inc()
	s.storeDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (s *PromSink) LockAttempt(outcome LockOutcome) {
	s.lockAttempts.WithLabelValues(string(outcome)).Inc()
}

func (s *PromSink) LockHoldDuration(d time.Duration) {
	s.lockHold.Observe(d.Seconds())
}

var _ Sink = (*PromSink)(nil)
