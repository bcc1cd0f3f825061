// Package catalogmetrics defines the metrics surface the cache and catalog
// layers emit to, and a Prometheus-backed implementation of it. The shape of
// the interface and the counter/histogram split is grounded in
// IvanBrykalov-shardcache/metrics/prom, adapted from that package's generic
// LRU metrics to the tier- and outcome-labeled counters this cache needs.
package catalogmetrics

import "time"

// Tier identifies which cache tier a metric event originated from.
type Tier string

const (
	TierL1     Tier = "l1"
	TierL2     Tier = "l2"
	TierOrigin Tier = "origin"
)

// LockOutcome labels a stampede-guard lock attempt.
type LockOutcome string

const (
	LockAcquired LockOutcome = "acquired"
	LockWaited   LockOutcome = "waited"
	LockTimedOut LockOutcome = "timed_out"
)

// Sink is the metrics surface consumed by cache and catalog. Implementations
// must be safe for concurrent use.
type Sink interface {
	// CacheHit records a value served from the given tier.
	CacheHit(tier Tier)
	// CacheMiss records a key absent from every tier, requiring a load.
	CacheMiss()
	// CacheEviction records an entry evicted from the given tier (capacity
	// or TTL pressure).
	CacheEviction(tier Tier)
	// LoadDuration records the wall time of a single loader invocation. It
	// carries no label.
	LoadDuration(d time.Duration)
	// LoadOrigin records a value that had to be materialized from the
	// origin because neither tier could serve it.
	LoadOrigin()
	// StoreQuery records one call into the backing ProductStore.
	StoreQuery(op string, d time.Duration, err error)
	// LockAttempt records the outcome of a stampede-guard lock attempt.
	LockAttempt(outcome LockOutcome)
	// LockHoldDuration records how long a lock was held before release or
	// expiry.
	LockHoldDuration(d time.Duration)
}
