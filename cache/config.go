package cache

import "time"

// Outcome tags where a value was ultimately served from, for metrics and
// for tests that assert on the read path taken.
type Outcome string

const (
	OutcomeL1     Outcome = "l1"
	OutcomeL2     Outcome = "l2"
	OutcomeOrigin Outcome = "origin"
)

// LocalConfig configures the L1 in-process tier.
type LocalConfig struct {
	// Shards is the number of independently-locked LRU partitions. Keys are
	// routed by xxhash of the wire key. NewLocalCache rounds it up to the
	// next power of two.
	Shards int
	// MaxEntriesPerShard bounds each shard's LRU list length.
	MaxEntriesPerShard int
	// DefaultWriteTTL is used when TwoLevel.GetOrLoad is not given an
	// explicit TTL override.
	DefaultWriteTTL time.Duration
	// DefaultIdleTTL is the idle-access TTL applied alongside the write TTL;
	// zero disables idle expiry.
	DefaultIdleTTL time.Duration
	// SweepInterval is how often the background janitor scans for expired
	// entries. Zero disables the janitor (expiry is still enforced lazily
	// on Get).
	SweepInterval time.Duration
}

// DefaultLocalConfig returns sane defaults for production use: 16 shards of
// 625 entries each, bounding the tier at 10,000 entries total.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Shards:             16,
		MaxEntriesPerShard: 625,
		DefaultWriteTTL:    5 * time.Minute,
		DefaultIdleTTL:     3 * time.Minute,
		SweepInterval:      30 * time.Second,
	}
}

// SharedConfig configures the L2 shared tier.
type SharedConfig struct {
	// DefaultTTL is applied to SET when TwoLevel doesn't override it.
	DefaultTTL time.Duration
	// OpTimeout bounds every individual Redis round trip.
	OpTimeout time.Duration
	// ScanCount is the COUNT hint passed to SCAN during namespace
	// invalidation sweeps.
	ScanCount int64
	// PoolSize caps the Redis connection pool.
	PoolSize int
	// MinIdleConns keeps this many connections warm in the pool.
	MinIdleConns int
}

// DefaultSharedConfig returns sane defaults for production use.
func DefaultSharedConfig() SharedConfig {
	return SharedConfig{
		DefaultTTL:   10 * time.Minute,
		OpTimeout:    3 * time.Second,
		ScanCount:    200,
		PoolSize:     50,
		MinIdleConns: 10,
	}
}

// StampedeConfig configures the distributed-lock stampede guard.
type StampedeConfig struct {
	// LockTTL is the lease on the distributed lock: the lock store drops the
	// lock once it elapses, even if its holder is still loading, and another
	// caller may then acquire it. The lease is never refreshed.
	LockTTL time.Duration
	// WaitTimeout is the maximum time a follower will wait for the leader
	// to populate the cache before giving up and loading unprotected.
	WaitTimeout time.Duration
	// RetryInterval is the base backoff between lock-acquisition polls;
	// jitter is added on top of it.
	RetryInterval time.Duration
}

// DefaultStampedeConfig returns sane defaults for production use.
func DefaultStampedeConfig() StampedeConfig {
	return StampedeConfig{
		LockTTL:       10 * time.Second,
		WaitTimeout:   5 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}
