package cache

import (
	"context"
	"errors"
	"time"

	"github.com/brightbasket/catalogcache/pkg/catalogmetrics"
	"github.com/brightbasket/catalogcache/pkg/catalogslog"
	"github.com/brightbasket/catalogcache/pkg/clock"
	"github.com/brightbasket/catalogcache/pkg/models"
)

// Loader fetches the authoritative value for key when neither cache tier has
// it. Returning ErrNotFound signals that the key genuinely does not exist
// (the caller should not retry); TwoLevel returns it, like any other loader
// error, unchanged and caches nothing.
type Loader func(ctx context.Context, key models.CacheKey) (interface{}, error)

// TTLPolicy carries the per-namespace TTL values for both tiers. L1's write
// TTL is expected to be strictly less than or equal to L2's TTL: L1 is
// unshared, so under cross-node writes only TTL convergence bounds
// staleness, and that bound is L1Write. Zero fields fall back to each
// tier's configured default.
type TTLPolicy struct {
	L1Write time.Duration
	L1Idle  time.Duration
	L2      time.Duration
}

// TwoLevel is the read-through, write-through orchestrator in front of L1
// (LocalCache) and L2 (RemoteCache), with loader calls serialized per key by
// a StampedeGuard when GetOrLoad is called with singleflight set. Every L2 hit backfills L1 before returning, and every
// loader result backfills both tiers, so a second reader never pays the
// origin cost for a key someone else just resolved. Kept as its own
// package-level type, separate from StampedeGuard, so the read path, the
// write path, and the stampede protection are independently testable.
type TwoLevel struct {
	l1     *LocalCache
	l2     RemoteCache
	guard  *StampedeGuard
	clk    clock.Clock
	sink   catalogmetrics.Sink
	ttlSet SharedConfig
	log    *catalogslog.Logger
}

// NewTwoLevel wires L1, L2, and the stampede guard into a single
// orchestrator.
func NewTwoLevel(l1 *LocalCache, l2 RemoteCache, guard *StampedeGuard, clk clock.Clock, sink catalogmetrics.Sink, sharedCfg SharedConfig) *TwoLevel {
	return &TwoLevel{l1: l1, l2: l2, guard: guard, clk: clk, sink: sink, ttlSet: sharedCfg}
}

// WithLogger attaches a structured logger for L2 decode and write failures
// that are otherwise swallowed into a cache miss or a degraded write. A nil
// logger (the default) silently drops these log lines.
func (t *TwoLevel) WithLogger(l *catalogslog.Logger) *TwoLevel {
	t.log = l
	return t
}

// GetOrLoad returns the value for key, consulting L1 then L2 then, on a
// complete miss, loading via the given Loader. When singleflight is true the
// loader call is wrapped by the StampedeGuard under lock key "lock:"+key, per
// the per-operation table in the catalog layer (only productById pays the
// distributed-lock cost; the rest run the loader directly and accept
// occasional duplicate origin hits on a simultaneous miss).
func (t *TwoLevel) GetOrLoad(ctx context.Context, key models.CacheKey, load Loader, ttl TTLPolicy, singleflight bool, newValue func() interface{}) (interface{}, Outcome, error) {
	if v, ok := t.l1.Get(key); ok {
		if t.sink != nil {
			t.sink.CacheHit(catalogmetrics.TierL1)
		}
		return v, OutcomeL1, nil
	}

	if v, ok := t.tryL2(ctx, key, newValue); ok {
		t.l1.Set(key, v, ttl.L1Write, ttl.L1Idle)
		if t.sink != nil {
			t.sink.CacheHit(catalogmetrics.TierL2)
		}
		return v, OutcomeL2, nil
	}

	if t.sink != nil {
		t.sink.CacheMiss()
	}

	start := t.clk.Now()
	var v interface{}
	var err error
	if singleflight {
		recheck := func(ctx context.Context) (interface{}, bool) {
			if v, ok := t.l1.Get(key); ok {
				return v, true
			}
			return t.tryL2(ctx, key, newValue)
		}
		v, err = t.guard.Run(ctx, key, recheck, func(ctx context.Context) (interface{}, error) {
			v, err := load(ctx, key)
			if err == nil {
				// Written while the lock is still held, so the next lock
				// holder's recheck finds the value instead of reloading it.
				_ = t.Put(ctx, key, v, ttl)
			}
			return v, err
		})
		// A lock-wait timeout degrades to an unprotected load: one extra
		// origin hit per timed-out caller, but never a failed read.
		if errors.Is(err, ErrLockTimeout) {
			v, err = load(ctx, key)
		}
	} else {
		v, err = load(ctx, key)
	}
	if t.sink != nil {
		t.sink.LoadDuration(t.clk.Now().Sub(start))
	}
	if err != nil {
		return nil, "", err
	}
	if t.sink != nil {
		t.sink.LoadOrigin()
	}

	_ = t.Put(ctx, key, v, ttl)
	return v, OutcomeOrigin, nil
}

func (t *TwoLevel) tryL2(ctx context.Context, key models.CacheKey, newValue func() interface{}) (interface{}, bool) {
	data, found, err := t.l2.Get(ctx, key)
	if err != nil || !found {
		return nil, false
	}
	out := newValue()
	if err := decodeValue(data, out); err != nil {
		t.log.Warn("cache.l2_decode_failed", catalogslog.Fields{"key": key.WireKey(), "err": err.Error()})
		return nil, false
	}
	return out, true
}

// Put writes value through to both tiers. Used both by GetOrLoad on an
// origin load and directly by mutation operations after a write to the
// backing store.
func (t *TwoLevel) Put(ctx context.Context, key models.CacheKey, value interface{}, ttl TTLPolicy) error {
	data, err := encodeValue(value)
	if err != nil {
		// An unencodable value is cached in neither tier; the caller's value
		// is still correct, so the read path just pays the origin cost again.
		t.log.Warn("cache.encode_failed", catalogslog.Fields{"key": key.WireKey(), "err": err.Error()})
		return err
	}

	l2ttl := ttl.L2
	if l2ttl == 0 {
		l2ttl = t.ttlSet.DefaultTTL
	}
	// L2 is written before L1 so a racing local reader can't observe an L1
	// value that L2 has not seen yet. L2 failures never fail the write: the
	// value still lands in L1 and simply misses L2 for other nodes until the
	// next write or TTL convergence.
	if err := t.l2.Set(ctx, key, data, l2ttl); err != nil {
		t.log.Warn("cache.l2_write_failed", catalogslog.Fields{"key": key.WireKey(), "err": err.Error()})
	}
	t.l1.Set(key, value, ttl.L1Write, ttl.L1Idle)
	return nil
}

// Invalidate removes key from both tiers.
func (t *TwoLevel) Invalidate(ctx context.Context, key models.CacheKey) error {
	t.l1.Delete(key)
	return t.l2.Delete(ctx, key)
}

// InvalidateNamespace removes every key under ns from both tiers. L1 is
// always fully cleared since it scans locally; L2 failures are returned so
// callers can decide whether to retry, but the L1 half is never rolled back
// since serving a stale L1 entry after a declared invalidation would violate
// the invalidation-completeness property.
func (t *TwoLevel) InvalidateNamespace(ctx context.Context, ns models.Namespace) error {
	t.l1.InvalidateNamespace(ns)
	return t.l2.InvalidateNamespace(ctx, ns)
}
