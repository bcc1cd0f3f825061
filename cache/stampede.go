package cache

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/brightbasket/catalogcache/pkg/catalogmetrics"
	"github.com/brightbasket/catalogcache/pkg/catalogslog"
	"github.com/brightbasket/catalogcache/pkg/clock"
	"github.com/brightbasket/catalogcache/pkg/models"
)

// DistributedLocker is the cluster-wide mutual-exclusion collaborator the
// StampedeGuard uses to ensure only one process, anywhere, loads a given key
// from the origin at a time. singleflight.Group (below) only solves the
// process-local half of this problem; the distributed half (SET NX PX + a
// holder-checked conditional delete) is modeled the way locking is usually
// done over Redis.
type DistributedLocker interface {
	// Acquire attempts to take the lock for key, returning a token
	// identifying this holder and true on success.
	Acquire(ctx context.Context, key models.CacheKey, ttl time.Duration) (models.LockToken, bool, error)
	// Release gives up the lock, but only if token is still the current
	// holder (prevents releasing a lock acquired by someone else after
	// ours expired).
	Release(ctx context.Context, token models.LockToken) error
}

// releaseScript deletes the lock key only if its value still matches the
// caller's holder token, so a stale release from an expired holder never
// evicts a newer holder's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// RedisLocker implements DistributedLocker over Redis SET NX PX.
type RedisLocker struct {
	client *redis.Client
	clk    clock.Clock
	script *redis.Script
}

// NewRedisLocker wraps an existing go-redis client.
func NewRedisLocker(client *redis.Client, clk clock.Clock) *RedisLocker {
	return &RedisLocker{client: client, clk: clk, script: redis.NewScript(releaseScript)}
}

func lockKeyFor(key models.CacheKey) string {
	return "lock:" + key.WireKey()
}

func (l *RedisLocker) Acquire(ctx context.Context, key models.CacheKey, ttl time.Duration) (models.LockToken, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKeyFor(key), token, ttl).Result()
	if err != nil {
		return models.LockToken{}, false, ErrTierUnavailable
	}
	if !ok {
		return models.LockToken{}, false, nil
	}
	now := l.clk.Now()
	return models.LockToken{
		Key:        key,
		HolderID:   token,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}, true, nil
}

func (l *RedisLocker) Release(ctx context.Context, token models.LockToken) error {
	_, err := l.script.Run(ctx, l.client, []string{lockKeyFor(token.Key)}, token.HolderID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return ErrTierUnavailable
	}
	return nil
}

var _ DistributedLocker = (*RedisLocker)(nil)

// StampedeGuard coordinates loader calls so that, for a given key, at most
// one process-wide goroutine (via singleflight.Group) and at most one
// cluster-wide holder (via DistributedLocker) ever calls the origin loader
// concurrently. Followers either receive the leader's in-process result
// directly (local fast path) or poll L2 until the leader's write lands or
// WaitTimeout elapses, at which point they fall back to an unprotected load.
type StampedeGuard struct {
	locker DistributedLocker
	local  singleflight.Group
	clk    clock.Clock
	cfg    StampedeConfig
	sink   catalogmetrics.Sink
	log    *catalogslog.Logger
}

// NewStampedeGuard builds a StampedeGuard.
func NewStampedeGuard(locker DistributedLocker, clk clock.Clock, cfg StampedeConfig, sink catalogmetrics.Sink) *StampedeGuard {
	return &StampedeGuard{locker: locker, clk: clk, cfg: cfg, sink: sink}
}

// WithLogger attaches a structured logger for lock-wait timeouts and
// swallowed release failures. A nil logger (the default) silently drops
// these log lines.
func (g *StampedeGuard) WithLogger(l *catalogslog.Logger) *StampedeGuard {
	g.log = l
	return g
}

// Run executes fn with at most one process-local and one cluster-wide
// concurrent caller for key. recheck is called after the distributed lock is
// acquired or after each wait poll, to let the caller double-check L2 before
// (re-)running fn — this is what makes backfill-after-wait correct: a
// follower that wins the lock after the leader already populated L2 must not
// reload from the origin.
func (g *StampedeGuard) Run(ctx context.Context, key models.CacheKey, recheck func(context.Context) (interface{}, bool), fn func(context.Context) (interface{}, error)) (interface{}, error) {
	v, err, _ := g.local.Do(key.WireKey(), func() (interface{}, error) {
		return g.runDistributed(ctx, key, recheck, fn)
	})
	return v, err
}

func (g *StampedeGuard) runDistributed(ctx context.Context, key models.CacheKey, recheck func(context.Context) (interface{}, bool), fn func(context.Context) (interface{}, error)) (interface{}, error) {
	deadline := g.clk.Now().Add(g.cfg.WaitTimeout)

	for {
		token, acquired, err := g.locker.Acquire(ctx, key, g.cfg.LockTTL)
		if err != nil {
			// The lock store itself is down; waiting out the full budget
			// would just stall every caller. Degrade to an unprotected load
			// immediately.
			if g.sink != nil {
				g.sink.LockAttempt(catalogmetrics.LockTimedOut)
			}
			g.log.Warn("cache.lock.store_unavailable", catalogslog.Fields{"key": key.WireKey(), "err": err.Error()})
			return nil, ErrLockTimeout
		}
		if acquired {
			if g.sink != nil {
				g.sink.LockAttempt(catalogmetrics.LockAcquired)
			}
			return g.loadAsLeader(ctx, token, recheck, fn)
		}

		if v, ok := recheck(ctx); ok {
			return v, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if g.clk.Now().After(deadline) {
			if g.sink != nil {
				g.sink.LockAttempt(catalogmetrics.LockTimedOut)
			}
			g.log.Warn("cache.lock.timed_out", catalogslog.Fields{"key": key.WireKey()})
			return nil, ErrLockTimeout
		}

		if g.sink != nil {
			g.sink.LockAttempt(catalogmetrics.LockWaited)
		}
		g.sleepWithJitter(ctx)
	}
}

func (g *StampedeGuard) loadAsLeader(ctx context.Context, token models.LockToken, recheck func(context.Context) (interface{}, bool), fn func(context.Context) (interface{}, error)) (interface{}, error) {
	start := g.clk.Now()
	defer func() {
		if g.sink != nil {
			g.sink.LockHoldDuration(g.clk.Now().Sub(start))
		}
		if err := g.locker.Release(ctx, token); err != nil {
			g.log.Warn("cache.lock.release_failed", catalogslog.Fields{"key": token.Key.WireKey(), "err": err.Error()})
		}
	}()

	// Double-check after acquiring: another leader may have populated the
	// value between our first recheck and winning the lock.
	if v, ok := recheck(ctx); ok {
		return v, nil
	}
	return fn(ctx)
}

func (g *StampedeGuard) sleepWithJitter(ctx context.Context) {
	jitter := time.Duration(rand.Int63n(int64(g.cfg.RetryInterval)))
	wait := g.cfg.RetryInterval/2 + jitter
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
