package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightbasket/catalogcache/pkg/catalogslog"
	"github.com/brightbasket/catalogcache/pkg/codec"
	"github.com/brightbasket/catalogcache/pkg/models"
)

// RemoteCache is the L2 collaborator TwoLevel depends on. The teacher repo
// declared this interface but never shipped an implementation against a
// real store; RedisSharedCache below is that implementation.
type RemoteCache interface {
	Get(ctx context.Context, key models.CacheKey) ([]byte, bool, error)
	Set(ctx context.Context, key models.CacheKey, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key models.CacheKey) error
	InvalidateNamespace(ctx context.Context, ns models.Namespace) error
	// Ping reports whether the tier is reachable, for readiness probes.
	Ping(ctx context.Context) error
}

// RedisSharedCache is the production RemoteCache, backed by a single Redis
// deployment. Namespace invalidation uses SCAN+UNLINK rather than KEYS, so it
// never blocks the Redis event loop even over a large keyspace.
type RedisSharedCache struct {
	client *redis.Client
	cfg    SharedConfig
	log    *catalogslog.Logger
}

// NewRedisSharedCache wraps an existing go-redis client.
func NewRedisSharedCache(client *redis.Client, cfg SharedConfig) *RedisSharedCache {
	return &RedisSharedCache{client: client, cfg: cfg}
}

// WithLogger attaches a structured logger for tier-unavailable events. A nil
// *RedisSharedCache.log (the default) silently drops these log lines.
func (r *RedisSharedCache) WithLogger(l *catalogslog.Logger) *RedisSharedCache {
	r.log = l
	return r
}

func (r *RedisSharedCache) Get(ctx context.Context, key models.CacheKey) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, key.WireKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		r.log.Warn("cache.tier.unavailable", catalogslog.Fields{"op": "get", "key": key.WireKey(), "err": err.Error()})
		return nil, false, ErrTierUnavailable
	}
	return data, true, nil
}

func (r *RedisSharedCache) Set(ctx context.Context, key models.CacheKey, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, key.WireKey(), value, ttl).Err(); err != nil {
		r.log.Warn("cache.tier.unavailable", catalogslog.Fields{"op": "set", "key": key.WireKey(), "err": err.Error()})
		return ErrTierUnavailable
	}
	return nil
}

func (r *RedisSharedCache) Delete(ctx context.Context, key models.CacheKey) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	if err := r.client.Del(ctx, key.WireKey()).Err(); err != nil {
		r.log.Warn("cache.tier.unavailable", catalogslog.Fields{"op": "delete", "key": key.WireKey(), "err": err.Error()})
		return ErrTierUnavailable
	}
	return nil
}

// InvalidateNamespace deletes every key under ns's prefix via cursor-based
// SCAN, batching deletes with UNLINK (non-blocking delete) rather than DEL.
func (r *RedisSharedCache) InvalidateNamespace(ctx context.Context, ns models.Namespace) error {
	match := string(ns) + "::*"
	var cursor uint64
	for {
		scanCtx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
		keys, next, err := r.client.Scan(scanCtx, cursor, match, r.cfg.ScanCount).Result()
		cancel()
		if err != nil {
			return ErrTierUnavailable
		}
		if len(keys) > 0 {
			delCtx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
			err := r.client.Unlink(delCtx, keys...).Err()
			cancel()
			if err != nil {
				return ErrTierUnavailable
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (r *RedisSharedCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return ErrTierUnavailable
	}
	return nil
}

// encodeValue and decodeValue are the TwoLevel-facing helpers that route
// through pkg/codec, so RemoteCache itself only ever sees bytes.
func encodeValue(v interface{}) ([]byte, error) {
	data, err := codec.Encode(v)
	if err != nil {
		return nil, ErrCodecFailure
	}
	return data, nil
}

func decodeValue(data []byte, out interface{}) error {
	if err := codec.Decode(data, out); err != nil {
		return ErrCodecFailure
	}
	return nil
}

var _ RemoteCache = (*RedisSharedCache)(nil)
