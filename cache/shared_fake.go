package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/brightbasket/catalogcache/pkg/clock"
	"github.com/brightbasket/catalogcache/pkg/models"
)

// FakeRemoteCache is an in-memory RemoteCache double for tests that need L2
// behavior (including TTL expiry, driven by an injected clock.Clock) without
// a real Redis instance.
type FakeRemoteCache struct {
	mu   sync.Mutex
	data map[string]fakeEntry
	clk  clock.Clock

	// Unavailable, when set, makes every method return ErrTierUnavailable,
	// simulating an L2 outage for degraded-path tests.
	Unavailable bool
}

type fakeEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewFakeRemoteCache builds an empty FakeRemoteCache driven by clk.
func NewFakeRemoteCache(clk clock.Clock) *FakeRemoteCache {
	return &FakeRemoteCache{data: make(map[string]fakeEntry), clk: clk}
}

func (f *FakeRemoteCache) Get(_ context.Context, key models.CacheKey) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, false, ErrTierUnavailable
	}
	e, ok := f.data[key.WireKey()]
	if !ok {
		return nil, false, nil
	}
	if f.clk.Now().After(e.expiresAt) {
		delete(f.data, key.WireKey())
		return nil, false, nil
	}
	return e.value, true, nil
}

func (f *FakeRemoteCache) Set(_ context.Context, key models.CacheKey, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return ErrTierUnavailable
	}
	f.data[key.WireKey()] = fakeEntry{value: value, expiresAt: f.clk.Now().Add(ttl)}
	return nil
}

func (f *FakeRemoteCache) Delete(_ context.Context, key models.CacheKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return ErrTierUnavailable
	}
	delete(f.data, key.WireKey())
	return nil
}

func (f *FakeRemoteCache) InvalidateNamespace(_ context.Context, ns models.Namespace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return ErrTierUnavailable
	}
	prefix := string(ns) + "::"
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
		}
	}
	return nil
}

func (f *FakeRemoteCache) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return ErrTierUnavailable
	}
	return nil
}

// Len returns the number of resident (not necessarily unexpired) keys.
// Intended for test assertions.
func (f *FakeRemoteCache) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

var _ RemoteCache = (*FakeRemoteCache)(nil)
