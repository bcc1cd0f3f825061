package cache

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/brightbasket/catalogcache/pkg/catalogmetrics"
	"github.com/brightbasket/catalogcache/pkg/clock"
	"github.com/brightbasket/catalogcache/pkg/models"
)

// LocalCache is the L1, in-process tier: a fixed number of independently
// locked LRU shards, selected by xxhash of the wire key, built on
// sync.Mutex and container/list. Sharding across multiple locks means a
// single hot namespace doesn't serialize every L1 access behind one mutex;
// each shard's entries carry the idle-TTL semantics models.Entry defines.
type LocalCache struct {
	shards []*shard
	mask   uint64
	clk    clock.Clock
	cfg    LocalConfig
	sink   catalogmetrics.Sink

	hits      uint64
	misses    uint64
	evictions uint64

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// LocalStats is a point-in-time snapshot of the L1 tier's counters.
type LocalStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

type shard struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	maxSize int
}

type shardEntry struct {
	key   string
	entry *models.Entry
}

// NewLocalCache builds a LocalCache with cfg.Shards independently locked
// partitions. cfg.Shards is rounded up to the next power of two.
func NewLocalCache(cfg LocalConfig, clk clock.Clock, sink catalogmetrics.Sink) *LocalCache {
	n := nextPowerOfTwo(cfg.Shards)
	lc := &LocalCache{
		shards:    make([]*shard, n),
		mask:      uint64(n - 1),
		clk:       clk,
		cfg:       cfg,
		sink:      sink,
		stopSweep: make(chan struct{}),
	}
	for i := range lc.shards {
		lc.shards[i] = &shard{
			items:   make(map[string]*list.Element),
			order:   list.New(),
			maxSize: cfg.MaxEntriesPerShard,
		}
	}
	if cfg.SweepInterval > 0 {
		go lc.runSweeper(cfg.SweepInterval)
	}
	return lc
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (lc *LocalCache) shardFor(wireKey string) *shard {
	h := xxhash.Sum64String(wireKey)
	return lc.shards[h&lc.mask]
}

// Get returns the value for key if present and not expired. Expired entries
// are evicted lazily on lookup.
func (lc *LocalCache) Get(key models.CacheKey) (interface{}, bool) {
	wk := key.WireKey()
	s := lc.shardFor(wk)

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[wk]
	if !ok {
		atomic.AddUint64(&lc.misses, 1)
		return nil, false
	}
	se := el.Value.(*shardEntry)
	now := lc.clk.Now()
	if se.entry.IsExpired(now) {
		s.order.Remove(el)
		delete(s.items, wk)
		atomic.AddUint64(&lc.misses, 1)
		atomic.AddUint64(&lc.evictions, 1)
		if lc.sink != nil {
			lc.sink.CacheEviction(catalogmetrics.TierL1)
		}
		return nil, false
	}
	se.entry.Touch(now)
	s.order.MoveToFront(el)
	atomic.AddUint64(&lc.hits, 1)
	return se.entry.Value, true
}

// Set inserts or replaces key's value, evicting the shard's least-recently-
// used entry if it is at capacity. ttlWrite of zero uses the LocalCache's
// configured default.
func (lc *LocalCache) Set(key models.CacheKey, value interface{}, ttlWrite, ttlIdle time.Duration) {
	if ttlWrite == 0 {
		ttlWrite = lc.cfg.DefaultWriteTTL
	}
	if ttlIdle == 0 {
		ttlIdle = lc.cfg.DefaultIdleTTL
	}

	wk := key.WireKey()
	s := lc.shardFor(wk)
	now := lc.clk.Now()
	entry := models.NewEntry(key, value, now, ttlWrite, ttlIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[wk]; ok {
		el.Value = &shardEntry{key: wk, entry: entry}
		s.order.MoveToFront(el)
		return
	}

	el := s.order.PushFront(&shardEntry{key: wk, entry: entry})
	s.items[wk] = el

	if s.maxSize > 0 && s.order.Len() > s.maxSize {
		lc.evictLRUUnsafe(s)
	}
}

// evictLRUUnsafe removes the shard's least-recently-used entry. Caller must
// hold s.mu.
func (lc *LocalCache) evictLRUUnsafe(s *shard) {
	back := s.order.Back()
	if back == nil {
		return
	}
	se := back.Value.(*shardEntry)
	s.order.Remove(back)
	delete(s.items, se.key)
	atomic.AddUint64(&lc.evictions, 1)
	if lc.sink != nil {
		lc.sink.CacheEviction(catalogmetrics.TierL1)
	}
}

// Delete removes key from L1, if present.
func (lc *LocalCache) Delete(key models.CacheKey) {
	wk := key.WireKey()
	s := lc.shardFor(wk)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[wk]; ok {
		s.order.Remove(el)
		delete(s.items, wk)
	}
}

// InvalidateNamespace removes every key under the given namespace prefix.
// This scans all shards; it is the L1 half of TwoLevel.InvalidateNamespace.
func (lc *LocalCache) InvalidateNamespace(ns models.Namespace) int {
	prefix := string(ns) + "::"
	removed := 0
	for _, s := range lc.shards {
		s.mu.Lock()
		for wk, el := range s.items {
			if strings.HasPrefix(wk, prefix) {
				s.order.Remove(el)
				delete(s.items, wk)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Stats snapshots the cache's hit/miss/eviction counters and current size.
func (lc *LocalCache) Stats() LocalStats {
	return LocalStats{
		Hits:      atomic.LoadUint64(&lc.hits),
		Misses:    atomic.LoadUint64(&lc.misses),
		Evictions: atomic.LoadUint64(&lc.evictions),
		Size:      lc.Size(),
	}
}

// Size returns the total number of resident entries across all shards.
func (lc *LocalCache) Size() int {
	total := 0
	for _, s := range lc.shards {
		s.mu.Lock()
		total += s.order.Len()
		s.mu.Unlock()
	}
	return total
}

// Clear unconditionally drops every entry in every shard.
func (lc *LocalCache) Clear() {
	for _, s := range lc.shards {
		s.mu.Lock()
		s.items = make(map[string]*list.Element)
		s.order.Init()
		s.mu.Unlock()
	}
}

// Close stops the background sweeper, if running.
func (lc *LocalCache) Close() {
	lc.sweepOnce.Do(func() { close(lc.stopSweep) })
}

func (lc *LocalCache) runSweeper(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			lc.sweepExpired()
		case <-lc.stopSweep:
			return
		}
	}
}

func (lc *LocalCache) sweepExpired() {
	now := lc.clk.Now()
	for _, s := range lc.shards {
		s.mu.Lock()
		for wk, el := range s.items {
			se := el.Value.(*shardEntry)
			if se.entry.IsExpired(now) {
				s.order.Remove(el)
				delete(s.items, wk)
				atomic.AddUint64(&lc.evictions, 1)
				if lc.sink != nil {
					lc.sink.CacheEviction(catalogmetrics.TierL1)
				}
			}
		}
		s.mu.Unlock()
	}
}
