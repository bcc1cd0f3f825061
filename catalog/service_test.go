package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightbasket/catalogcache/cache"
	"github.com/brightbasket/catalogcache/pkg/catalogmetrics"
	"github.com/brightbasket/catalogcache/pkg/clock"
	"github.com/brightbasket/catalogcache/pkg/codec"
	"github.com/brightbasket/catalogcache/pkg/models"
	"github.com/brightbasket/catalogcache/store"
)

// fakeLocker is an in-memory DistributedLocker double, local to this package
// since cache.fakeLocker is unexported. Mirrors cache/stampede_test.go's.
type fakeLocker struct {
	mu      sync.Mutex
	holders map[string]models.LockToken
	clk     clock.Clock
}

func newFakeLocker(clk clock.Clock) *fakeLocker {
	return &fakeLocker{holders: make(map[string]models.LockToken), clk: clk}
}

func (f *fakeLocker) Acquire(_ context.Context, key models.CacheKey, ttl time.Duration) (models.LockToken, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wk := key.WireKey()
	now := f.clk.Now()
	if existing, ok := f.holders[wk]; ok && !existing.Expired(now) {
		return models.LockToken{}, false, nil
	}
	token := models.LockToken{
		Key:        key,
		HolderID:   key.WireKey() + "-" + now.String(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	f.holders[wk] = token
	return token, true, nil
}

func (f *fakeLocker) Release(_ context.Context, token models.LockToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	wk := token.Key.WireKey()
	if existing, ok := f.holders[wk]; ok && existing.HolderID == token.HolderID {
		delete(f.holders, wk)
	}
	return nil
}

// countingStore wraps an InMemoryStore and counts FindByID calls, since the
// concrete store double has no built-in call accounting.
type countingStore struct {
	*store.InMemoryStore
	mu            sync.Mutex
	findByIDCalls int
}

func newCountingStore() *countingStore {
	return &countingStore{InMemoryStore: store.NewInMemoryStore()}
}

func (s *countingStore) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	s.findByIDCalls++
	s.mu.Unlock()
	return s.InMemoryStore.FindByID(ctx, id)
}

func (s *countingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByIDCalls
}

type testHarness struct {
	svc   *ProductService
	store *countingStore
	clk   *clock.Fake
	sink  *catalogmetrics.TestSink
	l2    *cache.FakeRemoteCache
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := catalogmetrics.NewTestSink()
	l1 := cache.NewLocalCache(cache.LocalConfig{Shards: 4, MaxEntriesPerShard: 1000, DefaultWriteTTL: 5 * time.Minute}, clk, sink)
	l2 := cache.NewFakeRemoteCache(clk)
	locker := newFakeLocker(clk)
	guard := cache.NewStampedeGuard(locker, clk, cache.DefaultStampedeConfig(), sink)
	tl := cache.NewTwoLevel(l1, l2, guard, clk, sink, cache.DefaultSharedConfig())

	st := newCountingStore()
	svc := NewProductService(tl, st, DefaultConfig(), sink)
	return &testHarness{svc: svc, store: st, clk: clk, sink: sink, l2: l2}
}

func sampleProduct(id int64, name string, price string) models.Product {
	p, _ := decimal.NewFromString(price)
	return models.Product{
		ID:        id,
		Name:      name,
		Category:  "widgets",
		Price:     p,
		Active:    true,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// S1 — Read miss then hit.
func TestS1ReadMissThenHit(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed(sampleProduct(1, "Widget", "9.99"))

	p, err := h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, 1, h.store.calls())

	p2, err := h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "Widget", p2.Name)
	assert.Equal(t, 1, h.store.calls(), "second call must be served from L1, not the store")
	assert.Equal(t, 1, h.sink.Hits[catalogmetrics.TierL1])
}

// S2 — Backfill: an L2-only hit populates L1 for the next read.
func TestS2Backfill(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed(sampleProduct(2, "Gadget", "19.99"))

	// Seed L2 directly (bypassing L1) the way a foreign node's write would
	// arrive: this node's L1 has never seen the key.
	key := models.NewCacheKey(nsProductByID, "2")
	p := sampleProduct(2, "Gadget", "19.99")
	data, err := codec.Encode(&p)
	require.NoError(t, err)
	require.NoError(t, h.l2.Set(context.Background(), key, data, 15*time.Minute))

	got, err := h.svc.GetByID(context.Background(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", got.Name)
	assert.Equal(t, 0, h.store.calls(), "an L2 hit must not reach the store")

	got2, err := h.svc.GetByID(context.Background(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", got2.Name)
	assert.Equal(t, 1, h.sink.Hits[catalogmetrics.TierL1], "second read must be served from the backfilled L1 entry")
}

// S3 — Stampede: 100 concurrent GetByID(3, singleflight=true) calls on an
// empty cache collapse to exactly one store hit.
func TestS3Stampede(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed(sampleProduct(3, "Hot Item", "5.00"))

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			p, err := h.svc.GetByID(context.Background(), 3, true)
			assert.NoError(t, err)
			if err == nil {
				assert.Equal(t, "Hot Item", p.Name)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.store.calls(), "singleflight must collapse all concurrent loads into one store call")
}

// S4 — Invalidation on update: an Update makes an immediately following
// GetByID observe the new value, never the stale one.
func TestS4InvalidationOnUpdate(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed(sampleProduct(1, "Widget", "9.99"))

	p1, err := h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "Widget", p1.Name)

	updated := sampleProduct(1, "Widget Deluxe", "14.99")
	require.NoError(t, h.svc.Update(context.Background(), 1, &updated))

	p2, err := h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "Widget Deluxe", p2.Name)
}

// S5 — TTL expiry: once the configured L2 TTL elapses, the next read goes
// back to the origin.
func TestS5TTLExpiry(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed(sampleProduct(1, "Widget", "9.99"))

	_, err := h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.calls())

	h.clk.Advance(16 * time.Minute) // past productById's 15m L2 TTL and 5m L1 TTL

	_, err = h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, 2, h.store.calls(), "expired entries must reload from the origin")
}

// S6 — Cache tier outage: an L2 failure degrades to a direct store read
// rather than surfacing an error.
func TestS6CacheTierOutage(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed(sampleProduct(5, "Resilient Widget", "3.50"))
	h.l2.Unavailable = true

	p, err := h.svc.GetByID(context.Background(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, "Resilient Widget", p.Name)
	assert.Equal(t, 1, h.store.calls())
}

func TestGetByIDNotFoundIsNotCached(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.svc.GetByID(context.Background(), 999, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInvalidatesListNamespaces(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed(sampleProduct(1, "Widget", "9.99"))

	_, err := h.svc.GetAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, h.svc.Create(context.Background(), &models.Product{Name: "New Thing", Category: "widgets", Active: true}))

	// products namespace must have been invalidated; the next GetAll must
	// reflect the newly created product.
	products, err := h.svc.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestDeleteInvalidatesProductByIDAndLists(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed(sampleProduct(1, "Widget", "9.99"))

	_, err := h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(context.Background(), 1))

	_, err = h.svc.GetByID(context.Background(), 1, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidInputIsNeverCached(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.svc.GetByCategory(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	max := decimal.NewFromInt(1)
	min := decimal.NewFromInt(10)
	_, err = h.svc.GetByPriceRange(context.Background(), min, max)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
