package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastWarmerConfig() WarmerConfig {
	return WarmerConfig{
		ActiveProductLimit: 100,
		NewArrivalsLimit:   10,
		Concurrency:        4,
		OriginRate:         10000,
		OriginBurst:        100,
	}
}

func seedCatalog(h *testHarness) {
	h.store.Seed(
		sampleProduct(1, "Widget", "9.99"),
		sampleProduct(2, "Gadget", "19.99"),
		sampleProduct(3, "Doohickey", "4.99"),
	)
}

func TestWarmerPopulatesAllPhases(t *testing.T) {
	h := newTestHarness(t)
	seedCatalog(h)

	w := NewWarmer(h.svc, fastWarmerConfig())
	w.Run(context.Background())

	// Phase 1: every active product is resident under productById; reads
	// after warming never reach the store.
	for id := int64(1); id <= 3; id++ {
		p, err := h.svc.GetByID(context.Background(), id, false)
		require.NoError(t, err)
		assert.NotEmpty(t, p.Name)
	}
	assert.Equal(t, 0, h.store.calls(), "warmed productById entries must serve without a store hit")

	// Phase 2: categories/all is warm.
	queriesBefore := h.sink.QueryCalls["find_distinct_categories"]
	cats, err := h.svc.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"widgets"}, cats)
	assert.Equal(t, queriesBefore, h.sink.QueryCalls["find_distinct_categories"])

	// Phase 3: products/category:<name> is warm.
	byCatBefore := h.sink.QueryCalls["find_by_category"]
	products, err := h.svc.GetByCategory(context.Background(), "widgets")
	require.NoError(t, err)
	assert.Len(t, products, 3)
	assert.Equal(t, byCatBefore, h.sink.QueryCalls["find_by_category"])
}

func TestWarmerIsIdempotent(t *testing.T) {
	h := newTestHarness(t)
	seedCatalog(h)

	w := NewWarmer(h.svc, fastWarmerConfig())
	w.Run(context.Background())
	keysAfterFirst := h.l2.Len()

	w.Run(context.Background())
	assert.Equal(t, keysAfterFirst, h.l2.Len(), "a second warm run must not grow the cache")

	_, err := h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, 0, h.store.calls())
}

func TestWarmerKeepsL1WarmWhenL2WritesFail(t *testing.T) {
	h := newTestHarness(t)
	seedCatalog(h)

	// Make only L2 writes fail: TwoLevel.Put still writes L1 and reports
	// success, so the run completes and L1 still ends up warm.
	h.l2.Unavailable = true
	w := NewWarmer(h.svc, fastWarmerConfig())
	w.Run(context.Background())

	_, err := h.svc.GetByID(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, 0, h.store.calls(), "L1 must still be warm when only L2 writes failed")
}
