// Package catalog is the domain-facing surface: it owns the cache
// namespaces, key templates, and TTL policy, binds reads to cache.TwoLevel,
// and runs the mutation invalidation algebra after every store write. Each
// method calls TwoLevel's primitives directly rather than through
// declarative per-method annotations, table-driven by the namespace/key-
// template/TTL table namespaces.go defines.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightbasket/catalogcache/cache"
	"github.com/brightbasket/catalogcache/pkg/catalogmetrics"
	"github.com/brightbasket/catalogcache/pkg/catalogslog"
	"github.com/brightbasket/catalogcache/pkg/models"
	"github.com/brightbasket/catalogcache/store"
)

// ProductService is the catalog's read/write surface. Reads are
// read-through via TwoLevel; mutations write to the store first, then run
// the fixed invalidation algebra.
type ProductService struct {
	cache *cache.TwoLevel
	store store.ProductStore
	cfg   Config
	sink  catalogmetrics.Sink
	log   *catalogslog.Logger
}

// NewProductService wires a TwoLevel cache, a ProductStore, and a metrics
// sink into a ProductService. sink may be catalogmetrics.NoopSink{}.
func NewProductService(c *cache.TwoLevel, s store.ProductStore, cfg Config, sink catalogmetrics.Sink) *ProductService {
	return &ProductService{cache: c, store: s, cfg: cfg, sink: sink}
}

// WithLogger attaches a structured logger for invalidation failures that
// happen after a successful store commit: the mutation still returns
// success (the entries converge once their TTL elapses) but the failure is
// surfaced to logging and metrics. A nil logger (the default) silently
// drops these log lines.
func (s *ProductService) WithLogger(l *catalogslog.Logger) *ProductService {
	s.log = l
	return s
}

// invalidateNamespace invalidates ns and logs (but never surfaces) a
// failure; mutations never fail because a post-commit invalidation failed.
func (s *ProductService) invalidateNamespace(ctx context.Context, ns models.Namespace) {
	if err := s.cache.InvalidateNamespace(ctx, ns); err != nil {
		s.log.Error("catalog.invalidation.failed", err, catalogslog.Fields{"namespace": string(ns)})
	}
}

// queryStart marks the beginning of a ProductStore call; pair with
// (*ProductService).queryDone to record a single store.query.total
// observation labeled by op.
func queryStart() time.Time { return time.Now() }

func (s *ProductService) queryDone(op string, start time.Time, err error) {
	s.sink.StoreQuery(op, time.Since(start), err)
}

// wrapStoreErr adapts a store error on the mutation path, where the result
// goes straight back to the caller.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrProductNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// wrapLoaderErr adapts a store error to the Loader contract: a missing row
// becomes cache.ErrNotFound, the sentinel TwoLevel documents for a genuine
// miss; anything else is a store-availability failure.
// translateGetOrLoadErr turns the sentinel back into the catalog's own
// ErrNotFound once the read returns.
func wrapLoaderErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrProductNotFound) {
		return cache.ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func newProductPtr() interface{}     { return new(models.Product) }
func newProductListPtr() interface{} { return new([]models.Product) }
func newStringListPtr() interface{}  { return new([]string) }

// GetByID reads productById/id, read-through to the store on miss. Per the
// per-operation table, productById is the only read path for which
// singleflight coordination is optional rather than fixed; callers that
// expect the id to be hot (product detail pages, repeated polling) should
// pass singleflight=true, callers doing a one-off lookup may pass false to
// avoid paying the distributed-lock round trip.
func (s *ProductService) GetByID(ctx context.Context, id int64, singleflight bool) (*models.Product, error) {
	key := models.NewCacheKey(nsProductByID, strconv.FormatInt(id, 10))
	loader := func(ctx context.Context, _ models.CacheKey) (interface{}, error) {
		start := queryStart()
		p, err := s.store.FindByID(ctx, id)
		s.queryDone("find_by_id", start, err)
		if err != nil {
			return nil, wrapLoaderErr(err)
		}
		return p, nil
	}

	v, _, err := s.cache.GetOrLoad(ctx, key, loader, ttlPolicyFor(nsProductByID), singleflight, newProductPtr)
	if err != nil {
		return nil, translateGetOrLoadErr(err)
	}
	return v.(*models.Product), nil
}

// GetAll reads products/all, read-through to the store on miss.
func (s *ProductService) GetAll(ctx context.Context) ([]models.Product, error) {
	key := models.NewCacheKey(nsProducts, "all")
	loader := func(ctx context.Context, _ models.CacheKey) (interface{}, error) {
		start := queryStart()
		products, err := s.store.FindActive(ctx, s.cfg.DefaultPageSize, 0)
		s.queryDone("find_active", start, err)
		if err != nil {
			return nil, wrapLoaderErr(err)
		}
		return &products, nil
	}
	v, _, err := s.cache.GetOrLoad(ctx, key, loader, ttlPolicyFor(nsProducts), false, newProductListPtr)
	if err != nil {
		return nil, translateGetOrLoadErr(err)
	}
	return *(v.(*[]models.Product)), nil
}

// GetByCategory reads products/category:<cat>, read-through on miss.
func (s *ProductService) GetByCategory(ctx context.Context, category string) ([]models.Product, error) {
	if category == "" {
		return nil, ErrInvalidInput
	}
	key := models.NewCacheKey(nsProducts, "category:"+category)
	loader := func(ctx context.Context, _ models.CacheKey) (interface{}, error) {
		start := queryStart()
		products, err := s.store.FindByCategory(ctx, category, s.cfg.DefaultPageSize, 0)
		s.queryDone("find_by_category", start, err)
		if err != nil {
			return nil, wrapLoaderErr(err)
		}
		return &products, nil
	}
	v, _, err := s.cache.GetOrLoad(ctx, key, loader, ttlPolicyFor(nsProducts), false, newProductListPtr)
	if err != nil {
		return nil, translateGetOrLoadErr(err)
	}
	return *(v.(*[]models.Product)), nil
}

// Search reads searchResults/<lowercased keyword>, read-through on miss.
func (s *ProductService) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, ErrInvalidInput
	}
	normalized := strings.ToLower(keyword)
	key := models.NewCacheKey(nsSearchResults, normalized)
	loader := func(ctx context.Context, _ models.CacheKey) (interface{}, error) {
		start := queryStart()
		products, err := s.store.SearchProducts(ctx, normalized, s.cfg.DefaultPageSize)
		s.queryDone("search_products", start, err)
		if err != nil {
			return nil, wrapLoaderErr(err)
		}
		return &products, nil
	}
	v, _, err := s.cache.GetOrLoad(ctx, key, loader, ttlPolicyFor(nsSearchResults), false, newProductListPtr)
	if err != nil {
		return nil, translateGetOrLoadErr(err)
	}
	return *(v.(*[]models.Product)), nil
}

// GetByPriceRange reads priceRange/price:<min>-<max>, read-through on miss.
func (s *ProductService) GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]models.Product, error) {
	if min.GreaterThan(max) {
		return nil, ErrInvalidInput
	}
	key := models.NewCacheKey(nsPriceRange, "price:"+min.String()+"-"+max.String())
	loader := func(ctx context.Context, _ models.CacheKey) (interface{}, error) {
		start := queryStart()
		products, err := s.store.FindByPriceRange(ctx, min, max, s.cfg.DefaultPageSize, 0)
		s.queryDone("find_by_price_range", start, err)
		if err != nil {
			return nil, wrapLoaderErr(err)
		}
		return &products, nil
	}
	v, _, err := s.cache.GetOrLoad(ctx, key, loader, ttlPolicyFor(nsPriceRange), false, newProductListPtr)
	if err != nil {
		return nil, translateGetOrLoadErr(err)
	}
	return *(v.(*[]models.Product)), nil
}

// GetCategories reads categories/all, read-through on miss.
func (s *ProductService) GetCategories(ctx context.Context) ([]string, error) {
	key := models.NewCacheKey(nsCategories, "all")
	loader := func(ctx context.Context, _ models.CacheKey) (interface{}, error) {
		start := queryStart()
		cats, err := s.store.FindDistinctCategories(ctx)
		s.queryDone("find_distinct_categories", start, err)
		if err != nil {
			return nil, wrapLoaderErr(err)
		}
		return &cats, nil
	}
	v, _, err := s.cache.GetOrLoad(ctx, key, loader, ttlPolicyFor(nsCategories), false, newStringListPtr)
	if err != nil {
		return nil, translateGetOrLoadErr(err)
	}
	return *(v.(*[]string)), nil
}

// Create inserts a product and invalidates the namespaces its absence
// previously made cacheable: products, categories, priceRange.
func (s *ProductService) Create(ctx context.Context, p *models.Product) error {
	if p.Name == "" {
		return ErrInvalidInput
	}
	start := queryStart()
	err := s.store.Save(ctx, p)
	s.queryDone("save", start, err)
	if err != nil {
		return wrapStoreErr(err)
	}

	// Invalidation runs after the store commit; a failure here doesn't fail
	// the mutation (the entries converge once their TTL elapses), but is
	// logged and metered per-namespace.
	s.invalidateNamespace(ctx, nsProducts)
	s.invalidateNamespace(ctx, nsCategories)
	s.invalidateNamespace(ctx, nsPriceRange)
	return nil
}

// Update overwrites a product, refreshes its productById entry directly
// (cache-put, both tiers), then invalidates products and priceRange.
func (s *ProductService) Update(ctx context.Context, id int64, p *models.Product) error {
	if p.Name == "" {
		return ErrInvalidInput
	}
	p.ID = id
	start := queryStart()
	err := s.store.Save(ctx, p)
	s.queryDone("save", start, err)
	if err != nil {
		return wrapStoreErr(err)
	}

	key := models.NewCacheKey(nsProductByID, strconv.FormatInt(id, 10))
	if err := s.cache.Put(ctx, key, p, ttlPolicyFor(nsProductByID)); err != nil {
		s.log.Error("catalog.cache_put_failed", err, catalogslog.Fields{"key": key.WireKey()})
	}

	s.invalidateNamespace(ctx, nsProducts)
	s.invalidateNamespace(ctx, nsPriceRange)
	return nil
}

// Delete removes a product, invalidates its productById entry directly, and
// invalidates products, priceRange, and searchResults.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	start := queryStart()
	err := s.store.DeleteByID(ctx, id)
	s.queryDone("delete_by_id", start, err)
	if err != nil {
		return wrapStoreErr(err)
	}

	key := models.NewCacheKey(nsProductByID, strconv.FormatInt(id, 10))
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Error("catalog.invalidation.failed", err, catalogslog.Fields{"key": key.WireKey()})
	}
	s.invalidateNamespace(ctx, nsProducts)
	s.invalidateNamespace(ctx, nsPriceRange)
	s.invalidateNamespace(ctx, nsSearchResults)
	return nil
}

// translateGetOrLoadErr maps the cache tier's ErrNotFound (produced by
// wrapLoaderErr when the store has no such row) to the catalog's own
// sentinel; every other error passes through unchanged.
func translateGetOrLoadErr(err error) error {
	if errors.Is(err, cache.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
