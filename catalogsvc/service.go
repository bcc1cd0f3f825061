// Package catalogsvc is the Encore service entrypoint: it wires the cache
// tiers, the distributed lock, the metrics sink, and the backing store into
// a catalog.ProductService and a catalog.Warmer, then exposes that service
// over a small set of //encore:api endpoints, following the pattern used
// throughout this module's services: a package-level var db, var secrets,
// an initService building every collaborator by hand, a package-level svc
// assigned from an init() that panics on failure, and free functions
// delegating to methods so Encore's code generator sees a plain function
// signature per endpoint.
package catalogsvc

import (
	"context"
	"fmt"

	"encore.dev/storage/sqldb"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/catalogcache/cache"
	"github.com/brightbasket/catalogcache/catalog"
	"github.com/brightbasket/catalogcache/pkg/catalogmetrics"
	"github.com/brightbasket/catalogcache/pkg/catalogslog"
	"github.com/brightbasket/catalogcache/pkg/clock"
	"github.com/brightbasket/catalogcache/store"
)

//encore:service
type Service struct {
	products *catalog.ProductService
	warmer   *catalog.Warmer
	log      *catalogslog.Logger
}

var db = sqldb.Named("catalog")

// secrets holds the values Encore injects at deploy time; see
// https://encore.dev/docs/primitives/secrets. RedisURL is a standard
// redis:// or rediss:// connection string.
var secrets struct {
	RedisURL string
}

func initService() (*Service, error) {
	logger := catalogslog.New()

	sharedCfg := cache.DefaultSharedConfig()

	opt, err := redis.ParseURL(secrets.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opt.PoolSize = sharedCfg.PoolSize
	opt.MinIdleConns = sharedCfg.MinIdleConns
	redisClient := redis.NewClient(opt)

	clk := clock.Real{}
	sink := catalogmetrics.NewPromSink(nil)

	l1 := cache.NewLocalCache(cache.DefaultLocalConfig(), clk, sink)
	l2 := cache.NewRedisSharedCache(redisClient, sharedCfg).WithLogger(logger)
	locker := cache.NewRedisLocker(redisClient, clk)
	guard := cache.NewStampedeGuard(locker, clk, cache.DefaultStampedeConfig(), sink).WithLogger(logger)
	tl := cache.NewTwoLevel(l1, l2, guard, clk, sink, sharedCfg).WithLogger(logger)

	// An unreachable L2 is degraded, never fatal: reads fall through to the
	// store and writes become L1-only until Redis comes back.
	if err := l2.Ping(context.Background()); err != nil {
		logger.Warn("cache.tier.unavailable", catalogslog.Fields{"op": "ping", "err": err.Error()})
	}

	productStore, err := store.NewPostgresStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize product store: %w", err)
	}

	cfg := catalog.DefaultConfig()
	products := catalog.NewProductService(tl, productStore, cfg, sink).WithLogger(logger)
	warmer := catalog.NewWarmer(products, cfg.Warmer)

	// The warmer runs to completion before initService returns, so the
	// service never advertises readiness over a cold cache. Phase failures
	// inside Run are logged, not returned.
	warmer.Run(context.Background())

	return &Service{products: products, warmer: warmer, log: logger}, nil
}

// Global service instance
var svc *Service

func init() {
	var err error
	svc, err = initService()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize catalog service: %v", err))
	}
}

//encore:api public method=GET path=/products/:id
func GetProduct(ctx context.Context, id int64) (*ProductResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.GetProduct(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*ProductResponse, error) {
	p, err := s.products.GetByID(ctx, id, true)
	if err != nil {
		return nil, translateErr(err)
	}
	return toProductResponse(p), nil
}

//encore:api public method=GET path=/products
func ListProducts(ctx context.Context) (*ProductListResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.ListProducts(ctx)
}

func (s *Service) ListProducts(ctx context.Context) (*ProductListResponse, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, translateErr(err)
	}
	return toProductListResponse(products), nil
}

//encore:api public method=GET path=/products/category/:category
func ListProductsByCategory(ctx context.Context, category string) (*ProductListResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.ListProductsByCategory(ctx, category)
}

func (s *Service) ListProductsByCategory(ctx context.Context, category string) (*ProductListResponse, error) {
	products, err := s.products.GetByCategory(ctx, category)
	if err != nil {
		return nil, translateErr(err)
	}
	return toProductListResponse(products), nil
}

//encore:api public method=GET path=/products/search
func SearchProducts(ctx context.Context, req *SearchRequest) (*ProductListResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.SearchProducts(ctx, req)
}

func (s *Service) SearchProducts(ctx context.Context, req *SearchRequest) (*ProductListResponse, error) {
	products, err := s.products.Search(ctx, req.Q)
	if err != nil {
		return nil, translateErr(err)
	}
	return toProductListResponse(products), nil
}

//encore:api public method=GET path=/products/price-range
func ListProductsByPriceRange(ctx context.Context, req *PriceRangeRequest) (*ProductListResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.ListProductsByPriceRange(ctx, req)
}

func (s *Service) ListProductsByPriceRange(ctx context.Context, req *PriceRangeRequest) (*ProductListResponse, error) {
	min, err := decimal.NewFromString(req.Min)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid min price %q", catalog.ErrInvalidInput, req.Min)
	}
	max, err := decimal.NewFromString(req.Max)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid max price %q", catalog.ErrInvalidInput, req.Max)
	}
	products, err := s.products.GetByPriceRange(ctx, min, max)
	if err != nil {
		return nil, translateErr(err)
	}
	return toProductListResponse(products), nil
}

//encore:api public method=GET path=/categories
func ListCategories(ctx context.Context) (*CategoryListResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.ListCategories(ctx)
}

func (s *Service) ListCategories(ctx context.Context) (*CategoryListResponse, error) {
	cats, err := s.products.GetCategories(ctx)
	if err != nil {
		return nil, translateErr(err)
	}
	return &CategoryListResponse{Categories: cats}, nil
}

//encore:api public method=POST path=/products
func CreateProduct(ctx context.Context, req *ProductRequest) (*ProductResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.CreateProduct(ctx, req)
}

func (s *Service) CreateProduct(ctx context.Context, req *ProductRequest) (*ProductResponse, error) {
	p, err := req.toProduct()
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, translateErr(err)
	}
	return toProductResponse(p), nil
}

//encore:api public method=PUT path=/products/:id
func UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (*ProductResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.UpdateProduct(ctx, id, req)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (*ProductResponse, error) {
	p, err := req.toProduct()
	if err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, id, p); err != nil {
		return nil, translateErr(err)
	}
	return toProductResponse(p), nil
}

// WarmCache re-runs the warm-up procedure on demand, e.g. after a bulk
// import. The startup warm has already run by the time this endpoint is
// reachable; repeating it only refreshes entries, so it is safe to call at
// any time.
//
//encore:api private method=POST path=/cache/warm
func WarmCache(ctx context.Context) (*WarmResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.WarmCache(ctx)
}

func (s *Service) WarmCache(ctx context.Context) (*WarmResponse, error) {
	s.warmer.Run(ctx)
	return &WarmResponse{Completed: true}, nil
}

//encore:api public method=DELETE path=/products/:id
func DeleteProduct(ctx context.Context, id int64) (*DeleteResponse, error) {
	if svc == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return svc.DeleteProduct(ctx, id)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) (*DeleteResponse, error) {
	if err := s.products.Delete(ctx, id); err != nil {
		return nil, translateErr(err)
	}
	return &DeleteResponse{Deleted: true}, nil
}

// translateErr passes every error through unchanged; catalog's own
// sentinels (ErrNotFound, ErrInvalidInput, ErrStoreUnavailable) are already
// descriptive, and Encore reports a non-nil endpoint error as a 500 with
// the error's message regardless of its concrete type.
func translateErr(err error) error {
	return err
}
