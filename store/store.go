// Package store provides the ProductStore collaborator the catalog layer
// loads from on a cache miss, and writes through to on mutation. The schema
// and migrations themselves are treated as an external concern; this package
// only implements the query surface the catalog package depends on, over
// encore.dev/storage/sqldb (PostgresStore) and in memory (InMemoryStore).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightbasket/catalogcache/pkg/models"
)

// ErrProductNotFound is returned by single-row lookups that find nothing.
var ErrProductNotFound = errors.New("store: product not found")

// ProductStore is the backing-store collaborator: the authoritative source
// the cache loads from and writes through to.
type ProductStore interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindActive(ctx context.Context, limit, offset int) ([]models.Product, error)
	FindByCategory(ctx context.Context, category string, limit, offset int) ([]models.Product, error)
	FindByPriceRange(ctx context.Context, min, max decimal.Decimal, limit, offset int) ([]models.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error)
	FindDistinctCategories(ctx context.Context) ([]string, error)
	FindTopNByRecency(ctx context.Context, n int) ([]models.Product, error)

	Save(ctx context.Context, p *models.Product) error
	DeleteByID(ctx context.Context, id int64) error
}

// nowFn exists only so tests can pin timestamps without an injected clock
// dependency across every store method signature.
var nowFn = time.Now
