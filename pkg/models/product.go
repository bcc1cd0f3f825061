// Package models provides the canonical data types shared across the
// caching core: the domain entity (Product), the cache key addressing
// scheme, and the cache entry metadata used by the L1 tier.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the canonical domain entity transported through the cache.
// Price is a decimal.Decimal rather than float64 so round-tripping through
// the L2 codec never introduces float drift.
type Product struct {
	ID            int64           `msgpack:"id"`
	Name          string          `msgpack:"name"`
	Description   string          `msgpack:"description"`
	Price         decimal.Decimal `msgpack:"price"`
	StockQuantity int             `msgpack:"stock_quantity"`
	Category      string          `msgpack:"category"`
	Brand         string          `msgpack:"brand"`
	ImageURL      string          `msgpack:"image_url"`
	Active        bool            `msgpack:"active"`
	CreatedAt     time.Time       `msgpack:"created_at"`
	UpdatedAt     time.Time       `msgpack:"updated_at"`
}

// Namespace identifies a logical cache partition with its own TTL policy
// and invalidation scope. It is always one of the fixed set enumerated by
// the catalog service (productById, products, categories, searchResults,
// priceRange).
type Namespace string

// CacheKey is the (namespace, id) pair that addresses a cached value.
// Keys are immutable once constructed.
type CacheKey struct {
	Namespace Namespace
	ID        string
}

// NewCacheKey builds a CacheKey from a namespace and id.
func NewCacheKey(ns Namespace, id string) CacheKey {
	return CacheKey{Namespace: ns, ID: id}
}

// WireKey returns the L2 wire-form string: "namespace::id".
func (k CacheKey) WireKey() string {
	return string(k.Namespace) + "::" + k.ID
}

// NamespacePrefix returns the "namespace::" prefix used for bulk namespace
// invalidation at both tiers.
func (k CacheKey) NamespacePrefix() string {
	return string(k.Namespace) + "::"
}

func (k CacheKey) String() string {
	return k.WireKey()
}
