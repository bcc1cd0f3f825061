package catalog

import (
	"time"

	"github.com/brightbasket/catalogcache/cache"
)

// Namespaces name the fixed partition set the catalog reads and writes
// through cache.TwoLevel.
const (
	nsProductByID   = "productById"
	nsProducts      = "products"
	nsSearchResults = "searchResults"
	nsPriceRange    = "priceRange"
	nsCategories    = "categories"
)

// l2TTL is the per-namespace L2 (shared tier) TTL table.
var l2TTL = map[string]time.Duration{
	nsProductByID:   15 * time.Minute,
	nsProducts:      10 * time.Minute,
	nsSearchResults: 5 * time.Minute,
	nsPriceRange:    3 * time.Minute,
	nsCategories:    60 * time.Minute,
}

// l1Policy is one row of l1TTLByNamespace, the per-namespace L1 (in-process
// tier) write/idle TTL table. Namespaces not listed there, and zero fields, fall back to the cache's configured defaults.
type l1Policy struct {
	Write time.Duration
	Idle  time.Duration
}

// Every namespace's L1 write TTL must stay at or below its l2TTL entry:
// L1 is unshared, so its TTL is the cross-node staleness bound, and an L1
// entry outliving its L2 counterpart would invert tier freshness. That is
// why priceRange, whose L2 TTL is only 3m, gets its own shorter pair here
// instead of inheriting the cache's 5m default.
var l1TTLByNamespace = map[string]l1Policy{
	nsProductByID:   {Write: 5 * time.Minute, Idle: 3 * time.Minute},
	nsCategories:    {Write: 5 * time.Minute, Idle: 3 * time.Minute},
	nsProducts:      {Write: 5 * time.Minute, Idle: 3 * time.Minute},
	nsSearchResults: {Write: time.Minute},
	nsPriceRange:    {Write: 3 * time.Minute, Idle: 2 * time.Minute},
}

// ttlPolicyFor builds the cache.TTLPolicy for a namespace, combining its L1
// write/idle TTLs (if any) with its L2 TTL from the table above.
func ttlPolicyFor(ns string) cache.TTLPolicy {
	l1 := l1TTLByNamespace[ns]
	return cache.TTLPolicy{
		L1Write: l1.Write,
		L1Idle:  l1.Idle,
		L2:      l2TTL[ns],
	}
}
