package catalog

import "errors"

// Domain-level errors surfaced by ProductService. Cache and store-tier
// failures below this layer are either resolved into one of these (by
// falling through to the origin) or propagated unchanged when they
// represent a genuine domain failure rather than a degraded cache path.
var (
	// ErrNotFound means the product does not exist in the backing store.
	ErrNotFound = errors.New("catalog: product not found")

	// ErrStoreUnavailable means the backing ProductStore could not be
	// reached to resolve a cache miss or commit a mutation.
	ErrStoreUnavailable = errors.New("catalog: store unavailable")

	// ErrInvalidInput means the caller supplied a malformed argument (e.g.
	// a negative price range, an empty product name).
	ErrInvalidInput = errors.New("catalog: invalid input")
)
