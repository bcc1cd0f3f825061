package cache

import "errors"

// Sentinel errors returned by the cache tiers. Callers use errors.Is to
// distinguish "value not present" from tier-level failures, which the
// catalog layer treats as degraded-but-available rather than fatal.
var (
	// ErrNotFound means no tier, nor the loader, produced a value for the key.
	ErrNotFound = errors.New("cache: key not found")

	// ErrTierUnavailable means the shared (L2) tier could not be reached.
	// TwoLevel treats this as "fall through to the loader", never as a
	// reason to fail the caller's request.
	ErrTierUnavailable = errors.New("cache: tier unavailable")

	// ErrLockTimeout means the stampede guard could not acquire the
	// distributed lock within its configured wait budget. Callers fall back
	// to loading from the origin directly, unprotected.
	ErrLockTimeout = errors.New("cache: lock wait timeout")

	// ErrCodecFailure means encoding or decoding a value for the shared tier
	// failed. Treated the same as a tier miss: the value is refetched from
	// the loader.
	ErrCodecFailure = errors.New("cache: codec failure")
)
