package catalog

// Config configures ProductService's pagination defaults and the Warmer's
// concurrency and origin-protection knobs.
type Config struct {
	// DefaultPageSize is the result limit ProductService passes to the store
	// for GetAll, GetByCategory, GetByPriceRange and Search.
	DefaultPageSize int

	Warmer WarmerConfig
}

// WarmerConfig tunes the startup/on-demand warm-up procedure.
type WarmerConfig struct {
	// ActiveProductLimit is the cap on phase 1 ("up to 100 active
	// products").
	ActiveProductLimit int
	// NewArrivalsLimit is the cap on phase 4 ("10 most recently created").
	NewArrivalsLimit int
	// Concurrency is the worker pool size used to fan out per-category
	// warming in phase 3.
	Concurrency int
	// OriginRate limits store calls per second during warm-up, protecting
	// ProductStore from a cold-start thundering herd.
	OriginRate float64
	// OriginBurst is the token-bucket burst size paired with OriginRate.
	OriginBurst int
}

// DefaultConfig returns production defaults matching the fixed warm-up
// phase bounds Warmer.Run implements.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 50,
		Warmer: WarmerConfig{
			ActiveProductLimit: 100,
			NewArrivalsLimit:   10,
			Concurrency:        4,
			OriginRate:         20,
			OriginBurst:        5,
		},
	}
}
