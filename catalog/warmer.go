package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/brightbasket/catalogcache/pkg/models"
)

// Warmer runs the four fixed warm-up phases once at startup and on demand,
// populating both cache tiers directly via TwoLevel.Put so a cold process
// never pays the full origin cost on its first requests. Narrowed down to
// this fixed phase list from a broader pluggable-strategy design (scheduled,
// predictive, priority-based re-warming); the worker pool and rate limiter
// survive because nothing in the fixed phases makes them unnecessary —
// fanning out per-category warming without them would let a
// catalog with many categories hammer the store at startup.
type Warmer struct {
	svc *ProductService
	cfg WarmerConfig
}

// NewWarmer builds a Warmer bound to svc.
func NewWarmer(svc *ProductService, cfg WarmerConfig) *Warmer {
	return &Warmer{svc: svc, cfg: cfg}
}

// Run executes all four phases in order. A failure in one phase is logged
// and does not abort the remaining phases or the caller's startup sequence.
func (w *Warmer) Run(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Limit(w.cfg.OriginRate), w.cfg.OriginBurst)

	w.runPhase(ctx, "active-products", func(ctx context.Context) (int, error) {
		return w.warmActiveProducts(ctx, limiter)
	})
	w.runPhase(ctx, "categories", func(ctx context.Context) (int, error) {
		return w.warmCategories(ctx, limiter)
	})
	w.runPhase(ctx, "products-by-category", func(ctx context.Context) (int, error) {
		return w.warmProductsByCategory(ctx, limiter)
	})
	w.runPhase(ctx, "new-arrivals", func(ctx context.Context) (int, error) {
		return w.warmNewArrivals(ctx, limiter)
	})
}

func (w *Warmer) runPhase(ctx context.Context, name string, fn func(context.Context) (int, error)) {
	start := time.Now()
	count, err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("warmer: phase %s failed after %s: %v", name, elapsed, err)
		return
	}
	log.Printf("warmer: phase %s warmed %d entries in %s", name, count, elapsed)
}

// warmActiveProducts is phase 1: fetch up to ActiveProductLimit active
// products ordered by id ascending, and puts each into productById.
func (w *Warmer) warmActiveProducts(ctx context.Context, limiter *rate.Limiter) (int, error) {
	if err := limiter.Wait(ctx); err != nil {
		return 0, err
	}
	products, err := w.svc.store.FindActive(ctx, w.cfg.ActiveProductLimit, 0)
	if err != nil {
		return 0, fmt.Errorf("fetching active products: %w", err)
	}

	policy := ttlPolicyFor(nsProductByID)
	for i := range products {
		p := products[i]
		key := models.NewCacheKey(nsProductByID, fmt.Sprint(p.ID))
		if err := w.svc.cache.Put(ctx, key, &p, policy); err != nil {
			log.Printf("warmer: put productById/%d failed: %v", p.ID, err)
		}
	}
	return len(products), nil
}

// warmCategories is phase 2: fetch distinct categories and puts the list
// into categories/all.
func (w *Warmer) warmCategories(ctx context.Context, limiter *rate.Limiter) (int, error) {
	if err := limiter.Wait(ctx); err != nil {
		return 0, err
	}
	cats, err := w.svc.store.FindDistinctCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching categories: %w", err)
	}
	key := models.NewCacheKey(nsCategories, "all")
	if err := w.svc.cache.Put(ctx, key, &cats, ttlPolicyFor(nsCategories)); err != nil {
		return 0, fmt.Errorf("put categories/all: %w", err)
	}
	return len(cats), nil
}

// warmProductsByCategory is phase 3: for each category, fetch its product
// list and puts it into products/category:<name>. Fanned out across a small
// worker pool since the category count is unbounded.
func (w *Warmer) warmProductsByCategory(ctx context.Context, limiter *rate.Limiter) (int, error) {
	cats, err := w.svc.store.FindDistinctCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching categories: %w", err)
	}

	policy := ttlPolicyFor(nsProducts)
	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	warmed := 0

	workers := w.cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cat := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				products, err := w.svc.store.FindByCategory(ctx, cat, w.svc.cfg.DefaultPageSize, 0)
				if err != nil {
					log.Printf("warmer: fetching category %q failed: %v", cat, err)
					continue
				}
				key := models.NewCacheKey(nsProducts, "category:"+cat)
				if err := w.svc.cache.Put(ctx, key, &products, policy); err != nil {
					log.Printf("warmer: put products/category:%s failed: %v", cat, err)
					continue
				}
				mu.Lock()
				warmed++
				mu.Unlock()
			}
		}()
	}

	for _, cat := range cats {
		jobs <- cat
	}
	close(jobs)
	wg.Wait()

	return warmed, nil
}

// warmNewArrivals is phase 4: fetch the NewArrivalsLimit most recently
// created products and puts the list into products/new.
func (w *Warmer) warmNewArrivals(ctx context.Context, limiter *rate.Limiter) (int, error) {
	if err := limiter.Wait(ctx); err != nil {
		return 0, err
	}
	products, err := w.svc.store.FindTopNByRecency(ctx, w.cfg.NewArrivalsLimit)
	if err != nil {
		return 0, fmt.Errorf("fetching new arrivals: %w", err)
	}
	key := models.NewCacheKey(nsProducts, "new")
	if err := w.svc.cache.Put(ctx, key, &products, ttlPolicyFor(nsProducts)); err != nil {
		return 0, fmt.Errorf("put products/new: %w", err)
	}
	return len(products), nil
}
