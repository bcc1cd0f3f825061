package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/brightbasket/catalogcache/pkg/models"
)

// InMemoryStore is a ProductStore fake for tests, seeded directly via
// Seed rather than through migrations.
type InMemoryStore struct {
	mu       sync.Mutex
	products map[int64]models.Product
	nextID   int64
}

// NewInMemoryStore builds an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{products: make(map[int64]models.Product)}
}

// Seed inserts products directly, assigning IDs if unset. Intended for test
// setup only.
func (s *InMemoryStore) Seed(products ...models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if p.ID == 0 {
			s.nextID++
			p.ID = s.nextID
		} else if p.ID > s.nextID {
			s.nextID = p.ID
		}
		s.products[p.ID] = p
	}
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := p
	return &cp, nil
}

func (s *InMemoryStore) allSorted() []models.Product {
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate(all []models.Product, limit, offset int) []models.Product {
	if offset >= len(all) {
		return []models.Product{}
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func (s *InMemoryStore) FindActive(_ context.Context, limit, offset int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []models.Product
	for _, p := range s.allSorted() {
		if p.Active {
			active = append(active, p)
		}
	}
	return paginate(active, limit, offset), nil
}

func (s *InMemoryStore) FindByCategory(_ context.Context, category string, limit, offset int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Product
	for _, p := range s.allSorted() {
		if p.Active && p.Category == category {
			matched = append(matched, p)
		}
	}
	return paginate(matched, limit, offset), nil
}

func (s *InMemoryStore) FindByPriceRange(_ context.Context, min, max decimal.Decimal, limit, offset int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Product
	for _, p := range s.allSorted() {
		if p.Active && p.Price.GreaterThanOrEqual(min) && p.Price.LessThanOrEqual(max) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Price.LessThan(matched[j].Price) })
	return paginate(matched, limit, offset), nil
}

func (s *InMemoryStore) SearchProducts(_ context.Context, query string, limit int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	var matched []models.Product
	for _, p := range s.allSorted() {
		if !p.Active {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			matched = append(matched, p)
		}
	}
	return paginate(matched, limit, 0), nil
}

func (s *InMemoryStore) FindDistinctCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var categories []string
	for _, p := range s.products {
		if p.Active && !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *InMemoryStore) FindTopNByRecency(_ context.Context, n int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []models.Product
	for _, p := range s.products {
		if p.Active {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ID > active[j].ID
	})
	if n < len(active) {
		active = active[:n]
	}
	return active, nil
}

func (s *InMemoryStore) Save(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	}
	s.products[p.ID] = *p
	return nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

var _ ProductStore = (*InMemoryStore)(nil)
