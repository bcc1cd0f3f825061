package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightbasket/catalogcache/pkg/models"
)

func seededStore() *InMemoryStore {
	s := NewInMemoryStore()
	s.Seed(
		models.Product{Name: "Hammer", Category: "tools", Price: decimal.NewFromInt(10), Active: true},
		models.Product{Name: "Wrench", Category: "tools", Price: decimal.NewFromInt(15), Active: true},
		models.Product{Name: "Rose Bush", Category: "garden", Price: decimal.NewFromInt(25), Active: true},
		models.Product{Name: "Discontinued Saw", Category: "tools", Price: decimal.NewFromInt(5), Active: false},
	)
	return s
}

func TestInMemoryStoreFindByID(t *testing.T) {
	s := seededStore()
	p, err := s.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Hammer", p.Name)
}

func TestInMemoryStoreFindByIDNotFound(t *testing.T) {
	s := seededStore()
	_, err := s.FindByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestInMemoryStoreFindActiveExcludesInactive(t *testing.T) {
	s := seededStore()
	products, err := s.FindActive(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestInMemoryStoreFindByCategory(t *testing.T) {
	s := seededStore()
	products, err := s.FindByCategory(context.Background(), "tools", 10, 0)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestInMemoryStoreFindByPriceRange(t *testing.T) {
	s := seededStore()
	products, err := s.FindByPriceRange(context.Background(), decimal.NewFromInt(10), decimal.NewFromInt(20), 10, 0)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Hammer", products[0].Name)
}

func TestInMemoryStoreSearchProducts(t *testing.T) {
	s := seededStore()
	products, err := s.SearchProducts(context.Background(), "rose", 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Rose Bush", products[0].Name)
}

func TestInMemoryStoreFindDistinctCategories(t *testing.T) {
	s := seededStore()
	cats, err := s.FindDistinctCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"garden", "tools"}, cats)
}

func TestInMemoryStoreSaveAssignsIDOnInsert(t *testing.T) {
	s := NewInMemoryStore()
	p := &models.Product{Name: "New", Price: decimal.NewFromInt(1), Active: true}
	require.NoError(t, s.Save(context.Background(), p))
	assert.NotZero(t, p.ID)

	found, err := s.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", found.Name)
}

func TestInMemoryStoreDeleteByID(t *testing.T) {
	s := seededStore()
	require.NoError(t, s.DeleteByID(context.Background(), 1))
	_, err := s.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
