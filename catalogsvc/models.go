package catalogsvc

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightbasket/catalogcache/catalog"
	"github.com/brightbasket/catalogcache/pkg/models"
)

// ProductResponse is the wire shape of a single product. Price is carried
// as a string, the same convention store.PostgresStore uses internally, so
// JSON encoding never rounds a decimal.Decimal through float64.
type ProductResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         string    `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	Category      string    `json:"category"`
	Brand         string    `json:"brand"`
	ImageURL      string    `json:"image_url"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Count    int               `json:"count"`
}

type CategoryListResponse struct {
	Categories []string `json:"categories"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type WarmResponse struct {
	Completed bool `json:"completed"`
}

// ProductRequest is the wire shape accepted by CreateProduct/UpdateProduct.
type ProductRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	Category      string `json:"category"`
	Brand         string `json:"brand"`
	ImageURL      string `json:"image_url"`
	Active        bool   `json:"active"`
}

func (r *ProductRequest) toProduct() (*models.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q", catalog.ErrInvalidInput, r.Price)
	}
	return &models.Product{
		Name:          r.Name,
		Description:   r.Description,
		Price:         price,
		StockQuantity: r.StockQuantity,
		Category:      r.Category,
		Brand:         r.Brand,
		ImageURL:      r.ImageURL,
		Active:        r.Active,
	}, nil
}

type SearchRequest struct {
	Q string `query:"q"`
}

type PriceRangeRequest struct {
	Min string `query:"min"`
	Max string `query:"max"`
}

func toProductResponse(p *models.Product) *ProductResponse {
	return &ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.String(),
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
		Brand:         p.Brand,
		ImageURL:      p.ImageURL,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProductListResponse(products []models.Product) *ProductListResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = *toProductResponse(&products[i])
	}
	return &ProductListResponse{Products: out, Count: len(out)}
}
