package store

import (
	"context"
	"database/sql"
	"fmt"

	"encore.dev/storage/sqldb"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/catalogcache/pkg/models"
)

// PostgresStore is the production ProductStore, backed by encore.dev's
// sqldb wrapper over jackc/pgx: schema bootstrap in the constructor, $N
// positional args, and the error-wrapping convention used throughout this
// module's store-adjacent code.
type PostgresStore struct {
	db *sqldb.Database
}

// NewPostgresStore wraps an existing sqldb.Database and ensures the products
// table exists.
func NewPostgresStore(db *sqldb.Database) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize product schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(12,2) NOT NULL,
			stock_quantity INT NOT NULL DEFAULT 0,
			category TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
		CREATE INDEX IF NOT EXISTS idx_products_active ON products(active);
		CREATE INDEX IF NOT EXISTS idx_products_price ON products(price);
	`
	_, err := s.db.Exec(ctx, query)
	return err
}

func scanProduct(row interface {
	Scan(dest ...interface{}) error
}) (*models.Product, error) {
	var p models.Product
	var priceStr string
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &priceStr, &p.StockQuantity,
		&p.Category, &p.Brand, &p.ImageURL, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	p.Price = price
	return &p, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `
		SELECT id, name, description, price::text, stock_quantity, category, brand, image_url, active, created_at, updated_at
		FROM products WHERE id = $1
	`
	row := s.db.QueryRow(ctx, query, id)
	p, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindActive(ctx context.Context, limit, offset int) ([]models.Product, error) {
	query := `
		SELECT id, name, description, price::text, stock_quantity, category, brand, image_url, active, created_at, updated_at
		FROM products WHERE active = TRUE
		ORDER BY id ASC LIMIT $1 OFFSET $2
	`
	return s.queryProducts(ctx, query, limit, offset)
}

func (s *PostgresStore) FindByCategory(ctx context.Context, category string, limit, offset int) ([]models.Product, error) {
	query := `
		SELECT id, name, description, price::text, stock_quantity, category, brand, image_url, active, created_at, updated_at
		FROM products WHERE category = $1 AND active = TRUE
		ORDER BY id ASC LIMIT $2 OFFSET $3
	`
	return s.queryProducts(ctx, query, category, limit, offset)
}

func (s *PostgresStore) FindByPriceRange(ctx context.Context, min, max decimal.Decimal, limit, offset int) ([]models.Product, error) {
	query := `
		SELECT id, name, description, price::text, stock_quantity, category, brand, image_url, active, created_at, updated_at
		FROM products WHERE price BETWEEN $1 AND $2 AND active = TRUE
		ORDER BY price ASC LIMIT $3 OFFSET $4
	`
	return s.queryProducts(ctx, query, min.String(), max.String(), limit, offset)
}

func (s *PostgresStore) SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error) {
	sqlQuery := `
		SELECT id, name, description, price::text, stock_quantity, category, brand, image_url, active, created_at, updated_at
		FROM products
		WHERE active = TRUE AND (name ILIKE $1 OR description ILIKE $1)
		ORDER BY id ASC LIMIT $2
	`
	return s.queryProducts(ctx, sqlQuery, "%"+query+"%", limit)
}

func (s *PostgresStore) FindDistinctCategories(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT category FROM products WHERE active = TRUE ORDER BY category ASC`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) FindTopNByRecency(ctx context.Context, n int) ([]models.Product, error) {
	query := `
		SELECT id, name, description, price::text, stock_quantity, category, brand, image_url, active, created_at, updated_at
		FROM products WHERE active = TRUE
		ORDER BY created_at DESC, id DESC LIMIT $1
	`
	return s.queryProducts(ctx, query, n)
}

func (s *PostgresStore) queryProducts(ctx context.Context, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Product) error {
	now := nowFn()
	p.UpdatedAt = now

	if p.ID == 0 {
		p.CreatedAt = now
		query := `
			INSERT INTO products (name, description, price, stock_quantity, category, brand, image_url, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`
		row := s.db.QueryRow(ctx, query,
			p.Name, p.Description, p.Price.String(), p.StockQuantity, p.Category, p.Brand, p.ImageURL, p.Active, p.CreatedAt, p.UpdatedAt,
		)
		if err := row.Scan(&p.ID); err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}
		return nil
	}

	query := `
		UPDATE products SET name=$1, description=$2, price=$3, stock_quantity=$4,
			category=$5, brand=$6, image_url=$7, active=$8, updated_at=$9
		WHERE id=$10
	`
	_, err := s.db.Exec(ctx, query,
		p.Name, p.Description, p.Price.String(), p.StockQuantity, p.Category, p.Brand, p.ImageURL, p.Active, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

var _ ProductStore = (*PostgresStore)(nil)
