package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, slug, description, base_url, icon, color, default_config, is_active, created_at, updated_at`

type productRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (
			:id, :name, :slug, :description, :base_url, :icon, :color,
			:default_config, :is_active, :created_at, :updated_at
		)`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, product); err != nil {
		return wrapWriteErr(err, "create product")
	}
	return nil
}

// GetByID retrieves a product by its ID
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &product, query, id); err != nil {
		return nil, wrapGetErr(err, "product")
	}
	return &product, nil
}

// GetBySlug retrieves a product by its slug
func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var product domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &product, query, slug); err != nil {
		return nil, wrapGetErr(err, "product")
	}
	return &product, nil
}

// Update updates an existing product in the database
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now()

	query := `
		UPDATE products
		SET name = :name,
			slug = :slug,
			description = :description,
			base_url = :base_url,
			icon = :icon,
			color = :color,
			default_config = :default_config,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, product)
	if err != nil {
		return wrapWriteErr(err, "update product")
	}
	return expectRows(result, "product")
}

func (r *productRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	var products []*domain.Product
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, `SELECT COUNT(*) FROM products WHERE is_active = TRUE`); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}
