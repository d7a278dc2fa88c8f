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

const tenantProductColumns = `id, tenant_id, product_id, config, is_active, last_accessed, access_count, created_at, updated_at`

type tenantProductRepository struct {
	db *sqlx.DB
}

// NewTenantProductRepository creates a new PostgreSQL tenant-product repository
func NewTenantProductRepository(db *sqlx.DB) repository.TenantProductRepository {
	return &tenantProductRepository{db: db}
}

func (r *tenantProductRepository) Get(ctx context.Context, tenantID, productID uuid.UUID) (*domain.TenantProduct, error) {
	var tp domain.TenantProduct
	query := `SELECT ` + tenantProductColumns + ` FROM tenant_products WHERE tenant_id = $1 AND product_id = $2`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &tp, query, tenantID, productID); err != nil {
		return nil, wrapGetErr(err, "tenant product")
	}
	return &tp, nil
}

func (r *tenantProductRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.TenantProduct, error) {
	var tps []*domain.TenantProduct
	query := `SELECT ` + tenantProductColumns + ` FROM tenant_products WHERE tenant_id = $1 ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &tps, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list tenant products: %w", err)
	}
	return tps, nil
}

// Upsert writes config and activation of the (tenant_id, product_id) row
func (r *tenantProductRepository) Upsert(ctx context.Context, tp *domain.TenantProduct) error {
	tp.UpdatedAt = time.Now()

	query := `
		INSERT INTO tenant_products (` + tenantProductColumns + `)
		VALUES (
			:id, :tenant_id, :product_id, :config, :is_active,
			:last_accessed, :access_count, :created_at, :updated_at
		)
		ON CONFLICT (tenant_id, product_id)
		DO UPDATE SET config = EXCLUDED.config,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, tp); err != nil {
		return wrapWriteErr(err, "upsert tenant product")
	}
	return nil
}

// EnsureActive inserts an active row or reactivates an inactive one.
// An already active row is left untouched and reports false.
func (r *tenantProductRepository) EnsureActive(ctx context.Context, tenantID, productID uuid.UUID) (bool, error) {
	now := time.Now()
	query := `
		INSERT INTO tenant_products (id, tenant_id, product_id, config, is_active, access_count, created_at, updated_at)
		VALUES ($1, $2, $3, '{}', TRUE, 0, $4, $4)
		ON CONFLICT (tenant_id, product_id)
		DO UPDATE SET is_active = TRUE, updated_at = EXCLUDED.updated_at
		WHERE tenant_products.is_active = FALSE`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, uuid.New(), tenantID, productID, now)
	if err != nil {
		return false, fmt.Errorf("failed to activate tenant product: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Deactivate turns an active row off and reports whether it changed
func (r *tenantProductRepository) Deactivate(ctx context.Context, tenantID, productID uuid.UUID) (bool, error) {
	query := `
		UPDATE tenant_products
		SET is_active = FALSE, updated_at = $3
		WHERE tenant_id = $1 AND product_id = $2 AND is_active = TRUE`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, tenantID, productID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to deactivate tenant product: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *tenantProductRepository) Delete(ctx context.Context, tenantID, productID uuid.UUID) error {
	query := `DELETE FROM tenant_products WHERE tenant_id = $1 AND product_id = $2`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, tenantID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant product: %w", err)
	}
	return expectRows(result, "tenant product")
}

func (r *tenantProductRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tenant_products WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("failed to delete tenant products: %w", err)
	}
	return nil
}

// RecordAccess bumps the usage counter in a single statement
func (r *tenantProductRepository) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE tenant_products SET access_count = access_count + 1, last_accessed = $1 WHERE id = $2`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to record product access: %w", err)
	}
	return nil
}
