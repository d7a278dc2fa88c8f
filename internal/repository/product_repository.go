package repository

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	List(ctx context.Context, activeOnly bool) ([]*domain.Product, error)
	CountActive(ctx context.Context) (int, error)
}

// TenantProductRepository manages per-tenant product activation records
type TenantProductRepository interface {
	Get(ctx context.Context, tenantID, productID uuid.UUID) (*domain.TenantProduct, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.TenantProduct, error)
	// Upsert inserts or updates config and is_active of the (tenant_id, product_id) row
	Upsert(ctx context.Context, tp *domain.TenantProduct) error
	// EnsureActive creates the row active or flips an inactive one. It
	// reports whether anything changed.
	EnsureActive(ctx context.Context, tenantID, productID uuid.UUID) (bool, error)
	// Deactivate flips an active row. It reports whether anything changed.
	Deactivate(ctx context.Context, tenantID, productID uuid.UUID) (bool, error)
	Delete(ctx context.Context, tenantID, productID uuid.UUID) error
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
	RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error
}
