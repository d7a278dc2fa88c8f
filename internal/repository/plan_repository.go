package repository

import (
	"context"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Plan, error)
	Update(ctx context.Context, plan *domain.Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error)
}

// PlanProductRepository manages plan entitlement templates
type PlanProductRepository interface {
	Get(ctx context.Context, planID, productID uuid.UUID) (*domain.PlanProduct, error)
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.PlanProduct, error)
	// Upsert inserts or updates the row keyed by (plan_id, product_id)
	Upsert(ctx context.Context, pp *domain.PlanProduct) error
	Delete(ctx context.Context, planID, productID uuid.UUID) error
	DeleteByPlan(ctx context.Context, planID uuid.UUID) error
}
