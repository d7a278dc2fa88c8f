package repository

import (
	"context"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type TenantFilter struct {
	Status *domain.TenantStatus
	PlanID *uuid.UUID
	Search string
	Limit  int
	Offset int
}

type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter TenantFilter) ([]*domain.Tenant, int, error)
	CountByPlan(ctx context.Context, planID uuid.UUID) (int, error)
	CountByStatus(ctx context.Context) (map[domain.TenantStatus]int, error)
}
