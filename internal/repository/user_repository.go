package repository

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

// UserFilter narrows user listings. A nil TenantID lists all tenants.
type UserFilter struct {
	TenantID *uuid.UUID
	Search   string
	Limit    int
	Offset   int
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int, error)
	Count(ctx context.Context) (int, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountByTenantAndRole(ctx context.Context, tenantID uuid.UUID, role domain.Role) (int, error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
	SuperAdminExists(ctx context.Context) (bool, error)
}
