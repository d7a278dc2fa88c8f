package repository

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type ProductTokenRepository interface {
	Create(ctx context.Context, token *domain.ProductToken) error
	// GetByToken looks a token up by its exact string
	GetByToken(ctx context.Context, token string) (*domain.ProductToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error

	// Bulk revocation. Each returns the number of tokens revoked.
	RevokeByTenantProduct(ctx context.Context, tenantID, productID uuid.UUID) (int64, error)
	RevokeByPlanProduct(ctx context.Context, planID, productID uuid.UUID) (int64, error)
	RevokeByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	RevokeByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
	CountIssuedSince(ctx context.Context, since time.Time) (int, error)
}
