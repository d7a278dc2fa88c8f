package repository

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	// GetByTokenHash returns the session even when expired so callers can purge it
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByTokenHash is idempotent: deleting a missing session is not an error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
