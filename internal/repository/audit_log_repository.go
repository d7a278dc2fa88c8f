package repository

import (
	"context"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type AuditFilter struct {
	Action   *domain.AuditAction
	UserID   *uuid.UUID
	TenantID *uuid.UUID
	Limit    int
	Offset   int
}

// AuditLogRepository is append-only
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]*domain.AuditLog, int, error)
}
