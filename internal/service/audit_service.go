package service

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditEntry is an event to be appended to the audit log
type AuditEntry struct {
	Action   domain.AuditAction
	Resource *string
	Details  domain.JSONMap
	UserID   *uuid.UUID
	TenantID *uuid.UUID
	Meta     RequestMeta
}

// AuditService writes audit entries best effort: a failed write is logged
// and never reaches the caller.
type AuditService struct {
	repo repository.AuditLogRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewAuditService(repo repository.AuditLogRepository, log *zap.Logger) *AuditService {
	return &AuditService{repo: repo, log: log, now: time.Now}
}

func (s *AuditService) Record(ctx context.Context, e AuditEntry) {
	now := s.now()

	details := e.Details.Clone()
	details["ipAddress"] = e.Meta.IPAddress
	details["userAgent"] = e.Meta.UserAgent
	details["timestamp"] = now.UTC().Format(time.RFC3339)

	entry := &domain.AuditLog{
		ID:        uuid.New(),
		Action:    e.Action,
		Resource:  e.Resource,
		Details:   details,
		UserID:    e.UserID,
		TenantID:  e.TenantID,
		CreatedAt: now,
	}

	// the primary operation may have ended its context already
	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", string(e.Action)),
			zap.Error(err),
		)
	}
}

// List returns audit entries, newest first
func (s *AuditService) List(ctx context.Context, filter repository.AuditFilter) ([]*domain.AuditLog, int, error) {
	return s.repo.List(ctx, filter)
}
