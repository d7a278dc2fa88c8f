package memory

import (
	"context"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
)

type auditLogRepository struct{ s *Store }

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *entry
	stored.Details = entry.Details.Clone()
	r.s.t.audit = append(r.s.t.audit, stored)
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, filter repository.AuditFilter) ([]*domain.AuditLog, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*domain.AuditLog
	// newest first; entries are appended in time order
	for i := len(r.s.t.audit) - 1; i >= 0; i-- {
		e := r.s.t.audit[i]
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		if filter.UserID != nil && (e.UserID == nil || *e.UserID != *filter.UserID) {
			continue
		}
		if filter.TenantID != nil && (e.TenantID == nil || *e.TenantID != *filter.TenantID) {
			continue
		}
		e.Details = e.Details.Clone()
		matched = append(matched, &e)
	}
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}
