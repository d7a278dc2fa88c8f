package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/jmoiron/sqlx"
)

const auditLogColumns = `id, action, resource, details, user_id, tenant_id, created_at`

type auditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository creates a new PostgreSQL audit log repository
func NewAuditLogRepository(db *sqlx.DB) repository.AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create appends an audit entry
func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (` + auditLogColumns + `)
		VALUES (:id, :action, :resource, :details, :user_id, :tenant_id, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, entry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// List retrieves audit entries, newest first
func (r *auditLogRepository) List(ctx context.Context, filter repository.AuditFilter) ([]*domain.AuditLog, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Action != nil {
		args = append(args, *filter.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		where = append(where, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, `SELECT COUNT(*) FROM audit_logs WHERE `+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	args = append(args, clampLimit(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		auditLogColumns, clause, len(args)-1, len(args))

	var entries []*domain.AuditLog
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, total, nil
}
