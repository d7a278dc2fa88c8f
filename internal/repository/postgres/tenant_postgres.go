package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const tenantColumns = `id, name, slug, status, plan_id, max_users, created_at, updated_at`

type tenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new PostgreSQL tenant repository
func NewTenantRepository(db *sqlx.DB) repository.TenantRepository {
	return &tenantRepository{db: db}
}

// Create inserts a new tenant into the database
func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES (:id, :name, :slug, :status, :plan_id, :max_users, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, tenant); err != nil {
		return wrapWriteErr(err, "create tenant")
	}
	return nil
}

// GetByID retrieves a tenant by its ID
func (r *tenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	var tenant domain.Tenant
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &tenant, query, id); err != nil {
		return nil, wrapGetErr(err, "tenant")
	}
	return &tenant, nil
}

// GetBySlug retrieves a tenant by its slug
func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`

	var tenant domain.Tenant
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &tenant, query, slug); err != nil {
		return nil, wrapGetErr(err, "tenant")
	}
	return &tenant, nil
}

// Update updates an existing tenant in the database
func (r *tenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	tenant.UpdatedAt = time.Now()

	query := `
		UPDATE tenants
		SET name = :name,
			slug = :slug,
			status = :status,
			plan_id = :plan_id,
			max_users = :max_users,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, tenant)
	if err != nil {
		return wrapWriteErr(err, "update tenant")
	}
	return expectRows(result, "tenant")
}

// Delete removes the tenant row. Dependent rows must be removed first.
func (r *tenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return expectRows(result, "tenant")
}

// List retrieves tenants with pagination
func (r *tenantRepository) List(ctx context.Context, filter repository.TenantFilter) ([]*domain.Tenant, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PlanID != nil {
		args = append(args, *filter.PlanID)
		where = append(where, fmt.Sprintf("plan_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(name) LIKE $%d OR slug LIKE $%d)", len(args), len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, `SELECT COUNT(*) FROM tenants WHERE `+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	args = append(args, clampLimit(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		tenantColumns, clause, len(args)-1, len(args))

	var tenants []*domain.Tenant
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &tenants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, total, nil
}

// CountByPlan counts tenants subscribed to a plan
func (r *tenantRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, `SELECT COUNT(*) FROM tenants WHERE plan_id = $1`, planID); err != nil {
		return 0, fmt.Errorf("failed to count plan tenants: %w", err)
	}
	return total, nil
}

func (r *tenantRepository) CountByStatus(ctx context.Context) (map[domain.TenantStatus]int, error) {
	var rows []struct {
		Status domain.TenantStatus `db:"status"`
		Total  int                 `db:"total"`
	}
	query := `SELECT status, COUNT(*) AS total FROM tenants GROUP BY status`
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count tenants by status: %w", err)
	}

	counts := make(map[domain.TenantStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
