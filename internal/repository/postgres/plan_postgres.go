package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const planColumns = `id, name, slug, description, max_users, price, is_active, created_at, updated_at`

type planRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new PostgreSQL plan repository
func NewPlanRepository(db *sqlx.DB) repository.PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES (:id, :name, :slug, :description, :max_users, :price, :is_active, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, plan); err != nil {
		return wrapWriteErr(err, "create plan")
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	var plan domain.Plan
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &plan, query, id); err != nil {
		return nil, wrapGetErr(err, "plan")
	}
	return &plan, nil
}

func (r *planRepository) GetBySlug(ctx context.Context, slug string) (*domain.Plan, error) {
	var plan domain.Plan
	query := `SELECT ` + planColumns + ` FROM plans WHERE slug = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &plan, query, slug); err != nil {
		return nil, wrapGetErr(err, "plan")
	}
	return &plan, nil
}

func (r *planRepository) Update(ctx context.Context, plan *domain.Plan) error {
	plan.UpdatedAt = time.Now()

	query := `
		UPDATE plans
		SET name = :name,
			slug = :slug,
			description = :description,
			max_users = :max_users,
			price = :price,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, plan)
	if err != nil {
		return wrapWriteErr(err, "update plan")
	}
	return expectRows(result, "plan")
}

func (r *planRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return expectRows(result, "plan")
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY max_users ASC, name ASC`

	var plans []*domain.Plan
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &plans, query); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

const planProductColumns = `id, plan_id, product_id, config, is_active, created_at`

type planProductRepository struct {
	db *sqlx.DB
}

// NewPlanProductRepository creates a new PostgreSQL plan-product repository
func NewPlanProductRepository(db *sqlx.DB) repository.PlanProductRepository {
	return &planProductRepository{db: db}
}

func (r *planProductRepository) Get(ctx context.Context, planID, productID uuid.UUID) (*domain.PlanProduct, error) {
	var pp domain.PlanProduct
	query := `SELECT ` + planProductColumns + ` FROM plan_products WHERE plan_id = $1 AND product_id = $2`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &pp, query, planID, productID); err != nil {
		return nil, wrapGetErr(err, "plan product")
	}
	return &pp, nil
}

func (r *planProductRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.PlanProduct, error) {
	var pps []*domain.PlanProduct
	query := `SELECT ` + planProductColumns + ` FROM plan_products WHERE plan_id = $1 ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &pps, query, planID); err != nil {
		return nil, fmt.Errorf("failed to list plan products: %w", err)
	}
	return pps, nil
}

// Upsert inserts or updates the entitlement keyed by (plan_id, product_id)
func (r *planProductRepository) Upsert(ctx context.Context, pp *domain.PlanProduct) error {
	query := `
		INSERT INTO plan_products (` + planProductColumns + `)
		VALUES (:id, :plan_id, :product_id, :config, :is_active, :created_at)
		ON CONFLICT (plan_id, product_id)
		DO UPDATE SET config = EXCLUDED.config, is_active = EXCLUDED.is_active`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, pp); err != nil {
		return wrapWriteErr(err, "upsert plan product")
	}
	return nil
}

func (r *planProductRepository) Delete(ctx context.Context, planID, productID uuid.UUID) error {
	query := `DELETE FROM plan_products WHERE plan_id = $1 AND product_id = $2`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, planID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete plan product: %w", err)
	}
	return expectRows(result, "plan product")
}

func (r *planProductRepository) DeleteByPlan(ctx context.Context, planID uuid.UUID) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM plan_products WHERE plan_id = $1`, planID); err != nil {
		return fmt.Errorf("failed to delete plan products: %w", err)
	}
	return nil
}
