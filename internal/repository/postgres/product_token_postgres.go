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

const productTokenColumns = `id, token, user_id, product_id, expires_at, is_revoked, last_used, created_at`

type productTokenRepository struct {
	db *sqlx.DB
}

// NewProductTokenRepository creates a new PostgreSQL product token repository
func NewProductTokenRepository(db *sqlx.DB) repository.ProductTokenRepository {
	return &productTokenRepository{db: db}
}

// Create persists an issued SSO token
func (r *productTokenRepository) Create(ctx context.Context, token *domain.ProductToken) error {
	query := `
		INSERT INTO product_tokens (` + productTokenColumns + `)
		VALUES (:id, :token, :user_id, :product_id, :expires_at, :is_revoked, :last_used, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, token); err != nil {
		return wrapWriteErr(err, "create product token")
	}
	return nil
}

// GetByToken retrieves a token record by its exact string
func (r *productTokenRepository) GetByToken(ctx context.Context, token string) (*domain.ProductToken, error) {
	var pt domain.ProductToken
	query := `SELECT ` + productTokenColumns + ` FROM product_tokens WHERE token = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &pt, query, token); err != nil {
		return nil, wrapGetErr(err, "product token")
	}
	return &pt, nil
}

func (r *productTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE product_tokens SET last_used = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("failed to mark product token used: %w", err)
	}
	return nil
}

// RevokeByTenantProduct revokes the live tokens of one product for every user of a tenant
func (r *productTokenRepository) RevokeByTenantProduct(ctx context.Context, tenantID, productID uuid.UUID) (int64, error) {
	query := `
		UPDATE product_tokens SET is_revoked = TRUE
		WHERE is_revoked = FALSE
			AND product_id = $2
			AND user_id IN (SELECT id FROM users WHERE tenant_id = $1)`
	return r.revoke(ctx, query, tenantID, productID)
}

// RevokeByPlanProduct revokes the live tokens of one product for every tenant on a plan
func (r *productTokenRepository) RevokeByPlanProduct(ctx context.Context, planID, productID uuid.UUID) (int64, error) {
	query := `
		UPDATE product_tokens SET is_revoked = TRUE
		WHERE is_revoked = FALSE
			AND product_id = $2
			AND user_id IN (
				SELECT u.id FROM users u
				JOIN tenants t ON t.id = u.tenant_id
				WHERE t.plan_id = $1
			)`
	return r.revoke(ctx, query, planID, productID)
}

func (r *productTokenRepository) RevokeByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	query := `
		UPDATE product_tokens SET is_revoked = TRUE
		WHERE is_revoked = FALSE
			AND user_id IN (SELECT id FROM users WHERE tenant_id = $1)`
	return r.revoke(ctx, query, tenantID)
}

func (r *productTokenRepository) RevokeByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE product_tokens SET is_revoked = TRUE WHERE is_revoked = FALSE AND user_id = $1`
	return r.revoke(ctx, query, userID)
}

func (r *productTokenRepository) revoke(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke product tokens: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *productTokenRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	query := `DELETE FROM product_tokens WHERE user_id IN (SELECT id FROM users WHERE tenant_id = $1)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, tenantID); err != nil {
		return fmt.Errorf("failed to delete tenant product tokens: %w", err)
	}
	return nil
}

func (r *productTokenRepository) CountIssuedSince(ctx context.Context, since time.Time) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM product_tokens WHERE created_at >= $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, query, since); err != nil {
		return 0, fmt.Errorf("failed to count product tokens: %w", err)
	}
	return total, nil
}
