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

const userColumns = `id, email, name, password_hash, role, tenant_id, is_active, last_login, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (
			:id, :email, :name, :password_hash, :role, :tenant_id,
			:is_active, :last_login, :created_at, :updated_at
		)`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, user); err != nil {
		return wrapWriteErr(err, "create user")
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user domain.User
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &user, query, id); err != nil {
		return nil, wrapGetErr(err, "user")
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address (case-insensitive)
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user domain.User
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &user, query, strings.ToLower(email)); err != nil {
		return nil, wrapGetErr(err, "user")
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET email = :email,
			name = :name,
			password_hash = :password_hash,
			role = :role,
			tenant_id = :tenant_id,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, user)
	if err != nil {
		return wrapWriteErr(err, "update user")
	}
	return expectRows(result, "user")
}

// UpdateLastLogin stamps the last successful login
func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// List retrieves users with pagination, optionally scoped to a tenant
func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]*domain.User, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		where = append(where, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(name) LIKE $%d OR email LIKE $%d)", len(args), len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM users WHERE ` + clause
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, clampLimit(filter.Limit), filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, clause, len(args)-1, len(args))

	var users []*domain.User
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

// CountByTenant counts active users of a tenant, used for the user limit
func (r *userRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND is_active = TRUE`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, query, tenantID); err != nil {
		return 0, fmt.Errorf("failed to count tenant users: %w", err)
	}
	return total, nil
}

func (r *userRepository) CountByTenantAndRole(ctx context.Context, tenantID uuid.UUID, role domain.Role) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND role = $2`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, query, tenantID, role); err != nil {
		return 0, fmt.Errorf("failed to count tenant users by role: %w", err)
	}
	return total, nil
}

// DeleteByTenant hard-deletes the users of a tenant. Sessions must be gone first.
func (r *userRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("failed to delete tenant users: %w", err)
	}
	return nil
}

// SuperAdminExists checks whether at least one super admin is registered
func (r *userRepository) SuperAdminExists(ctx context.Context) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE role = $1)`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &exists, query, domain.RoleSuperAdmin); err != nil {
		return false, fmt.Errorf("failed to check super admin existence: %w", err)
	}
	return exists, nil
}
