package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "password_hash", "role", "tenant_id",
		"is_active", "last_login", "created_at", "updated_at",
	})
}

func TestUserRepository_Create(t *testing.T) {
	user := &domain.User{
		ID:        uuid.New(),
		Email:     "ana@clinic.com",
		Name:      "Ana",
		Role:      domain.RoleAdmin,
		IsActive:  true,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}

	t.Run("success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewUserRepository(db).Create(context.Background(), user)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

		err := NewUserRepository(db).Create(context.Background(), user)
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	t.Run("lowercases the lookup", func(t *testing.T) {
		db, mock := setupMockDB(t)
		id := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery("SELECT .* FROM users WHERE email = \\$1").
			WithArgs("ana@clinic.com").
			WillReturnRows(userRows().AddRow(
				id.String(), "ana@clinic.com", "Ana", "$2a$12$hash", "ADMIN", tenantID.String(),
				true, nil, fixedNow, fixedNow,
			))

		user, err := NewUserRepository(db).GetByEmail(context.Background(), "Ana@Clinic.COM")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, domain.RoleAdmin, user.Role)
		require.NotNil(t, user.TenantID)
		assert.Equal(t, tenantID, *user.TenantID)
		assert.Nil(t, user.LastLogin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery("SELECT .* FROM users").WillReturnError(sql.ErrNoRows)

		user, err := NewUserRepository(db).GetByEmail(context.Background(), "ghost@clinic.com")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewUserRepository(db).Update(context.Background(), &domain.User{ID: uuid.New()})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	tenantID := uuid.New()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users WHERE 1=1 AND tenant_id = \\$1").
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT \\$2 OFFSET \\$3").
		WithArgs(tenantID, 100, 0).
		WillReturnRows(userRows().AddRow(
			uuid.New().String(), "bob@clinic.com", "Bob", "h", "USER", tenantID.String(),
			true, fixedNow, fixedNow, fixedNow,
		))

	users, total, err := NewUserRepository(db).List(context.Background(), repository.UserFilter{TenantID: &tenantID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "bob@clinic.com", users[0].Email)
	assert.NotNil(t, users[0].LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SuperAdminExists(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("SUPER_ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := NewUserRepository(db).SuperAdminExists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
}
