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

const sessionColumns = `id, token_hash, user_id, ip_address, user_agent, expires_at, created_at`

type sessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (:id, :token_hash, :user_id, :ip_address, :user_agent, :expires_at, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, session); err != nil {
		return wrapWriteErr(err, "create session")
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &session, query, id); err != nil {
		return nil, wrapGetErr(err, "session")
	}
	return &session, nil
}

// GetByTokenHash retrieves a session by the hash of its cookie token
func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token_hash = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &session, query, tokenHash); err != nil {
		return nil, wrapGetErr(err, "session")
	}
	return &session, nil
}

// ListByUser returns the unexpired sessions of a user, newest first
func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.Session, error) {
	var sessions []*domain.Session
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 AND expires_at > $2 ORDER BY created_at DESC`
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &sessions, query, userID, now); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return expectRows(result, "session")
}

func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	query := `DELETE FROM sessions WHERE user_id IN (SELECT id FROM users WHERE tenant_id = $1)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, tenantID); err != nil {
		return fmt.Errorf("failed to delete tenant sessions: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions past their expiry
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
