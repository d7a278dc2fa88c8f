package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionInvalid covers every reason a session cookie is not accepted
var ErrSessionInvalid = errors.New("invalid session")

const sessionTokenBytes = 32

// SessionData is the identity behind a valid session, read fresh from storage
type SessionData struct {
	Session *domain.Session `json:"-"`
	User    *domain.User    `json:"user"`
	Tenant  *domain.Tenant  `json:"tenant,omitempty"`
	Plan    *domain.Plan    `json:"plan,omitempty"`
}

func (d *SessionData) IsSuperAdmin() bool {
	return d.User.IsSuperAdmin()
}

type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	tenants  repository.TenantRepository
	plans    repository.PlanRepository
	expiry   time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewSessionService(repos *repository.Set, expiry time.Duration, log *zap.Logger) *SessionService {
	return &SessionService{
		sessions: repos.Sessions,
		users:    repos.Users,
		tenants:  repos.Tenants,
		plans:    repos.Plans,
		expiry:   expiry,
		log:      log,
		now:      time.Now,
	}
}

// Expiry returns the absolute lifetime of new sessions
func (s *SessionService) Expiry() time.Duration {
	return s.expiry
}

// CreateSession issues a new opaque token for userID. Only its hash is stored.
func (s *SessionService) CreateSession(ctx context.Context, userID uuid.UUID, meta RequestMeta) (string, *domain.Session, error) {
	raw := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := s.now()
	session := &domain.Session{
		ID:        uuid.New(),
		TokenHash: hashToken(token),
		UserID:    userID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}
	return token, session, nil
}

// ValidateSession resolves token to its user, tenant and plan. Expired
// sessions are deleted on sight.
func (s *SessionService) ValidateSession(ctx context.Context, token string) (*SessionData, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	tokenHash := hashToken(token)
	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	if session.IsExpired(s.now()) {
		if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil {
			s.log.Warn("failed to purge expired session", zap.String("session_id", session.ID.String()), zap.Error(err))
		}
		return nil, ErrSessionInvalid
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrSessionInvalid
	}

	data := &SessionData{Session: session, User: user}
	if user.TenantID == nil {
		return data, nil
	}

	tenant, err := s.tenants.GetByID(ctx, *user.TenantID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return data, nil
	case err != nil:
		return nil, err
	}
	data.Tenant = tenant

	plan, err := s.plans.GetByID(ctx, tenant.PlanID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		data.Plan = plan
	}
	return data, nil
}

// RevokeSession deletes the session behind token. Unknown tokens are ignored.
func (s *SessionService) RevokeSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByTokenHash(ctx, hashToken(token))
}

// ListUserSessions returns the live sessions of a user
func (s *SessionService) ListUserSessions(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	return s.sessions.ListByUser(ctx, userID, s.now())
}

// RevokeSessionByID deletes one session of userID
func (s *SessionService) RevokeSessionByID(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return lookupErr(err, ErrSessionNotFound)
	}
	// sessions of other users look missing
	if session.UserID != userID {
		return ErrSessionNotFound
	}
	return lookupErr(s.sessions.Delete(ctx, sessionID), ErrSessionNotFound)
}

func (s *SessionService) RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteByUser(ctx, userID)
}

// PurgeExpired deletes every expired session
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
