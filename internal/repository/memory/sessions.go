package memory

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type sessionRepository struct{ s *Store }

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.t.sessions {
		if existing.TokenHash == session.TokenHash || existing.ID == session.ID {
			return duplicate("create session")
		}
	}
	r.s.t.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.t.sessions[id]
	if !ok {
		return nil, notFound("session")
	}
	return &session, nil
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, session := range r.s.t.sessions {
		if session.TokenHash == tokenHash {
			return &session, nil
		}
	}
	return nil, notFound("session")
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sessions []*domain.Session
	for _, session := range r.s.t.sessions {
		if session.UserID == userID && !session.IsExpired(now) {
			session := session
			sessions = append(sessions, &session)
		}
	}
	sortBy(sessions, func(a, b *domain.Session) bool { return a.CreatedAt.After(b.CreatedAt) })
	return sessions, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.sessions[id]; !ok {
		return notFound("session")
	}
	delete(r.s.t.sessions, id)
	return nil
}

func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, session := range r.s.t.sessions {
		if session.TokenHash == tokenHash {
			delete(r.s.t.sessions, id)
		}
	}
	return nil
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, session := range r.s.t.sessions {
		if session.UserID == userID {
			delete(r.s.t.sessions, id)
		}
	}
	return nil
}

func (r *sessionRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, session := range r.s.t.sessions {
		if u, ok := r.s.t.users[session.UserID]; ok && u.BelongsTo(tenantID) {
			delete(r.s.t.sessions, id)
		}
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, session := range r.s.t.sessions {
		if session.IsExpired(now) {
			delete(r.s.t.sessions, id)
			n++
		}
	}
	return n, nil
}
