package memory

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type productTokenRepository struct{ s *Store }

func (r *productTokenRepository) Create(ctx context.Context, token *domain.ProductToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.t.tokens {
		if existing.Token == token.Token || existing.ID == token.ID {
			return duplicate("create product token")
		}
	}
	r.s.t.tokens[token.ID] = *token
	return nil
}

func (r *productTokenRepository) GetByToken(ctx context.Context, token string) (*domain.ProductToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, pt := range r.s.t.tokens {
		if pt.Token == token {
			return &pt, nil
		}
	}
	return nil, notFound("product token")
}

func (r *productTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if pt, ok := r.s.t.tokens[id]; ok {
		pt.LastUsed = &at
		r.s.t.tokens[id] = pt
	}
	return nil
}

// revokeWhere revokes every live token accepted by match. Caller holds the lock.
func (r *productTokenRepository) revokeWhere(match func(pt domain.ProductToken, owner domain.User) bool) int64 {
	var n int64
	for id, pt := range r.s.t.tokens {
		if pt.IsRevoked {
			continue
		}
		owner := r.s.t.users[pt.UserID]
		if match(pt, owner) {
			pt.IsRevoked = true
			r.s.t.tokens[id] = pt
			n++
		}
	}
	return n
}

func (r *productTokenRepository) RevokeByTenantProduct(ctx context.Context, tenantID, productID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.revokeWhere(func(pt domain.ProductToken, owner domain.User) bool {
		return pt.ProductID == productID && owner.BelongsTo(tenantID)
	}), nil
}

func (r *productTokenRepository) RevokeByPlanProduct(ctx context.Context, planID, productID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.revokeWhere(func(pt domain.ProductToken, owner domain.User) bool {
		if pt.ProductID != productID || owner.TenantID == nil {
			return false
		}
		tenant, ok := r.s.t.tenants[*owner.TenantID]
		return ok && tenant.PlanID == planID
	}), nil
}

func (r *productTokenRepository) RevokeByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.revokeWhere(func(_ domain.ProductToken, owner domain.User) bool {
		return owner.BelongsTo(tenantID)
	}), nil
}

func (r *productTokenRepository) RevokeByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.revokeWhere(func(pt domain.ProductToken, _ domain.User) bool {
		return pt.UserID == userID
	}), nil
}

func (r *productTokenRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, pt := range r.s.t.tokens {
		if owner, ok := r.s.t.users[pt.UserID]; ok && owner.BelongsTo(tenantID) {
			delete(r.s.t.tokens, id)
		}
	}
	return nil
}

func (r *productTokenRepository) CountIssuedSince(ctx context.Context, since time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := 0
	for _, pt := range r.s.t.tokens {
		if !pt.CreatedAt.Before(since) {
			total++
		}
	}
	return total, nil
}
