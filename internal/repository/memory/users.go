package memory

import (
	"context"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
)

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, u := range r.s.t.users {
		if u.Email == user.Email || u.ID == user.ID {
			return duplicate("create user")
		}
	}
	r.s.t.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.t.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range r.s.t.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("user")
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.t.users[user.ID]
	if !ok {
		return notFound("user")
	}
	user.Email = strings.ToLower(user.Email)
	for _, u := range r.s.t.users {
		if u.ID != user.ID && u.Email == user.Email {
			return duplicate("update user")
		}
	}

	user.UpdatedAt = time.Now()
	user.CreatedAt = stored.CreatedAt
	user.LastLogin = stored.LastLogin
	r.s.t.users[user.ID] = *user
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.t.users[id]; ok {
		u.LastLogin = &at
		r.s.t.users[id] = u
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]*domain.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*domain.User
	for _, u := range r.s.t.users {
		if filter.TenantID != nil && !u.BelongsTo(*filter.TenantID) {
			continue
		}
		if filter.Search != "" && !contains(u.Name, filter.Search) && !contains(u.Email, filter.Search) {
			continue
		}
		u := u
		matched = append(matched, &u)
	}
	sortBy(matched, func(a, b *domain.User) bool { return a.CreatedAt.After(b.CreatedAt) })
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.t.users), nil
}

func (r *userRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := 0
	for _, u := range r.s.t.users {
		if u.BelongsTo(tenantID) && u.IsActive {
			total++
		}
	}
	return total, nil
}

func (r *userRepository) CountByTenantAndRole(ctx context.Context, tenantID uuid.UUID, role domain.Role) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := 0
	for _, u := range r.s.t.users {
		if u.BelongsTo(tenantID) && u.Role == role {
			total++
		}
	}
	return total, nil
}

func (r *userRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, u := range r.s.t.users {
		if u.BelongsTo(tenantID) {
			delete(r.s.t.users, id)
		}
	}
	return nil
}

func (r *userRepository) SuperAdminExists(ctx context.Context) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.t.users {
		if u.IsSuperAdmin() {
			return true, nil
		}
	}
	return false, nil
}
