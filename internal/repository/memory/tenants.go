package memory

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
)

type tenantRepository struct{ s *Store }

func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.t.tenants {
		if t.Slug == tenant.Slug || t.ID == tenant.ID {
			return duplicate("create tenant")
		}
	}
	r.s.t.tenants[tenant.ID] = *tenant
	return nil
}

func (r *tenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.t.tenants[id]
	if !ok {
		return nil, notFound("tenant")
	}
	return &t, nil
}

func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.t.tenants {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, notFound("tenant")
}

func (r *tenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.t.tenants[tenant.ID]
	if !ok {
		return notFound("tenant")
	}
	for _, t := range r.s.t.tenants {
		if t.ID != tenant.ID && t.Slug == tenant.Slug {
			return duplicate("update tenant")
		}
	}
	tenant.UpdatedAt = time.Now()
	tenant.CreatedAt = stored.CreatedAt
	r.s.t.tenants[tenant.ID] = *tenant
	return nil
}

func (r *tenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.tenants[id]; !ok {
		return notFound("tenant")
	}
	delete(r.s.t.tenants, id)
	return nil
}

func (r *tenantRepository) List(ctx context.Context, filter repository.TenantFilter) ([]*domain.Tenant, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*domain.Tenant
	for _, t := range r.s.t.tenants {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.PlanID != nil && t.PlanID != *filter.PlanID {
			continue
		}
		if filter.Search != "" && !contains(t.Name, filter.Search) && !contains(t.Slug, filter.Search) {
			continue
		}
		t := t
		matched = append(matched, &t)
	}
	sortBy(matched, func(a, b *domain.Tenant) bool { return a.CreatedAt.After(b.CreatedAt) })
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *tenantRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := 0
	for _, t := range r.s.t.tenants {
		if t.PlanID == planID {
			total++
		}
	}
	return total, nil
}

func (r *tenantRepository) CountByStatus(ctx context.Context) (map[domain.TenantStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[domain.TenantStatus]int{}
	for _, t := range r.s.t.tenants {
		counts[t.Status]++
	}
	return counts, nil
}
