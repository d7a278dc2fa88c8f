package memory

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type planRepository struct{ s *Store }

func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.t.plans {
		if p.Slug == plan.Slug || p.ID == plan.ID {
			return duplicate("create plan")
		}
	}
	r.s.t.plans[plan.ID] = *plan
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.t.plans[id]
	if !ok {
		return nil, notFound("plan")
	}
	return &p, nil
}

func (r *planRepository) GetBySlug(ctx context.Context, slug string) (*domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.t.plans {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, notFound("plan")
}

func (r *planRepository) Update(ctx context.Context, plan *domain.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.t.plans[plan.ID]
	if !ok {
		return notFound("plan")
	}
	for _, p := range r.s.t.plans {
		if p.ID != plan.ID && p.Slug == plan.Slug {
			return duplicate("update plan")
		}
	}
	plan.UpdatedAt = time.Now()
	plan.CreatedAt = stored.CreatedAt
	r.s.t.plans[plan.ID] = *plan
	return nil
}

func (r *planRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.plans[id]; !ok {
		return notFound("plan")
	}
	delete(r.s.t.plans, id)
	return nil
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var plans []*domain.Plan
	for _, p := range r.s.t.plans {
		if activeOnly && !p.IsActive {
			continue
		}
		p := p
		plans = append(plans, &p)
	}
	sortBy(plans, func(a, b *domain.Plan) bool {
		if a.MaxUsers != b.MaxUsers {
			return a.MaxUsers < b.MaxUsers
		}
		return a.Name < b.Name
	})
	return plans, nil
}

type planProductRepository struct{ s *Store }

func (r *planProductRepository) find(planID, productID uuid.UUID) (domain.PlanProduct, bool) {
	for _, pp := range r.s.t.planProducts {
		if pp.PlanID == planID && pp.ProductID == productID {
			return pp, true
		}
	}
	return domain.PlanProduct{}, false
}

func (r *planProductRepository) Get(ctx context.Context, planID, productID uuid.UUID) (*domain.PlanProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	pp, ok := r.find(planID, productID)
	if !ok {
		return nil, notFound("plan product")
	}
	pp.Config = pp.Config.Clone()
	return &pp, nil
}

func (r *planProductRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.PlanProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var pps []*domain.PlanProduct
	for _, pp := range r.s.t.planProducts {
		if pp.PlanID == planID {
			pp := pp
			pp.Config = pp.Config.Clone()
			pps = append(pps, &pp)
		}
	}
	sortBy(pps, func(a, b *domain.PlanProduct) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return pps, nil
}

func (r *planProductRepository) Upsert(ctx context.Context, pp *domain.PlanProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.find(pp.PlanID, pp.ProductID); ok {
		existing.Config = pp.Config.Clone()
		existing.IsActive = pp.IsActive
		r.s.t.planProducts[existing.ID] = existing
		*pp = existing
		return nil
	}
	stored := *pp
	stored.Config = pp.Config.Clone()
	r.s.t.planProducts[pp.ID] = stored
	return nil
}

func (r *planProductRepository) Delete(ctx context.Context, planID, productID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pp, ok := r.find(planID, productID)
	if !ok {
		return notFound("plan product")
	}
	delete(r.s.t.planProducts, pp.ID)
	return nil
}

func (r *planProductRepository) DeleteByPlan(ctx context.Context, planID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, pp := range r.s.t.planProducts {
		if pp.PlanID == planID {
			delete(r.s.t.planProducts, id)
		}
	}
	return nil
}
