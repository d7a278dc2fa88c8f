package memory

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/google/uuid"
)

type productRepository struct{ s *Store }

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.t.products {
		if p.Slug == product.Slug || p.ID == product.ID {
			return duplicate("create product")
		}
	}
	stored := *product
	stored.DefaultConfig = product.DefaultConfig.Clone()
	r.s.t.products[product.ID] = stored
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.t.products[id]
	if !ok {
		return nil, notFound("product")
	}
	p.DefaultConfig = p.DefaultConfig.Clone()
	return &p, nil
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.t.products {
		if p.Slug == slug {
			p.DefaultConfig = p.DefaultConfig.Clone()
			return &p, nil
		}
	}
	return nil, notFound("product")
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.t.products[product.ID]
	if !ok {
		return notFound("product")
	}
	for _, p := range r.s.t.products {
		if p.ID != product.ID && p.Slug == product.Slug {
			return duplicate("update product")
		}
	}
	product.UpdatedAt = time.Now()
	product.CreatedAt = stored.CreatedAt
	next := *product
	next.DefaultConfig = product.DefaultConfig.Clone()
	r.s.t.products[product.ID] = next
	return nil
}

func (r *productRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var products []*domain.Product
	for _, p := range r.s.t.products {
		if activeOnly && !p.IsActive {
			continue
		}
		p := p
		p.DefaultConfig = p.DefaultConfig.Clone()
		products = append(products, &p)
	}
	sortBy(products, func(a, b *domain.Product) bool { return a.Name < b.Name })
	return products, nil
}

func (r *productRepository) CountActive(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := 0
	for _, p := range r.s.t.products {
		if p.IsActive {
			total++
		}
	}
	return total, nil
}

type tenantProductRepository struct{ s *Store }

func (r *tenantProductRepository) find(tenantID, productID uuid.UUID) (domain.TenantProduct, bool) {
	for _, tp := range r.s.t.tenantProducts {
		if tp.TenantID == tenantID && tp.ProductID == productID {
			return tp, true
		}
	}
	return domain.TenantProduct{}, false
}

func (r *tenantProductRepository) Get(ctx context.Context, tenantID, productID uuid.UUID) (*domain.TenantProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tp, ok := r.find(tenantID, productID)
	if !ok {
		return nil, notFound("tenant product")
	}
	tp.Config = tp.Config.Clone()
	return &tp, nil
}

func (r *tenantProductRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.TenantProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var tps []*domain.TenantProduct
	for _, tp := range r.s.t.tenantProducts {
		if tp.TenantID == tenantID {
			tp := tp
			tp.Config = tp.Config.Clone()
			tps = append(tps, &tp)
		}
	}
	sortBy(tps, func(a, b *domain.TenantProduct) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return tps, nil
}

func (r *tenantProductRepository) Upsert(ctx context.Context, tp *domain.TenantProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tp.UpdatedAt = time.Now()
	if existing, ok := r.find(tp.TenantID, tp.ProductID); ok {
		existing.Config = tp.Config.Clone()
		existing.IsActive = tp.IsActive
		existing.UpdatedAt = tp.UpdatedAt
		r.s.t.tenantProducts[existing.ID] = existing
		*tp = existing
		return nil
	}
	stored := *tp
	stored.Config = tp.Config.Clone()
	r.s.t.tenantProducts[tp.ID] = stored
	return nil
}

func (r *tenantProductRepository) EnsureActive(ctx context.Context, tenantID, productID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	existing, ok := r.find(tenantID, productID)
	if !ok {
		id := uuid.New()
		r.s.t.tenantProducts[id] = domain.TenantProduct{
			ID:        id,
			TenantID:  tenantID,
			ProductID: productID,
			Config:    domain.JSONMap{},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return true, nil
	}
	if existing.IsActive {
		return false, nil
	}
	existing.IsActive = true
	existing.UpdatedAt = now
	r.s.t.tenantProducts[existing.ID] = existing
	return true, nil
}

func (r *tenantProductRepository) Deactivate(ctx context.Context, tenantID, productID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.find(tenantID, productID)
	if !ok || !existing.IsActive {
		return false, nil
	}
	existing.IsActive = false
	existing.UpdatedAt = time.Now()
	r.s.t.tenantProducts[existing.ID] = existing
	return true, nil
}

func (r *tenantProductRepository) Delete(ctx context.Context, tenantID, productID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.find(tenantID, productID)
	if !ok {
		return notFound("tenant product")
	}
	delete(r.s.t.tenantProducts, existing.ID)
	return nil
}

func (r *tenantProductRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, tp := range r.s.t.tenantProducts {
		if tp.TenantID == tenantID {
			delete(r.s.t.tenantProducts, id)
		}
	}
	return nil
}

func (r *tenantProductRepository) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tp, ok := r.s.t.tenantProducts[id]; ok {
		tp.AccessCount++
		tp.LastAccessed = &at
		r.s.t.tenantProducts[id] = tp
	}
	return nil
}
