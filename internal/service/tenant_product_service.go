package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
)

// SyncResult reports what a tenant-plan sync changed
type SyncResult struct {
	Activated     int   `json:"activated"`
	Deactivated   int   `json:"deactivated"`
	RevokedTokens int64 `json:"revokedTokens"`
}

// TenantProductView is one product as seen from a tenant: its activation
// record, if any, and whether the tenant's plan includes it.
type TenantProductView struct {
	Product       *domain.ProductSummary `json:"product"`
	TenantProduct *domain.TenantProduct  `json:"tenantProduct,omitempty"`
	Entitled      bool                   `json:"entitled"`
}

type UpdateTenantProductRequest struct {
	IsActive *bool          `json:"isActive"`
	Config   domain.JSONMap `json:"config"`
}

type TenantProductService struct {
	tenants        repository.TenantRepository
	products       repository.ProductRepository
	planProducts   repository.PlanProductRepository
	tenantProducts repository.TenantProductRepository
	tx             repository.Transactor
	sso            *SSOService
	audit          *AuditService
	now            func() time.Time
}

func NewTenantProductService(repos *repository.Set, sso *SSOService, audit *AuditService) *TenantProductService {
	return &TenantProductService{
		tenants:        repos.Tenants,
		products:       repos.Products,
		planProducts:   repos.PlanProducts,
		tenantProducts: repos.TenantProducts,
		tx:             repos.Tx,
		sso:            sso,
		audit:          audit,
		now:            time.Now,
	}
}

// SyncWithPlan aligns the tenant's product activations with its plan in
// one transaction. Running it twice changes nothing the second time.
func (s *TenantProductService) SyncWithPlan(ctx context.Context, actor Actor, tenantID uuid.UUID) (*SyncResult, error) {
	var result *SyncResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		tenant, err := s.tenants.GetByID(ctx, tenantID)
		if err != nil {
			return lookupErr(err, ErrTenantNotFound)
		}
		result, err = s.sync(ctx, tenant)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditTenantProductsSynced,
		Resource: domain.Resource("tenant", tenantID),
		Details: domain.JSONMap{
			"activated":     result.Activated,
			"deactivated":   result.Deactivated,
			"revokedTokens": result.RevokedTokens,
		},
		UserID:   actor.userID(),
		TenantID: &tenantID,
		Meta:     actor.Meta,
	})
	return result, nil
}

// sync runs on the caller's transaction
func (s *TenantProductService) sync(ctx context.Context, tenant *domain.Tenant) (*SyncResult, error) {
	planProducts, err := s.planProducts.ListByPlan(ctx, tenant.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan products: %w", err)
	}

	result := &SyncResult{}
	entitled := make(map[uuid.UUID]bool, len(planProducts))
	for _, pp := range planProducts {
		if !pp.IsActive {
			continue
		}
		entitled[pp.ProductID] = true

		changed, err := s.tenantProducts.EnsureActive(ctx, tenant.ID, pp.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to activate tenant product: %w", err)
		}
		if changed {
			result.Activated++
		}
	}

	current, err := s.tenantProducts.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant products: %w", err)
	}
	for _, tp := range current {
		if !tp.IsActive || entitled[tp.ProductID] {
			continue
		}
		changed, err := s.tenantProducts.Deactivate(ctx, tenant.ID, tp.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to deactivate tenant product: %w", err)
		}
		if !changed {
			continue
		}
		result.Deactivated++

		revoked, err := s.sso.RevokeForTenantProduct(ctx, tenant.ID, tp.ProductID)
		if err != nil {
			return nil, err
		}
		result.RevokedTokens += revoked
	}
	return result, nil
}

// List returns every product with the tenant's activation state
func (s *TenantProductService) List(ctx context.Context, tenantID uuid.UUID) ([]*TenantProductView, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, lookupErr(err, ErrTenantNotFound)
	}

	products, err := s.products.List(ctx, false)
	if err != nil {
		return nil, err
	}
	planProducts, err := s.planProducts.ListByPlan(ctx, tenant.PlanID)
	if err != nil {
		return nil, err
	}
	rows, err := s.tenantProducts.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	entitled := make(map[uuid.UUID]bool, len(planProducts))
	for _, pp := range planProducts {
		entitled[pp.ProductID] = pp.IsActive
	}
	byProduct := make(map[uuid.UUID]*domain.TenantProduct, len(rows))
	for _, tp := range rows {
		byProduct[tp.ProductID] = tp
	}

	views := make([]*TenantProductView, 0, len(products))
	for _, p := range products {
		views = append(views, &TenantProductView{
			Product:       p.Summary(),
			TenantProduct: byProduct[p.ID],
			Entitled:      entitled[p.ID],
		})
	}
	return views, nil
}

// Update activates, deactivates or reconfigures a product for a tenant.
// Deactivation revokes the outstanding tokens of the tenant's users.
func (s *TenantProductService) Update(ctx context.Context, actor Actor, tenantID, productID uuid.UUID, req UpdateTenantProductRequest) (*domain.TenantProduct, error) {
	var (
		tp      *domain.TenantProduct
		revoked int64
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
			return lookupErr(err, ErrTenantNotFound)
		}
		if _, err := s.products.GetByID(ctx, productID); err != nil {
			return lookupErr(err, ErrProductNotFound)
		}

		existing, err := s.tenantProducts.Get(ctx, tenantID, productID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.now()
		wasActive := false
		if existing != nil {
			tp = existing
			wasActive = existing.IsActive
		} else {
			tp = &domain.TenantProduct{
				ID:        uuid.New(),
				TenantID:  tenantID,
				ProductID: productID,
				Config:    domain.JSONMap{},
				IsActive:  true,
				CreatedAt: now,
			}
		}
		if req.IsActive != nil {
			tp.IsActive = *req.IsActive
		}
		if req.Config != nil {
			tp.Config = req.Config.Clone()
		}
		tp.UpdatedAt = now

		if err := s.tenantProducts.Upsert(ctx, tp); err != nil {
			return fmt.Errorf("failed to save tenant product: %w", err)
		}

		if wasActive && !tp.IsActive {
			revoked, err = s.sso.RevokeForTenantProduct(ctx, tenantID, productID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditTenantProductUpdated,
		Resource: domain.Resource("tenant", tenantID),
		Details: domain.JSONMap{
			"productId":     productID.String(),
			"isActive":      tp.IsActive,
			"revokedTokens": revoked,
		},
		UserID:   actor.userID(),
		TenantID: &tenantID,
		Meta:     actor.Meta,
	})
	return tp, nil
}

// Remove deletes the activation record and revokes the product's tokens for the tenant
func (s *TenantProductService) Remove(ctx context.Context, actor Actor, tenantID, productID uuid.UUID) error {
	var revoked int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tenantProducts.Delete(ctx, tenantID, productID); err != nil {
			return lookupErr(err, ErrTenantProductNotFound)
		}
		var err error
		revoked, err = s.sso.RevokeForTenantProduct(ctx, tenantID, productID)
		return err
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditTenantProductRemoved,
		Resource: domain.Resource("tenant", tenantID),
		Details:  domain.JSONMap{"productId": productID.String(), "revokedTokens": revoked},
		UserID:   actor.userID(),
		TenantID: &tenantID,
		Meta:     actor.Meta,
	})
	return nil
}
