package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Slug        string  `json:"slug" validate:"required,min=2,max=100,slug"`
	Description string  `json:"description" validate:"max=1000"`
	MaxUsers    int     `json:"maxUsers" validate:"required,gte=1"`
	Price       *string `json:"price"` // decimal string, null or empty = free
	IsActive    *bool   `json:"isActive"`
}

type UpdatePlanRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Slug        *string `json:"slug" validate:"omitempty,min=2,max=100,slug"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	MaxUsers    *int    `json:"maxUsers" validate:"omitempty,gte=1"`
	Price       *string `json:"price"`
	IsActive    *bool   `json:"isActive"`
}

type SetPlanProductRequest struct {
	IsActive *bool          `json:"isActive"`
	Config   domain.JSONMap `json:"config"`
}

// PlanDetail is a plan with its entitlement templates
type PlanDetail struct {
	*domain.Plan
	Products []*domain.PlanProduct `json:"products"`
}

type PlanService struct {
	plans        repository.PlanRepository
	planProducts repository.PlanProductRepository
	products     repository.ProductRepository
	tenants      repository.TenantRepository
	tx           repository.Transactor
	sso          *SSOService
	audit        *AuditService
	now          func() time.Time
}

func NewPlanService(repos *repository.Set, sso *SSOService, audit *AuditService) *PlanService {
	return &PlanService{
		plans:        repos.Plans,
		planProducts: repos.PlanProducts,
		products:     repos.Products,
		tenants:      repos.Tenants,
		tx:           repos.Tx,
		sso:          sso,
		audit:        audit,
		now:          time.Now,
	}
}

// parsePrice turns the request price into a nullable decimal. Empty means free.
func parsePrice(raw *string) (decimal.NullDecimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.NullDecimal{}, invalidField("price", "price must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, invalidField("price", "price must not be negative")
	}
	return decimal.NewNullDecimal(d.Round(2)), nil
}

func (s *PlanService) Create(ctx context.Context, actor Actor, req CreatePlanRequest) (*domain.Plan, error) {
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	now := s.now()
	plan := &domain.Plan{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Slug:        req.Slug,
		Description: req.Description,
		MaxUsers:    req.MaxUsers,
		Price:       price,
		IsActive:    req.IsActive == nil || *req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, writeErr(err, ErrSlugTaken)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditPlanCreated,
		Resource: domain.Resource("plan", plan.ID),
		Details:  domain.JSONMap{"slug": plan.Slug, "maxUsers": plan.MaxUsers},
		UserID:   actor.userID(),
		Meta:     actor.Meta,
	})
	return plan, nil
}

func (s *PlanService) Get(ctx context.Context, id uuid.UUID) (*PlanDetail, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrPlanNotFound)
	}
	products, err := s.planProducts.ListByPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PlanDetail{Plan: plan, Products: products}, nil
}

func (s *PlanService) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	return s.plans.List(ctx, activeOnly)
}

func (s *PlanService) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdatePlanRequest) (*domain.Plan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrPlanNotFound)
	}

	changes := domain.JSONMap{}
	if req.Name != nil {
		plan.Name = strings.TrimSpace(*req.Name)
		changes["name"] = plan.Name
	}
	if req.Slug != nil {
		plan.Slug = *req.Slug
		changes["slug"] = plan.Slug
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.MaxUsers != nil {
		plan.MaxUsers = *req.MaxUsers
		changes["maxUsers"] = plan.MaxUsers
	}
	if req.Price != nil {
		if plan.Price, err = parsePrice(req.Price); err != nil {
			return nil, err
		}
		changes["price"] = *req.Price
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
		changes["isActive"] = plan.IsActive
	}

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, writeErr(lookupErr(err, ErrPlanNotFound), ErrSlugTaken)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditPlanUpdated,
		Resource: domain.Resource("plan", plan.ID),
		Details:  changes,
		UserID:   actor.userID(),
		Meta:     actor.Meta,
	})
	return plan, nil
}

// Delete removes a plan no tenant references, together with its products
func (s *PlanService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	var plan *domain.Plan
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		plan, err = s.plans.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, ErrPlanNotFound)
		}

		count, err := s.tenants.CountByPlan(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{
				Message: fmt.Sprintf("plan is used by %d tenants", count),
				Count:   count,
			}
		}

		if err := s.planProducts.DeleteByPlan(ctx, id); err != nil {
			return err
		}
		return lookupErr(s.plans.Delete(ctx, id), ErrPlanNotFound)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditPlanDeleted,
		Resource: domain.Resource("plan", id),
		Details:  domain.JSONMap{"slug": plan.Slug},
		UserID:   actor.userID(),
		Meta:     actor.Meta,
	})
	return nil
}

// SetProduct includes a product in the plan or changes its template.
// Deactivating revokes the product tokens of every tenant on the plan.
func (s *PlanService) SetProduct(ctx context.Context, actor Actor, planID, productID uuid.UUID, req SetPlanProductRequest) (*domain.PlanProduct, error) {
	var (
		pp      *domain.PlanProduct
		revoked int64
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.plans.GetByID(ctx, planID); err != nil {
			return lookupErr(err, ErrPlanNotFound)
		}
		if _, err := s.products.GetByID(ctx, productID); err != nil {
			return lookupErr(err, ErrProductNotFound)
		}

		existing, err := s.planProducts.Get(ctx, planID, productID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		wasActive := false
		if existing != nil {
			pp = existing
			wasActive = existing.IsActive
		} else {
			pp = &domain.PlanProduct{
				ID:        uuid.New(),
				PlanID:    planID,
				ProductID: productID,
				Config:    domain.JSONMap{},
				IsActive:  true,
				CreatedAt: s.now(),
			}
		}
		if req.IsActive != nil {
			pp.IsActive = *req.IsActive
		}
		if req.Config != nil {
			pp.Config = req.Config.Clone()
		}

		if err := s.planProducts.Upsert(ctx, pp); err != nil {
			return fmt.Errorf("failed to save plan product: %w", err)
		}
		if wasActive && !pp.IsActive {
			if revoked, err = s.sso.RevokeForPlanProduct(ctx, planID, productID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditPlanUpdated,
		Resource: domain.Resource("plan", planID),
		Details: domain.JSONMap{
			"productId":     productID.String(),
			"isActive":      pp.IsActive,
			"revokedTokens": revoked,
		},
		UserID: actor.userID(),
		Meta:   actor.Meta,
	})
	return pp, nil
}

// RemoveProduct drops a product from the plan and revokes its tokens on the plan's tenants
func (s *PlanService) RemoveProduct(ctx context.Context, actor Actor, planID, productID uuid.UUID) error {
	var revoked int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.planProducts.Delete(ctx, planID, productID); err != nil {
			return lookupErr(err, ErrPlanProductNotFound)
		}
		var err error
		revoked, err = s.sso.RevokeForPlanProduct(ctx, planID, productID)
		return err
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditPlanUpdated,
		Resource: domain.Resource("plan", planID),
		Details:  domain.JSONMap{"removedProductId": productID.String(), "revokedTokens": revoked},
		UserID:   actor.userID(),
		Meta:     actor.Meta,
	})
	return nil
}
