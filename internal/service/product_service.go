package service

import (
	"context"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
)

type CreateProductRequest struct {
	Name          string         `json:"name" validate:"required,min=2,max=100"`
	Slug          string         `json:"slug" validate:"required,min=2,max=100,slug"`
	Description   string         `json:"description" validate:"max=1000"`
	BaseURL       *string        `json:"baseUrl" validate:"omitempty,url"`
	Icon          string         `json:"icon" validate:"max=100"`
	Color         string         `json:"color" validate:"max=20"`
	DefaultConfig domain.JSONMap `json:"defaultConfig"`
}

type UpdateProductRequest struct {
	Name          *string        `json:"name" validate:"omitempty,min=2,max=100"`
	Description   *string        `json:"description" validate:"omitempty,max=1000"`
	BaseURL       *string        `json:"baseUrl" validate:"omitempty,url"`
	Icon          *string        `json:"icon" validate:"omitempty,max=100"`
	Color         *string        `json:"color" validate:"omitempty,max=20"`
	DefaultConfig domain.JSONMap `json:"defaultConfig"`
	IsActive      *bool          `json:"isActive"`
}

// ProductAccess is a product card of the dashboard
type ProductAccess struct {
	*domain.Product
	HasAccess bool       `json:"hasAccess"`
	Reason    string     `json:"reason,omitempty"`
	Code      DenyReason `json:"code,omitempty"`
}

type ProductService struct {
	products repository.ProductRepository
	access   *AccessService
	audit    *AuditService
	now      func() time.Time
}

func NewProductService(repos *repository.Set, access *AccessService, audit *AuditService) *ProductService {
	return &ProductService{
		products: repos.Products,
		access:   access,
		audit:    audit,
		now:      time.Now,
	}
}

func (s *ProductService) Create(ctx context.Context, actor Actor, req CreateProductRequest) (*domain.Product, error) {
	now := s.now()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Slug:          req.Slug,
		Description:   req.Description,
		BaseURL:       req.BaseURL,
		Icon:          req.Icon,
		Color:         req.Color,
		DefaultConfig: req.DefaultConfig.Clone(),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, writeErr(err, ErrSlugTaken)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditProductCreated,
		Resource: domain.Resource("product", product.ID),
		Details:  domain.JSONMap{"slug": product.Slug},
		UserID:   actor.userID(),
		Meta:     actor.Meta,
	})
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, activeOnly bool) ([]*domain.Product, error) {
	return s.products.List(ctx, activeOnly)
}

func (s *ProductService) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateProductRequest) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound)
	}

	changes := domain.JSONMap{}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
		changes["name"] = product.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.BaseURL != nil {
		if *req.BaseURL == "" {
			product.BaseURL = nil
		} else {
			product.BaseURL = req.BaseURL
		}
		changes["baseUrl"] = *req.BaseURL
	}
	if req.Icon != nil {
		product.Icon = *req.Icon
	}
	if req.Color != nil {
		product.Color = *req.Color
	}
	if req.DefaultConfig != nil {
		product.DefaultConfig = req.DefaultConfig.Clone()
		changes["defaultConfig"] = true
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
		changes["isActive"] = product.IsActive
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, lookupErr(err, ErrProductNotFound)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditProductUpdated,
		Resource: domain.Resource("product", product.ID),
		Details:  changes,
		UserID:   actor.userID(),
		Meta:     actor.Meta,
	})
	return product, nil
}

// Deactivate soft deletes a product. Products are never removed.
func (s *ProductService) Deactivate(ctx context.Context, actor Actor, id uuid.UUID) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return lookupErr(err, ErrProductNotFound)
	}
	if !product.IsActive {
		return nil
	}

	product.IsActive = false
	if err := s.products.Update(ctx, product); err != nil {
		return lookupErr(err, ErrProductNotFound)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditProductDeactivated,
		Resource: domain.Resource("product", product.ID),
		Details:  domain.JSONMap{"slug": product.Slug},
		UserID:   actor.userID(),
		Meta:     actor.Meta,
	})
	return nil
}

// ListForUser returns the active products with the session user's access to each
func (s *ProductService) ListForUser(ctx context.Context, data *SessionData) ([]*ProductAccess, error) {
	products, err := s.products.List(ctx, true)
	if err != nil {
		return nil, err
	}

	out := make([]*ProductAccess, 0, len(products))
	for _, p := range products {
		result, err := s.access.Check(ctx, p, data)
		if err != nil {
			return nil, err
		}
		out = append(out, &ProductAccess{
			Product:   p,
			HasAccess: result.HasAccess,
			Reason:    result.Reason,
			Code:      result.Code,
		})
	}
	return out, nil
}
