package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/metrics"
	"go.uber.org/zap"
)

// DenyReason classifies why access to a product was refused
type DenyReason string

const (
	DenyProductUnavailable       DenyReason = "PRODUCT_UNAVAILABLE"
	DenyUserUnavailable          DenyReason = "USER_UNAVAILABLE"
	DenyTenantNotFound           DenyReason = "TENANT_NOT_FOUND"
	DenyNoClinic                 DenyReason = "NO_CLINIC"
	DenyPlanExcludesProduct      DenyReason = "PLAN_EXCLUDES_PRODUCT"
	DenyProductInactiveForClinic DenyReason = "PRODUCT_INACTIVE_FOR_CLINIC"
)

// IsLookupFailure reports reasons caused by an unknown product, user or tenant
func (r DenyReason) IsLookupFailure() bool {
	switch r {
	case DenyProductUnavailable, DenyUserUnavailable, DenyTenantNotFound:
		return true
	}
	return false
}

// AccessQuery is the public access check. At least one of UserEmail and
// TenantSlug is required; UserEmail wins when both are set.
type AccessQuery struct {
	ProductSlug string `json:"productSlug" validate:"required"`
	UserEmail   string `json:"userEmail" validate:"omitempty,email"`
	TenantSlug  string `json:"tenantSlug"`
}

// AccessConfig exposes every configuration layer untouched plus their
// shallow merge, with precedence tenant > plan > product default.
type AccessConfig struct {
	Default   domain.JSONMap `json:"default"`
	Plan      domain.JSONMap `json:"plan"`
	Tenant    domain.JSONMap `json:"tenant"`
	Effective domain.JSONMap `json:"effective"`
}

type AccessResult struct {
	HasAccess bool                   `json:"hasAccess"`
	Reason    string                 `json:"reason,omitempty"`
	Code      DenyReason             `json:"code,omitempty"`
	Product   *domain.ProductSummary `json:"product,omitempty"`
	Tenant    *domain.TenantSummary  `json:"tenant,omitempty"`
	Config    *AccessConfig          `json:"config,omitempty"`
}

func denied(code DenyReason, reason string) *AccessResult {
	return &AccessResult{HasAccess: false, Code: code, Reason: reason}
}

type AccessService struct {
	products       repository.ProductRepository
	users          repository.UserRepository
	tenants        repository.TenantRepository
	plans          repository.PlanRepository
	planProducts   repository.PlanProductRepository
	tenantProducts repository.TenantProductRepository
	audit          *AuditService
	metrics        *metrics.Metrics
	log            *zap.Logger
	now            func() time.Time
}

func NewAccessService(repos *repository.Set, audit *AuditService, m *metrics.Metrics, log *zap.Logger) *AccessService {
	return &AccessService{
		products:       repos.Products,
		users:          repos.Users,
		tenants:        repos.Tenants,
		plans:          repos.Plans,
		planProducts:   repos.PlanProducts,
		tenantProducts: repos.TenantProducts,
		audit:          audit,
		metrics:        m,
		log:            log,
		now:            time.Now,
	}
}

// subject is who access is evaluated for. user is nil for tenant-only checks.
type subject struct {
	user   *domain.User
	tenant *domain.Tenant
}

// Resolve answers the public access contract for a user email or tenant slug
func (s *AccessService) Resolve(ctx context.Context, q AccessQuery, meta RequestMeta) (*AccessResult, error) {
	email := strings.TrimSpace(strings.ToLower(q.UserEmail))
	tenantSlug := strings.TrimSpace(q.TenantSlug)
	if email == "" && tenantSlug == "" {
		return nil, invalidField("userEmail", "userEmail or tenantSlug is required")
	}

	product, result, err := s.activeProduct(ctx, q.ProductSlug)
	if err != nil || result != nil {
		return s.count(result), err
	}

	var subj subject
	if email != "" {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if user == nil || !user.IsActive {
			return s.count(denied(DenyUserUnavailable, "User not found or inactive")), nil
		}
		subj.user = user

		if user.TenantID != nil {
			tenant, err := s.tenants.GetByID(ctx, *user.TenantID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			subj.tenant = tenant
		}
	} else {
		tenant, err := s.tenants.GetBySlug(ctx, tenantSlug)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return s.count(denied(DenyTenantNotFound, "Clinic not found")), nil
			}
			return nil, err
		}
		subj.tenant = tenant
	}

	return s.evaluate(ctx, product, subj, meta, true)
}

// ResolveForUser evaluates access for an authenticated session. It records
// usage and audits denials.
func (s *AccessService) ResolveForUser(ctx context.Context, productSlug string, data *SessionData, meta RequestMeta) (*AccessResult, error) {
	product, result, err := s.activeProduct(ctx, productSlug)
	if err != nil || result != nil {
		return s.count(result), err
	}
	return s.evaluate(ctx, product, subject{user: data.User, tenant: data.Tenant}, meta, true)
}

// Check evaluates access to an already loaded product without side effects,
// for listings.
func (s *AccessService) Check(ctx context.Context, product *domain.Product, data *SessionData) (*AccessResult, error) {
	if !product.IsActive {
		return denied(DenyProductUnavailable, "Product not found or inactive"), nil
	}
	return s.evaluate(ctx, product, subject{user: data.User, tenant: data.Tenant}, RequestMeta{}, false)
}

func (s *AccessService) activeProduct(ctx context.Context, slug string) (*domain.Product, *AccessResult, error) {
	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, denied(DenyProductUnavailable, "Product not found or inactive"), nil
		}
		return nil, nil, err
	}
	if !product.IsActive {
		return nil, denied(DenyProductUnavailable, "Product not found or inactive"), nil
	}
	return product, nil, nil
}

// evaluate walks the entitlement chain for an active product. It is the
// only place the super admin bypass exists.
func (s *AccessService) evaluate(ctx context.Context, product *domain.Product, subj subject, meta RequestMeta, record bool) (*AccessResult, error) {
	if subj.user != nil && subj.user.IsSuperAdmin() {
		result := &AccessResult{
			HasAccess: true,
			Product:   product.Summary(),
			Config: &AccessConfig{
				Default:   product.DefaultConfig.Clone(),
				Plan:      domain.JSONMap{},
				Tenant:    domain.JSONMap{},
				Effective: product.DefaultConfig.Clone(),
			},
		}
		if subj.tenant != nil {
			result.Tenant = subj.tenant.Summary()
		}
		if record {
			s.count(result)
		}
		return result, nil
	}

	if subj.tenant == nil {
		return s.deny(ctx, record, product, subj, meta, denied(DenyNoClinic, "User has no clinic"))
	}
	tenant := subj.tenant

	plan, err := s.plans.GetByID(ctx, tenant.PlanID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if plan == nil {
		return s.deny(ctx, record, product, subj, meta, denied(DenyPlanExcludesProduct, "Plan does not include this module"))
	}

	pp, err := s.planProducts.Get(ctx, plan.ID, product.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if pp == nil || !pp.IsActive {
		msg := fmt.Sprintf("Plan %q does not include this module", plan.Name)
		return s.deny(ctx, record, product, subj, meta, denied(DenyPlanExcludesProduct, msg))
	}

	tp, err := s.tenantProducts.Get(ctx, tenant.ID, product.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if tp == nil || !tp.IsActive {
		return s.deny(ctx, record, product, subj, meta, denied(DenyProductInactiveForClinic, "Product not active for this clinic"))
	}

	result := &AccessResult{
		HasAccess: true,
		Product:   product.Summary(),
		Tenant:    tenant.Summary(),
		Config: &AccessConfig{
			Default:   product.DefaultConfig.Clone(),
			Plan:      pp.Config.Clone(),
			Tenant:    tp.Config.Clone(),
			Effective: domain.MergeConfig(product.DefaultConfig, pp.Config, tp.Config),
		},
	}

	if record {
		// usage counter, not exact under concurrency
		if err := s.tenantProducts.RecordAccess(ctx, tp.ID, s.now()); err != nil {
			s.log.Warn("failed to record product access",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("product", product.Slug),
				zap.Error(err),
			)
		}
		s.count(result)
	}
	return result, nil
}

func (s *AccessService) deny(ctx context.Context, record bool, product *domain.Product, subj subject, meta RequestMeta, result *AccessResult) (*AccessResult, error) {
	if !record {
		return result, nil
	}
	s.count(result)

	entry := AuditEntry{
		Action:   domain.AuditAccessDenied,
		Resource: domain.Resource("product", product.ID),
		Details: domain.JSONMap{
			"productSlug": product.Slug,
			"code":        string(result.Code),
			"reason":      result.Reason,
		},
		Meta: meta,
	}
	if subj.user != nil {
		entry.UserID = &subj.user.ID
	}
	if subj.tenant != nil {
		entry.TenantID = &subj.tenant.ID
		result.Tenant = subj.tenant.Summary()
	}
	result.Product = product.Summary()
	s.audit.Record(ctx, entry)
	return result, nil
}

func (s *AccessService) count(result *AccessResult) *AccessResult {
	if result == nil {
		return nil
	}
	if result.HasAccess {
		s.metrics.AccessCheck("granted")
	} else {
		s.metrics.AccessCheck("denied")
	}
	return result
}
