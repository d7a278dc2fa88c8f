package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/email"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// TenantAdminRequest describes the first administrator created with a tenant
type TenantAdminRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type CreateTenantRequest struct {
	Name     string              `json:"name" validate:"required,min=2,max=255"`
	Slug     string              `json:"slug" validate:"omitempty,min=3,max=100,slug"`
	PlanID   string              `json:"planId" validate:"required,uuid"`
	MaxUsers *int                `json:"maxUsers" validate:"omitempty,gte=1"`
	Admin    *TenantAdminRequest `json:"admin" validate:"omitempty"`
}

type UpdateTenantRequest struct {
	Name     *string              `json:"name" validate:"omitempty,min=2,max=255"`
	Slug     *string              `json:"slug" validate:"omitempty,min=3,max=100,slug"`
	Status   *domain.TenantStatus `json:"status" validate:"omitempty,oneof=ACTIVE SUSPENDED INACTIVE"`
	PlanID   *string              `json:"planId" validate:"omitempty,uuid"`
	MaxUsers *int                 `json:"maxUsers" validate:"omitempty,gte=1"`
}

type TenantListFilter struct {
	Status string
	PlanID string
	Search string
	Limit  int
	Offset int
}

// TenantCreated is the outcome of a tenant creation
type TenantCreated struct {
	Tenant *domain.Tenant `json:"tenant"`
	Admin  *domain.User   `json:"admin,omitempty"`
	Sync   *SyncResult    `json:"sync"`
}

type TenantService struct {
	tenants        repository.TenantRepository
	plans          repository.PlanRepository
	users          repository.UserRepository
	sessions       repository.SessionRepository
	tenantProducts repository.TenantProductRepository
	tokens         repository.ProductTokenRepository
	tx             repository.Transactor
	products       *TenantProductService
	sso            *SSOService
	hasher         PasswordHasher
	audit          *AuditService
	emailService   email.EmailService
	log            *zap.Logger
	now            func() time.Time
}

func NewTenantService(
	repos *repository.Set,
	products *TenantProductService,
	sso *SSOService,
	hasher PasswordHasher,
	audit *AuditService,
	emailService email.EmailService,
	log *zap.Logger,
) *TenantService {
	return &TenantService{
		tenants:        repos.Tenants,
		plans:          repos.Plans,
		users:          repos.Users,
		sessions:       repos.Sessions,
		tenantProducts: repos.TenantProducts,
		tokens:         repos.ProductTokens,
		tx:             repos.Tx,
		products:       products,
		sso:            sso,
		hasher:         hasher,
		audit:          audit,
		emailService:   emailService,
		log:            log,
		now:            time.Now,
	}
}

// Create creates the tenant, its optional admin and its product activations
// in one transaction. A failure at any step leaves nothing behind.
func (s *TenantService) Create(ctx context.Context, actor Actor, req CreateTenantRequest) (*TenantCreated, error) {
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return nil, invalidField("planId", "planId must be a valid UUID")
	}

	slug := req.Slug
	if slug == "" {
		slug = generateSlugFromName(req.Name)
	}
	if !isValidSlug(slug) {
		return nil, invalidField("slug", "slug must be lowercase alphanumeric words separated by hyphens, 3-100 characters")
	}

	var passwordHash string
	if req.Admin != nil {
		passwordHash, err = s.hasher.HashPassword(req.Admin.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	now := s.now()
	out := &TenantCreated{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.plans.GetByID(ctx, planID); err != nil {
			return lookupErr(err, ErrPlanNotFound)
		}

		tenant := &domain.Tenant{
			ID:        uuid.New(),
			Name:      strings.TrimSpace(req.Name),
			Slug:      slug,
			Status:    domain.TenantStatusActive,
			PlanID:    planID,
			MaxUsers:  req.MaxUsers,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.tenants.Create(ctx, tenant); err != nil {
			return writeErr(err, ErrSlugTaken)
		}
		out.Tenant = tenant

		if req.Admin != nil {
			admin := &domain.User{
				ID:           uuid.New(),
				Email:        normalizeEmail(req.Admin.Email),
				Name:         strings.TrimSpace(req.Admin.Name),
				PasswordHash: passwordHash,
				Role:         domain.RoleAdmin,
				TenantID:     &tenant.ID,
				IsActive:     true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.users.Create(ctx, admin); err != nil {
				return writeErr(err, ErrEmailTaken)
			}
			out.Admin = admin
		}

		out.Sync, err = s.products.sync(ctx, tenant)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditTenantCreated,
		Resource: domain.Resource("tenant", out.Tenant.ID),
		Details: domain.JSONMap{
			"slug":      out.Tenant.Slug,
			"planId":    planID.String(),
			"activated": out.Sync.Activated,
		},
		UserID:   actor.userID(),
		TenantID: &out.Tenant.ID,
		Meta:     actor.Meta,
	})

	if out.Admin != nil {
		s.audit.Record(ctx, AuditEntry{
			Action:   domain.AuditUserCreated,
			Resource: domain.Resource("user", out.Admin.ID),
			Details:  domain.JSONMap{"email": out.Admin.Email, "role": string(out.Admin.Role)},
			UserID:   actor.userID(),
			TenantID: &out.Tenant.ID,
			Meta:     actor.Meta,
		})
		s.sendWelcome(out.Admin, out.Tenant)
	}
	return out, nil
}

// sendWelcome mails the first admin in the background; a failure is only logged
func (s *TenantService) sendWelcome(admin *domain.User, tenant *domain.Tenant) {
	if s.emailService == nil {
		return
	}
	to, name, clinic := admin.Email, admin.Name, tenant.Name
	go func() {
		if err := s.emailService.SendWelcomeEmail(context.Background(), to, name, clinic); err != nil {
			s.log.Warn("failed to send welcome email", zap.String("to", to), zap.Error(err))
		}
	}()
}

func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrTenantNotFound)
	}
	return tenant, nil
}

func (s *TenantService) List(ctx context.Context, f TenantListFilter) ([]*domain.Tenant, int, error) {
	filter := repository.TenantFilter{
		Search: strings.TrimSpace(f.Search),
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	if f.Status != "" {
		status := domain.TenantStatus(strings.ToUpper(f.Status))
		if !status.Valid() {
			return nil, 0, invalidField("status", "status must be one of ACTIVE SUSPENDED INACTIVE")
		}
		filter.Status = &status
	}
	if f.PlanID != "" {
		planID, err := uuid.Parse(f.PlanID)
		if err != nil {
			return nil, 0, invalidField("planId", "planId must be a valid UUID")
		}
		filter.PlanID = &planID
	}
	return s.tenants.List(ctx, filter)
}

// Update applies the given fields. A plan change re-syncs the tenant's
// products; leaving ACTIVE revokes every outstanding product token of the
// tenant's users.
func (s *TenantService) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateTenantRequest) (*domain.Tenant, error) {
	var (
		tenant  *domain.Tenant
		sync    *SyncResult
		revoked int64
		changes = domain.JSONMap{}
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		tenant, err = s.tenants.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, ErrTenantNotFound)
		}
		previous := *tenant

		if req.Name != nil {
			tenant.Name = strings.TrimSpace(*req.Name)
			changes["name"] = tenant.Name
		}
		if req.Slug != nil {
			tenant.Slug = *req.Slug
			changes["slug"] = tenant.Slug
		}
		if req.MaxUsers != nil {
			tenant.MaxUsers = req.MaxUsers
			changes["maxUsers"] = *req.MaxUsers
		}
		if req.Status != nil {
			if !req.Status.Valid() {
				return invalidField("status", "status must be one of ACTIVE SUSPENDED INACTIVE")
			}
			tenant.Status = *req.Status
			changes["status"] = string(tenant.Status)
		}
		if req.PlanID != nil {
			planID, err := uuid.Parse(*req.PlanID)
			if err != nil {
				return invalidField("planId", "planId must be a valid UUID")
			}
			if _, err := s.plans.GetByID(ctx, planID); err != nil {
				return lookupErr(err, ErrPlanNotFound)
			}
			tenant.PlanID = planID
			changes["planId"] = planID.String()
		}

		if err := s.tenants.Update(ctx, tenant); err != nil {
			return writeErr(lookupErr(err, ErrTenantNotFound), ErrSlugTaken)
		}

		if tenant.PlanID != previous.PlanID {
			if sync, err = s.products.sync(ctx, tenant); err != nil {
				return err
			}
		}
		if previous.IsActive() && !tenant.IsActive() {
			if revoked, err = s.sso.RevokeForTenant(ctx, tenant.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sync != nil {
		changes["sync"] = map[string]any{
			"activated":     sync.Activated,
			"deactivated":   sync.Deactivated,
			"revokedTokens": sync.RevokedTokens,
		}
	}
	if revoked > 0 {
		changes["revokedTokens"] = revoked
	}
	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditTenantUpdated,
		Resource: domain.Resource("tenant", tenant.ID),
		Details:  changes,
		UserID:   actor.userID(),
		TenantID: &tenant.ID,
		Meta:     actor.Meta,
	})
	return tenant, nil
}

// Delete removes a tenant that has no USER-role members. Its admins,
// sessions, product tokens and activations go with it.
func (s *TenantService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	var tenant *domain.Tenant
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		tenant, err = s.tenants.GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, ErrTenantNotFound)
		}

		members, err := s.users.CountByTenantAndRole(ctx, id, domain.RoleUser)
		if err != nil {
			return err
		}
		if members > 0 {
			return &ConflictError{
				Message: fmt.Sprintf("tenant still has %d users", members),
				Count:   members,
			}
		}

		if err := s.tokens.DeleteByTenant(ctx, id); err != nil {
			return err
		}
		if err := s.sessions.DeleteByTenant(ctx, id); err != nil {
			return err
		}
		if err := s.tenantProducts.DeleteByTenant(ctx, id); err != nil {
			return err
		}
		if err := s.users.DeleteByTenant(ctx, id); err != nil {
			return err
		}
		if err := s.tenants.Delete(ctx, id); err != nil {
			return lookupErr(err, ErrTenantNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditTenantDeleted,
		Resource: domain.Resource("tenant", id),
		Details:  domain.JSONMap{"slug": tenant.Slug, "name": tenant.Name},
		UserID:   actor.userID(),
		Meta:     actor.Meta,
	})
	return nil
}

func generateSlugFromName(name string) string {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 100 {
		slug = strings.TrimRight(slug[:100], "-")
	}
	return slug
}

func isValidSlug(slug string) bool {
	if len(slug) < 3 || len(slug) > 100 {
		return false
	}
	return validator.IsSlug(slug)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
