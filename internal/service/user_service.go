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
)

var ErrCannotDeactivateSelf = &InputError{Field: "isActive", Message: "You cannot deactivate your own account"}

type CreateUserRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Name     string      `json:"name" validate:"required,min=2,max=255"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     domain.Role `json:"role" validate:"required,oneof=SUPER_ADMIN ADMIN USER"`
	TenantID *string     `json:"tenantId" validate:"omitempty,uuid"`
}

type UpdateUserRequest struct {
	Email    *string      `json:"email" validate:"omitempty,email"`
	Name     *string      `json:"name" validate:"omitempty,min=2,max=255"`
	Password *string      `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *domain.Role `json:"role" validate:"omitempty,oneof=SUPER_ADMIN ADMIN USER"`
	IsActive *bool        `json:"isActive"`
}

type UserListFilter struct {
	TenantID string
	Search   string
	Limit    int
	Offset   int
}

// UserView is a user with what the requesting actor may do with it
type UserView struct {
	*domain.User
	Capabilities Capabilities `json:"capabilities"`
}

type UserService struct {
	users    repository.UserRepository
	tenants  repository.TenantRepository
	plans    repository.PlanRepository
	tx       repository.Transactor
	sessions *SessionService
	sso      *SSOService
	hasher   PasswordHasher
	audit    *AuditService
	now      func() time.Time
}

func NewUserService(repos *repository.Set, sessions *SessionService, sso *SSOService, hasher PasswordHasher, audit *AuditService) *UserService {
	return &UserService{
		users:    repos.Users,
		tenants:  repos.Tenants,
		plans:    repos.Plans,
		tx:       repos.Tx,
		sessions: sessions,
		sso:      sso,
		hasher:   hasher,
		audit:    audit,
		now:      time.Now,
	}
}

func (s *UserService) view(actor Actor, user *domain.User) *UserView {
	return &UserView{
		User:         user,
		Capabilities: ResolveCapabilities(actor.Role, actor.TenantID, user.TenantID),
	}
}

// load returns the user if the actor may see it. Users of other tenants
// look missing.
func (s *UserService) load(ctx context.Context, actor Actor, id uuid.UUID) (*UserView, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrUserNotFound)
	}
	v := s.view(actor, user)
	if !v.Capabilities.CanView {
		return nil, ErrUserNotFound
	}
	return v, nil
}

// List returns users visible to the actor. Non super admins only ever see
// their own clinic.
func (s *UserService) List(ctx context.Context, actor Actor, f UserListFilter) ([]*UserView, int, error) {
	filter := repository.UserFilter{
		Search: strings.TrimSpace(f.Search),
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	if actor.IsSuperAdmin() {
		if f.TenantID != "" {
			tenantID, err := uuid.Parse(f.TenantID)
			if err != nil {
				return nil, 0, invalidField("tenantId", "tenantId must be a valid UUID")
			}
			filter.TenantID = &tenantID
		}
	} else {
		if !ResolveCapabilities(actor.Role, actor.TenantID, actor.TenantID).CanView {
			return nil, 0, ErrForbidden
		}
		filter.TenantID = actor.TenantID
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		views = append(views, s.view(actor, u))
	}
	return views, total, nil
}

func (s *UserService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*UserView, error) {
	return s.load(ctx, actor, id)
}

// Create adds a user to a clinic, enforcing the clinic's user limit
func (s *UserService) Create(ctx context.Context, actor Actor, req CreateUserRequest) (*UserView, error) {
	if !req.Role.Valid() {
		return nil, invalidField("role", "role must be one of SUPER_ADMIN ADMIN USER")
	}
	if req.Role == domain.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return nil, fmt.Errorf("only super admins may create super admins: %w", ErrForbidden)
	}

	var target *uuid.UUID
	switch {
	case req.Role == domain.RoleSuperAdmin:
		// super admins are global
	case req.TenantID != nil && *req.TenantID != "":
		id, err := uuid.Parse(*req.TenantID)
		if err != nil {
			return nil, invalidField("tenantId", "tenantId must be a valid UUID")
		}
		target = &id
	case actor.TenantID != nil:
		target = actor.TenantID
	default:
		return nil, invalidField("tenantId", "tenantId is required")
	}

	if !ResolveCapabilities(actor.Role, actor.TenantID, target).CanEdit {
		return nil, ErrForbidden
	}

	hashed, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hashed,
		Role:         req.Role,
		TenantID:     target,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if target != nil {
			if err := s.checkUserLimit(ctx, *target); err != nil {
				return err
			}
		}
		return writeErr(s.users.Create(ctx, user), ErrEmailTaken)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditUserCreated,
		Resource: domain.Resource("user", user.ID),
		Details:  domain.JSONMap{"email": user.Email, "role": string(user.Role)},
		UserID:   actor.userID(),
		TenantID: user.TenantID,
		Meta:     actor.Meta,
	})
	return s.view(actor, user), nil
}

func (s *UserService) checkUserLimit(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return lookupErr(err, ErrTenantNotFound)
	}
	plan, err := s.plans.GetByID(ctx, tenant.PlanID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	limit := tenant.UserLimit(plan)
	if limit <= 0 {
		return nil
	}
	count, err := s.users.CountByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if count >= limit {
		return &ConflictError{
			Message: fmt.Sprintf("clinic reached its limit of %d users", limit),
			Count:   count,
		}
	}
	return nil
}

func (s *UserService) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateUserRequest) (*UserView, error) {
	v, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !v.Capabilities.CanEdit {
		return nil, ErrForbidden
	}
	user := v.User
	wasActive := user.IsActive

	changes := domain.JSONMap{}
	if req.Email != nil {
		user.Email = normalizeEmail(*req.Email)
		changes["email"] = user.Email
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
		changes["name"] = user.Name
	}
	if req.Role != nil && *req.Role != user.Role {
		if !actor.IsSuperAdmin() && (*req.Role == domain.RoleSuperAdmin || user.IsSuperAdmin()) {
			return nil, ErrForbidden
		}
		if *req.Role == domain.RoleSuperAdmin || user.IsSuperAdmin() {
			return nil, invalidField("role", "super admin role cannot be granted or removed here")
		}
		user.Role = *req.Role
		changes["role"] = string(user.Role)
	}
	if req.Password != nil {
		hashed, err := s.hasher.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hashed
		changes["password"] = true
	}
	if req.IsActive != nil {
		if !*req.IsActive && user.ID == actor.UserID {
			return nil, ErrCannotDeactivateSelf
		}
		user.IsActive = *req.IsActive
		changes["isActive"] = user.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, writeErr(lookupErr(err, ErrUserNotFound), ErrEmailTaken)
	}

	if wasActive && !user.IsActive {
		if err := s.cutAccess(ctx, user); err != nil {
			return nil, err
		}
	} else if req.Password != nil {
		if err := s.sessions.RevokeAllUserSessions(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	action := domain.AuditUserUpdated
	if wasActive && !user.IsActive {
		action = domain.AuditUserDeactivated
	}
	s.audit.Record(ctx, AuditEntry{
		Action:   action,
		Resource: domain.Resource("user", user.ID),
		Details:  changes,
		UserID:   actor.userID(),
		TenantID: user.TenantID,
		Meta:     actor.Meta,
	})
	return s.view(actor, user), nil
}

// Deactivate disables a user. Users are never hard deleted here.
func (s *UserService) Deactivate(ctx context.Context, actor Actor, id uuid.UUID) error {
	v, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if !v.Capabilities.CanDelete {
		return ErrForbidden
	}
	if id == actor.UserID {
		return ErrCannotDeactivateSelf
	}

	user := v.User
	if user.IsActive {
		user.IsActive = false
		if err := s.users.Update(ctx, user); err != nil {
			return lookupErr(err, ErrUserNotFound)
		}
	}
	if err := s.cutAccess(ctx, user); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditUserDeactivated,
		Resource: domain.Resource("user", user.ID),
		Details:  domain.JSONMap{"email": user.Email},
		UserID:   actor.userID(),
		TenantID: user.TenantID,
		Meta:     actor.Meta,
	})
	return nil
}

// cutAccess ends the user's sessions and revokes their product tokens
func (s *UserService) cutAccess(ctx context.Context, user *domain.User) error {
	if err := s.sessions.RevokeAllUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	if _, err := s.sso.RevokeForUser(ctx, user.ID); err != nil {
		return err
	}
	return nil
}
