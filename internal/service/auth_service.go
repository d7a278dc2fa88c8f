package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/config"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/email"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Custom errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTenantSuspended    = fmt.Errorf("clinic is not active: %w", ErrForbidden)
	ErrSignupDisabled     = fmt.Errorf("signup is disabled: %w", ErrForbidden)
	ErrSetupCompleted     = fmt.Errorf("super admin %w", ErrConflict)
)

// PasswordHasher is implemented by *hash.Hasher
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, encodedHash string) (bool, error)
	DummyVerify(password string)
}

// LoginGuard counts failed logins per email. It is implemented by
// *attempts.Tracker.
type LoginGuard interface {
	IsBlocked(ctx context.Context, email string) (bool, error)
	RegisterFailure(ctx context.Context, email string) (int64, error)
	Reset(ctx context.Context, email string) error
}

// NoopLoginGuard never blocks. Used when redis is disabled.
type NoopLoginGuard struct{}

func (NoopLoginGuard) IsBlocked(context.Context, string) (bool, error) { return false, nil }
func (NoopLoginGuard) RegisterFailure(context.Context, string) (int64, error) { return 0, nil }
func (NoopLoginGuard) Reset(context.Context, string) error { return nil }

type LoginRequest struct {
	Email      string `json:"email" form:"email" validate:"required,email"`
	Password   string `json:"password" form:"password" validate:"required"`
	TenantSlug string `json:"tenantSlug" form:"tenantSlug"` // optional, must match the user's clinic
}

// LoginResult carries the cookie token and the identity behind it
type LoginResult struct {
	Token   string
	Session *domain.Session
	Data    *SessionData
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

type SignupRequest struct {
	ClinicName string `json:"clinicName" validate:"required,min=2,max=255"`
	ClinicSlug string `json:"clinicSlug" validate:"omitempty,min=3,max=100,slug"`
	Name       string `json:"name" validate:"required,min=2,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
}

type SetupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type AuthService struct {
	users        repository.UserRepository
	tenants      repository.TenantRepository
	plans        repository.PlanRepository
	sessions     *SessionService
	tenantSvc    *TenantService
	hasher       PasswordHasher
	guard        LoginGuard
	audit        *AuditService
	emailService email.EmailService
	metrics      *metrics.Metrics
	signup       config.SignupConfig
	log          *zap.Logger
	now          func() time.Time
}

func NewAuthService(
	repos *repository.Set,
	sessions *SessionService,
	tenantSvc *TenantService,
	hasher PasswordHasher,
	guard LoginGuard,
	audit *AuditService,
	emailService email.EmailService,
	m *metrics.Metrics,
	signup config.SignupConfig,
	log *zap.Logger,
) *AuthService {
	if guard == nil {
		guard = NoopLoginGuard{}
	}
	return &AuthService{
		users:        repos.Users,
		tenants:      repos.Tenants,
		plans:        repos.Plans,
		sessions:     sessions,
		tenantSvc:    tenantSvc,
		hasher:       hasher,
		guard:        guard,
		audit:        audit,
		emailService: emailService,
		metrics:      m,
		signup:       signup,
		log:          log,
		now:          time.Now,
	}
}

// Login verifies credentials and opens a session. Every credential failure
// returns ErrInvalidCredentials so callers cannot tell which check failed.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*LoginResult, error) {
	email := normalizeEmail(req.Email)

	blocked, err := s.guard.IsBlocked(ctx, email)
	if err != nil {
		s.log.Warn("login guard unavailable", zap.Error(err))
	}
	if blocked {
		s.audit.Record(ctx, AuditEntry{
			Action:  domain.AuditLoginBlocked,
			Details: domain.JSONMap{"email": email},
			Meta:    meta,
		})
		s.metrics.Login("blocked")
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		s.hasher.DummyVerify(req.Password)
		return nil, s.fail(ctx, email, nil, "user not found", meta)
	}

	ok, err := s.hasher.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.log.Error("stored password hash is unusable", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	if !ok {
		return nil, s.fail(ctx, email, user, "invalid password", meta)
	}
	if !user.IsActive {
		return nil, s.fail(ctx, email, user, "user inactive", meta)
	}

	if !user.IsSuperAdmin() && user.TenantID != nil {
		tenant, err := s.tenants.GetByID(ctx, *user.TenantID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, s.fail(ctx, email, user, "clinic not found", meta)
			}
			return nil, err
		}
		if slug := strings.TrimSpace(req.TenantSlug); slug != "" && slug != tenant.Slug {
			return nil, s.fail(ctx, email, user, "clinic mismatch", meta)
		}
		if !tenant.IsActive() {
			s.audit.Record(ctx, AuditEntry{
				Action:   domain.AuditLoginFailed,
				Details:  domain.JSONMap{"email": email, "reason": "clinic " + strings.ToLower(string(tenant.Status))},
				UserID:   &user.ID,
				TenantID: &tenant.ID,
				Meta:     meta,
			})
			s.metrics.Login("suspended")
			return nil, ErrTenantSuspended
		}
	} else if req.TenantSlug != "" && !user.IsSuperAdmin() {
		return nil, s.fail(ctx, email, user, "clinic mismatch", meta)
	}

	result, err := s.openSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Reset(ctx, email); err != nil {
		s.log.Warn("failed to reset failed login counter", zap.Error(err))
	}
	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditLoginSuccess,
		Resource: domain.Resource("user", user.ID),
		Details:  domain.JSONMap{"email": email, "sessionId": result.Session.ID.String()},
		UserID:   &user.ID,
		TenantID: user.TenantID,
		Meta:     meta,
	})
	s.metrics.Login("success")
	return result, nil
}

// fail records a failed attempt and returns the generic credential error
func (s *AuthService) fail(ctx context.Context, email string, user *domain.User, reason string, meta RequestMeta) error {
	if _, err := s.guard.RegisterFailure(ctx, email); err != nil {
		s.log.Warn("failed to register failed login", zap.Error(err))
	}

	entry := AuditEntry{
		Action:  domain.AuditLoginFailed,
		Details: domain.JSONMap{"email": email, "reason": reason},
		Meta:    meta,
	}
	if user != nil {
		entry.UserID = &user.ID
		entry.TenantID = user.TenantID
	}
	s.audit.Record(ctx, entry)
	s.metrics.Login("failure")
	return ErrInvalidCredentials
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User, meta RequestMeta) (*LoginResult, error) {
	token, session, err := s.sessions.CreateSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.log.Warn("failed to update last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	data, err := s.sessions.ValidateSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load new session: %w", err)
	}
	return &LoginResult{Token: token, Session: session, Data: data}, nil
}

// Logout deletes the session behind token
func (s *AuthService) Logout(ctx context.Context, token string, data *SessionData, meta RequestMeta) error {
	if err := s.sessions.RevokeSession(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if data != nil {
		s.audit.Record(ctx, AuditEntry{
			Action:   domain.AuditLogout,
			Resource: domain.Resource("user", data.User.ID),
			UserID:   &data.User.ID,
			TenantID: data.User.TenantID,
			Meta:     meta,
		})
	}
	return nil
}

// ChangePassword replaces the password of the session user and ends all of
// their sessions
func (s *AuthService) ChangePassword(ctx context.Context, data *SessionData, req ChangePasswordRequest, meta RequestMeta) error {
	user, err := s.users.GetByID(ctx, data.User.ID)
	if err != nil {
		return lookupErr(err, ErrUserNotFound)
	}

	ok, err := s.hasher.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil || !ok {
		return invalidField("currentPassword", "Current password is incorrect")
	}
	if req.CurrentPassword == req.NewPassword {
		return invalidField("newPassword", "New password must differ from the current one")
	}

	hashed, err := s.hasher.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return lookupErr(err, ErrUserNotFound)
	}

	if err := s.sessions.RevokeAllUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditPasswordChanged,
		Resource: domain.Resource("user", user.ID),
		UserID:   &user.ID,
		TenantID: user.TenantID,
		Meta:     meta,
	})

	if s.emailService != nil {
		to, name := user.Email, user.Name
		go func() {
			if err := s.emailService.SendPasswordChangedEmail(context.Background(), to, name); err != nil {
				s.log.Warn("failed to send password changed email", zap.String("to", to), zap.Error(err))
			}
		}()
	}
	return nil
}

// Signup creates a clinic on the default plan with its first admin and logs
// the admin in
func (s *AuthService) Signup(ctx context.Context, req SignupRequest, meta RequestMeta) (*LoginResult, error) {
	if !s.signup.Enabled {
		return nil, ErrSignupDisabled
	}

	plan, err := s.plans.GetBySlug(ctx, s.signup.DefaultPlan)
	if err != nil {
		return nil, lookupErr(err, ErrPlanNotFound)
	}

	created, err := s.tenantSvc.Create(ctx, Actor{Meta: meta}, CreateTenantRequest{
		Name:   req.ClinicName,
		Slug:   req.ClinicSlug,
		PlanID: plan.ID.String(),
		Admin: &TenantAdminRequest{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	result, err := s.openSession(ctx, created.Admin, meta)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditLoginSuccess,
		Resource: domain.Resource("user", created.Admin.ID),
		Details:  domain.JSONMap{"email": created.Admin.Email, "sessionId": result.Session.ID.String(), "signup": true},
		UserID:   &created.Admin.ID,
		TenantID: &created.Tenant.ID,
		Meta:     meta,
	})
	s.metrics.Login("success")
	return result, nil
}

// SetupRequired reports whether the console still lacks a super admin
func (s *AuthService) SetupRequired(ctx context.Context) (bool, error) {
	exists, err := s.users.SuperAdminExists(ctx)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// SetupSuperAdmin creates the first super admin. It is refused once one exists.
func (s *AuthService) SetupSuperAdmin(ctx context.Context, req SetupRequest, meta RequestMeta) (*domain.User, error) {
	exists, err := s.users.SuperAdminExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrSetupCompleted
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
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, writeErr(err, ErrEmailTaken)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditSuperAdminCreated,
		Resource: domain.Resource("user", user.ID),
		Details:  domain.JSONMap{"email": user.Email},
		UserID:   &user.ID,
		Meta:     meta,
	})
	return user, nil
}
