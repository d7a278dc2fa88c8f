package service

import (
	"context"
	"testing"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/config"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository/memory"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/email"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/hash"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/jwt"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse-battery"

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	ctx     context.Context
	clock   *clock
	repos   *repository.Set
	hasher  *hash.Hasher
	metrics *metrics.Metrics

	audit          *AuditService
	sessions       *SessionService
	access         *AccessService
	sso            *SSOService
	tenantProducts *TenantProductService
	tenants        *TenantService
	plans          *PlanService
	products       *ProductService
	users          *UserService
	auth           *AuthService
	stats          *StatsService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	guard  LoginGuard
	signup config.SignupConfig
}

func withGuard(g LoginGuard) fixtureOption {
	return func(c *fixtureConfig) { c.guard = g }
}

func withSignup(enabled bool) fixtureOption {
	return func(c *fixtureConfig) { c.signup = config.SignupConfig{Enabled: enabled, DefaultPlan: "basico"} }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := fixtureConfig{guard: NoopLoginGuard{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	log := zap.NewNop()
	clk := &clock{t: time.Now().UTC().Truncate(time.Second)}
	repos := memory.NewSet()
	hasher := hash.NewHasher(bcrypt.MinCost)
	m := metrics.New("caleidoscopio-manager-test")
	signer := jwt.NewTokenService("test-secret-that-is-long-enough-for-hs256", time.Hour, "caleidoscopio-manager")
	mailer := email.NewNoopEmailService(log)

	f := &fixture{
		ctx:     context.Background(),
		clock:   clk,
		repos:   repos,
		hasher:  hasher,
		metrics: m,
	}

	f.audit = NewAuditService(repos.AuditLogs, log)
	f.sessions = NewSessionService(repos, 7*24*time.Hour, log)
	f.access = NewAccessService(repos, f.audit, m, log)
	f.sso = NewSSOService(repos, f.access, signer, f.audit, m, "http://manager.test/", log)
	f.tenantProducts = NewTenantProductService(repos, f.sso, f.audit)
	f.tenants = NewTenantService(repos, f.tenantProducts, f.sso, hasher, f.audit, mailer, log)
	f.plans = NewPlanService(repos, f.sso, f.audit)
	f.products = NewProductService(repos, f.access, f.audit)
	f.users = NewUserService(repos, f.sessions, f.sso, hasher, f.audit)
	f.auth = NewAuthService(repos, f.sessions, f.tenants, hasher, cfg.guard, f.audit, mailer, m, cfg.signup, log)
	f.stats = NewStatsService(repos)

	now := clk.Now
	f.audit.now = now
	f.sessions.now = now
	f.access.now = now
	f.sso.now = now
	f.tenantProducts.now = now
	f.tenants.now = now
	f.plans.now = now
	f.products.now = now
	f.users.now = now
	f.auth.now = now
	f.stats.now = now

	return f
}

func (f *fixture) plan(t *testing.T, slug string, maxUsers int) *domain.Plan {
	t.Helper()
	plan := &domain.Plan{
		ID:        uuid.New(),
		Name:      slug,
		Slug:      slug,
		MaxUsers:  maxUsers,
		Price:     decimal.NewNullDecimal(decimal.RequireFromString("99.90")),
		IsActive:  true,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.repos.Plans.Create(f.ctx, plan))
	return plan
}

func (f *fixture) product(t *testing.T, slug string, baseURL *string, defaults domain.JSONMap) *domain.Product {
	t.Helper()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          slug,
		Slug:          slug,
		BaseURL:       baseURL,
		DefaultConfig: defaults,
		IsActive:      true,
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	require.NoError(t, f.repos.Products.Create(f.ctx, product))
	return product
}

// include adds an active product to a plan
func (f *fixture) include(t *testing.T, plan *domain.Plan, product *domain.Product, cfg domain.JSONMap) {
	t.Helper()
	require.NoError(t, f.repos.PlanProducts.Upsert(f.ctx, &domain.PlanProduct{
		ID:        uuid.New(),
		PlanID:    plan.ID,
		ProductID: product.ID,
		Config:    cfg,
		IsActive:  true,
		CreatedAt: f.clock.Now(),
	}))
}

// tenant creates an active tenant on plan through the service, so its
// products are synced
func (f *fixture) tenant(t *testing.T, slug string, plan *domain.Plan) *domain.Tenant {
	t.Helper()
	created, err := f.tenants.Create(f.ctx, Actor{}, CreateTenantRequest{
		Name:   "Clinic " + slug,
		Slug:   slug,
		PlanID: plan.ID.String(),
	})
	require.NoError(t, err)
	return created.Tenant
}

func (f *fixture) user(t *testing.T, email string, role domain.Role, tenantID *uuid.UUID) *domain.User {
	t.Helper()
	hashed, err := f.hasher.HashPassword(testPassword)
	require.NoError(t, err)

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test " + string(role),
		PasswordHash: hashed,
		Role:         role,
		TenantID:     tenantID,
		IsActive:     true,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.repos.Users.Create(f.ctx, user))
	return user
}

// login opens a session for user and returns its data
func (f *fixture) login(t *testing.T, user *domain.User) *SessionData {
	t.Helper()
	token, _, err := f.sessions.CreateSession(f.ctx, user.ID, RequestMeta{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	data, err := f.sessions.ValidateSession(f.ctx, token)
	require.NoError(t, err)
	return data
}

func (f *fixture) auditActions(t *testing.T, action domain.AuditAction) []*domain.AuditLog {
	t.Helper()
	logs, _, err := f.repos.AuditLogs.List(f.ctx, repository.AuditFilter{Action: &action})
	require.NoError(t, err)
	return logs
}

func actorOf(user *domain.User) Actor {
	return Actor{UserID: user.ID, Role: user.Role, TenantID: user.TenantID}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// clinicSetup is the premium clinic of the end to end scenarios
type clinicSetup struct {
	plan    *domain.Plan
	product *domain.Product
	other   *domain.Product
	tenant  *domain.Tenant
	admin   *domain.User
}

func (f *fixture) clinic(t *testing.T) clinicSetup {
	t.Helper()
	plan := f.plan(t, "premium", 10)
	educational := f.product(t, "educational", strPtr("https://edu.example.com/sso?lang=pt"), domain.JSONMap{"theme": "light", "maxCourses": 5})
	ecommerce := f.product(t, "ecommerce", nil, domain.JSONMap{})
	f.include(t, plan, educational, domain.JSONMap{"maxCourses": 20})
	f.include(t, plan, ecommerce, domain.JSONMap{})

	tenant := f.tenant(t, "clinic-t", plan)
	admin := f.user(t, "admin@clinic.com", domain.RoleAdmin, &tenant.ID)
	return clinicSetup{plan: plan, product: educational, other: ecommerce, tenant: tenant, admin: admin}
}
