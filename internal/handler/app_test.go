package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/config"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/handler/middleware"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository/memory"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/email"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/hash"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/jwt"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/metrics"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassword = "correct-horse-battery"
	cookieName   = "session"
)

type testApp struct {
	app     *fiber.App
	repos   *repository.Set
	tenants *service.TenantService
	hasher  *hash.Hasher
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	log := zap.NewNop()
	repos := memory.NewSet()
	hasher := hash.NewHasher(bcrypt.MinCost)
	m := metrics.New("caleidoscopio-manager-test")
	signer := jwt.NewTokenService("test-secret-that-is-long-enough-for-hs256", time.Hour, "caleidoscopio-manager")
	mailer := email.NewNoopEmailService(log)
	validate := validator.NewValidator()

	auditService := service.NewAuditService(repos.AuditLogs, log)
	sessionService := service.NewSessionService(repos, 24*time.Hour, log)
	accessService := service.NewAccessService(repos, auditService, m, log)
	ssoService := service.NewSSOService(repos, accessService, signer, auditService, m, "http://manager.test", log)
	tenantProductService := service.NewTenantProductService(repos, ssoService, auditService)
	tenantService := service.NewTenantService(repos, tenantProductService, ssoService, hasher, auditService, mailer, log)
	authService := service.NewAuthService(repos, sessionService, tenantService, hasher, service.NoopLoginGuard{}, auditService, mailer, m,
		config.SignupConfig{Enabled: true, DefaultPlan: "basico"}, log)

	cookie := CookieConfig{Name: cookieName, MaxAge: 24 * time.Hour}
	handlers := Handlers{
		Auth:    NewAuthHandler(authService, sessionService, validate, cookie),
		Setup:   NewSetupHandler(authService, validate),
		Health:  NewHealthHandler(nil, nil),
		Access:  NewAccessHandler(accessService, validate),
		Product: NewProductHandler(service.NewProductService(repos, accessService, auditService), ssoService, validate),
		Tenant:  NewTenantHandler(tenantService, tenantProductService, validate),
		Plan:    NewPlanHandler(service.NewPlanService(repos, ssoService, auditService), validate),
		User:    NewUserHandler(service.NewUserService(repos, sessionService, ssoService, hasher, auditService), validate),
		Audit:   NewAuditHandler(auditService, service.NewStatsService(repos)),
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler, CaseSensitive: true})
	app.Use(requestid.New())
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.MetricsMiddleware(m))

	SetupRoutes(app, handlers, middleware.Gatekeeper(middleware.GatekeeperConfig{
		Sessions:   sessionService,
		Policy:     middleware.DefaultPolicy(),
		CookieName: cookieName,
	}), adaptor.HTTPHandler(m.Handler()))

	return &testApp{app: app, repos: repos, tenants: tenantService, hasher: hasher}
}

// do sends a request, with the session cookie when session is not empty
func (a *testApp) do(t *testing.T, method, path string, body interface{}, session string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: session})
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sessionCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	return ""
}

// login logs in through the API and returns the session cookie value
func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/auth/login", fiber.Map{"email": email, "password": testPassword}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := sessionCookie(resp)
	require.NotEmpty(t, token)
	return token
}

func (a *testApp) superAdmin(t *testing.T) *domain.User {
	t.Helper()
	hashed, err := a.hasher.HashPassword(testPassword)
	require.NoError(t, err)

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        "root@caleidoscopio.app",
		Name:         "Root",
		PasswordHash: hashed,
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, a.repos.Users.Create(context.Background(), user))
	return user
}

type clinic struct {
	plan        *domain.Plan
	educational *domain.Product
	ecommerce   *domain.Product
	tenant      *domain.Tenant
	admin       *domain.User
}

// clinic seeds plan "premium" with products educational and ecommerce and a
// clinic on it whose admin is admin@clinic.com
func (a *testApp) clinic(t *testing.T) clinic {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	plan := &domain.Plan{ID: uuid.New(), Name: "Premium", Slug: "premium", MaxUsers: 10, IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, a.repos.Plans.Create(ctx, plan))

	baseURL := "https://edu.example.com/sso"
	products := make([]*domain.Product, 0, 2)
	for _, p := range []struct {
		slug    string
		baseURL *string
	}{{"educational", &baseURL}, {"ecommerce", nil}} {
		product := &domain.Product{
			ID:            uuid.New(),
			Name:          p.slug,
			Slug:          p.slug,
			BaseURL:       p.baseURL,
			DefaultConfig: domain.JSONMap{},
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		require.NoError(t, a.repos.Products.Create(ctx, product))
		require.NoError(t, a.repos.PlanProducts.Upsert(ctx, &domain.PlanProduct{
			ID:        uuid.New(),
			PlanID:    plan.ID,
			ProductID: product.ID,
			Config:    domain.JSONMap{},
			IsActive:  true,
			CreatedAt: now,
		}))
		products = append(products, product)
	}

	created, err := a.tenants.Create(ctx, service.Actor{}, service.CreateTenantRequest{
		Name:   "Clinic T",
		Slug:   "clinic-t",
		PlanID: plan.ID.String(),
		Admin: &service.TenantAdminRequest{
			Name:     "Clinic Admin",
			Email:    "admin@clinic.com",
			Password: testPassword,
		},
	})
	require.NoError(t, err)

	return clinic{
		plan:        plan,
		educational: products[0],
		ecommerce:   products[1],
		tenant:      created.Tenant,
		admin:       created.Admin,
	}
}
