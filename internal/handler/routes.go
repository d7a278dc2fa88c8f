package handler

import (
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth    *AuthHandler
	Setup   *SetupHandler
	Health  *HealthHandler
	Access  *AccessHandler
	Product *ProductHandler
	Tenant  *TenantHandler
	Plan    *PlanHandler
	User    *UserHandler
	Audit   *AuditHandler
}

// SetupRoutes registers every route. Public routes are registered ahead of
// the gatekeeper so they answer before it runs; everything after it needs a
// valid session.
func SetupRoutes(app *fiber.App, h Handlers, gatekeeper fiber.Handler, metricsHandler fiber.Handler) {
	// Health checks (public)
	app.Get("/health", h.Health.Health)
	app.Get("/ready", h.Health.Ready)
	if metricsHandler != nil {
		app.Get("/metrics", metricsHandler)
	}

	api := app.Group("/api")

	// Product facing contract (public)
	api.Post("/access/validate", h.Access.Validate)
	api.Get("/products/sso/:slug", h.Product.ValidateToken)

	// Auth routes (public)
	api.Post("/auth/login", h.Auth.Login)
	api.Post("/auth/signup", h.Auth.Signup)
	api.Post("/auth/logout", h.Auth.Logout)

	// First run
	api.Get("/setup/status", h.Setup.Status)
	api.Post("/setup/super-admin", h.Setup.CreateSuperAdmin)

	app.Use(gatekeeper)

	// Session routes
	auth := api.Group("/auth")
	auth.Get("/me", h.Auth.Me)
	auth.Put("/password", h.Auth.ChangePassword)
	auth.Get("/sessions", h.Auth.ListSessions)
	auth.Delete("/sessions/:id", h.Auth.RevokeSession)

	api.Get("/products", h.Product.ListForUser)
	api.Post("/products/sso/:slug", h.Product.IssueToken)

	// User management (capability checked per target)
	users := api.Group("/users")
	users.Get("/", h.User.ListUsers)
	users.Post("/", h.User.CreateUser)
	users.Get("/:id", h.User.GetUser)
	users.Put("/:id", h.User.UpdateUser)
	users.Delete("/:id", h.User.DeactivateUser)

	// Admin routes (the gatekeeper lets only super admins through)
	admin := api.Group("/admin")

	tenants := admin.Group("/tenants")
	tenants.Post("/", h.Tenant.CreateTenant)
	tenants.Get("/", h.Tenant.ListTenants)
	tenants.Get("/:id", h.Tenant.GetTenant)
	tenants.Put("/:id", h.Tenant.UpdateTenant)
	tenants.Delete("/:id", h.Tenant.DeleteTenant)
	tenants.Post("/:id/products/sync", h.Tenant.SyncProducts)
	tenants.Get("/:id/products", h.Tenant.ListProducts)
	tenants.Put("/:id/products/:productId", h.Tenant.UpdateProduct)
	tenants.Delete("/:id/products/:productId", h.Tenant.RemoveProduct)

	plans := admin.Group("/plans")
	plans.Post("/", h.Plan.Create)
	plans.Get("/", h.Plan.List)
	plans.Get("/:id", h.Plan.Get)
	plans.Put("/:id", h.Plan.Update)
	plans.Delete("/:id", h.Plan.Delete)
	plans.Put("/:id/products/:productId", h.Plan.SetProduct)
	plans.Delete("/:id/products/:productId", h.Plan.RemoveProduct)

	products := admin.Group("/products")
	products.Post("/", h.Product.Create)
	products.Get("/", h.Product.List)
	products.Get("/:id", h.Product.Get)
	products.Put("/:id", h.Product.Update)
	products.Delete("/:id", h.Product.Delete)

	admin.Get("/audit-logs", h.Audit.ListAuditLogs)
	admin.Get("/stats", h.Audit.Stats)
}
