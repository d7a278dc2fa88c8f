package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Decision is the outcome of a gatekeeper check
type Decision int

const (
	Allow Decision = iota
	Login
	Unauthorized
	Suspended
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Login:
		return "login"
	case Unauthorized:
		return "unauthorized"
	case Suspended:
		return "suspended"
	}
	return "unknown"
}

// Policy lists the path prefixes that skip the session check and the ones
// reserved to super admins
type Policy struct {
	PublicPrefixes []string
	AdminPrefixes  []string
}

// DefaultPolicy is the route policy of the console
func DefaultPolicy() Policy {
	return Policy{
		PublicPrefixes: []string{
			"/health",
			"/ready",
			"/metrics",
			"/api/auth/login",
			"/api/auth/logout",
			"/api/auth/signup",
			"/api/setup",
			"/api/access/validate",
			"/login",
			"/signup",
			"/setup",
			"/unauthorized",
			"/tenant-suspended",
		},
		AdminPrefixes: []string{"/api/admin", "/admin"},
	}
}

// IsPublic reports whether path needs no session
func (p Policy) IsPublic(path string) bool {
	return matchesAny(path, p.PublicPrefixes)
}

func (p Policy) isAdmin(path string) bool {
	return matchesAny(path, p.AdminPrefixes)
}

// matchesAny matches whole path segments, ignoring case: "/api/admin" covers
// "/api/admin/tenants" and "/API/Admin" but not "/api/administrator"
func matchesAny(path string, prefixes []string) bool {
	path = strings.ToLower(path)
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// Evaluate decides what happens to a request for path made with session.
// A nil session means no valid session was presented.
func Evaluate(path string, session *service.SessionData, policy Policy) Decision {
	if policy.IsPublic(path) {
		return Allow
	}
	if session == nil || session.User == nil {
		return Login
	}
	if session.IsSuperAdmin() {
		return Allow
	}
	if policy.isAdmin(path) {
		return Unauthorized
	}
	if session.Tenant != nil && !session.Tenant.IsActive() {
		return Suspended
	}
	return Allow
}

// SessionValidator is implemented by *service.SessionService
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*service.SessionData, error)
}

type GatekeeperConfig struct {
	Sessions   SessionValidator
	Policy     Policy
	CookieName string
	Secure     bool
}

// Gatekeeper enforces Policy on every request using the session cookie.
// On Allow it stores the identity in fiber.Locals.
func Gatekeeper(cfg GatekeeperConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if cfg.Policy.IsPublic(path) {
			return c.Next()
		}

		var data *service.SessionData
		if token := c.Cookies(cfg.CookieName); token != "" {
			var err error
			data, err = cfg.Sessions.ValidateSession(c.UserContext(), token)
			if err != nil {
				if !errors.Is(err, service.ErrSessionInvalid) {
					logger.FromContext(c.UserContext()).Error("session lookup failed", zap.Error(err))
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error": "Internal server error",
					})
				}
				ClearSessionCookie(c, cfg.CookieName, cfg.Secure)
				data = nil
			}
		}

		switch Evaluate(path, data, cfg.Policy) {
		case Login:
			return deny(c, fiber.StatusUnauthorized, "Unauthorized", "", "/login")
		case Unauthorized:
			return deny(c, fiber.StatusForbidden, "Forbidden: super admin only", "", "/unauthorized")
		case Suspended:
			return deny(c, fiber.StatusForbidden, "Clinic is suspended", "TENANT_SUSPENDED", "/tenant-suspended")
		}

		c.Locals("user_id", data.User.ID)
		c.Locals("user_role", data.User.Role)
		if data.Tenant != nil {
			c.Locals("tenant_id", data.Tenant.ID)
			c.Locals("tenant_slug", data.Tenant.Slug)
		}
		c.Locals("session", data)
		return c.Next()
	}
}

// deny renders JSON for API paths and redirects browsers elsewhere
func deny(c *fiber.Ctx, status int, message, code, redirect string) error {
	if !strings.HasPrefix(strings.ToLower(c.Path()), "/api/") {
		return c.Redirect(redirect, fiber.StatusFound)
	}
	body := fiber.Map{"error": message}
	if code != "" {
		body["code"] = code
	}
	return c.Status(status).JSON(body)
}

// SetSessionCookie writes the session cookie
func SetSessionCookie(c *fiber.Ctx, name, token string, maxAge time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie in the browser
func ClearSessionCookie(c *fiber.Ctx, name string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
