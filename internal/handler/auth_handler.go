package handler

import (
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/handler/middleware"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

type AuthHandler struct {
	authService    *service.AuthService
	sessionService *service.SessionService
	validator      *validator.Validator
	cookie         CookieConfig
}

func NewAuthHandler(authService *service.AuthService, sessionService *service.SessionService, validator *validator.Validator, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		validator:      validator,
		cookie:         cookie,
	}
}

func (h *AuthHandler) startSession(c *fiber.Ctx, status int, result *service.LoginResult) error {
	middleware.SetSessionCookie(c, h.cookie.Name, result.Token, h.cookie.MaxAge, h.cookie.Secure)
	return c.Status(status).JSON(fiber.Map{
		"user":      result.Data.User,
		"tenant":    result.Data.Tenant,
		"plan":      result.Data.Plan,
		"expiresAt": result.Session.ExpiresAt,
	})
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.authService.Login(c.UserContext(), req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return h.startSession(c, fiber.StatusOK, result)
}

// Logout ends the current session. It succeeds without a session too.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(h.cookie.Name)
	if token != "" {
		data, err := h.sessionService.ValidateSession(c.UserContext(), token)
		if err != nil {
			data = nil
		}
		if err := h.authService.Logout(c.UserContext(), token, data, requestMeta(c)); err != nil {
			return respondError(c, err)
		}
	}

	middleware.ClearSessionCookie(c, h.cookie.Name, h.cookie.Secure)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// Me returns the session user with its clinic and plan
// GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(sessionData(c))
}

// Signup creates a clinic with its first admin and logs the admin in
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req service.SignupRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.authService.Signup(c.UserContext(), req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return h.startSession(c, fiber.StatusCreated, result)
}

// ChangePassword changes the password of the session user. All sessions,
// this one included, are ended.
// PUT /api/auth/password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req service.ChangePasswordRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.authService.ChangePassword(c.UserContext(), sessionData(c), req, requestMeta(c)); err != nil {
		return respondError(c, err)
	}

	middleware.ClearSessionCookie(c, h.cookie.Name, h.cookie.Secure)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}

// ListSessions returns the live sessions of the session user
// GET /api/auth/sessions
func (h *AuthHandler) ListSessions(c *fiber.Ctx) error {
	data := sessionData(c)
	sessions, err := h.sessionService.ListUserSessions(c.UserContext(), data.User.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"sessions": sessions,
		"current":  data.Session.ID,
		"total":    len(sessions),
	})
}

// RevokeSession ends one session of the session user
// DELETE /api/auth/sessions/:id
func (h *AuthHandler) RevokeSession(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	data := sessionData(c)
	if err := h.sessionService.RevokeSessionByID(c.UserContext(), data.User.ID, id); err != nil {
		return respondError(c, err)
	}
	if id == data.Session.ID {
		middleware.ClearSessionCookie(c, h.cookie.Name, h.cookie.Secure)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
