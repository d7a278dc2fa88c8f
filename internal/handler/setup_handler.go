package handler

import (
	"errors"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type SetupHandler struct {
	authService *service.AuthService
	validator   *validator.Validator
}

func NewSetupHandler(authService *service.AuthService, validator *validator.Validator) *SetupHandler {
	return &SetupHandler{
		authService: authService,
		validator:   validator,
	}
}

// Status reports whether the first super admin still has to be created
// GET /api/setup/status
func (h *SetupHandler) Status(c *fiber.Ctx) error {
	required, err := h.authService.SetupRequired(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"setupRequired": required,
	})
}

// CreateSuperAdmin creates the first super admin user
// This endpoint only works if no super admin exists yet
// POST /api/setup/super-admin
func (h *SetupHandler) CreateSuperAdmin(c *fiber.Ctx) error {
	var req service.SetupRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.SetupSuperAdmin(c.UserContext(), req, requestMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrSetupCompleted) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Super admin already exists. Setup is complete.",
			})
		}
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Super admin created successfully",
		"user":    user,
	})
}
