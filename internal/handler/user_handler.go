package handler

import (
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *service.UserService
	validator   *validator.Validator
}

func NewUserHandler(userService *service.UserService, validator *validator.Validator) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator,
	}
}

// ListUsers returns users visible to the caller. Clinic users only see
// their own clinic.
// GET /api/users?tenantId=&search=
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	p := pagination(c)

	users, total, err := h.userService.List(c.UserContext(), actor(c), service.UserListFilter{
		TenantID: c.Query("tenantId"),
		Search:   c.Query("search"),
		Limit:    p.Limit,
		Offset:   p.Offset(),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"users":      users,
		"pagination": p.body(total),
	})
}

// GetUser returns a specific user by ID
// GET /api/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.userService.Get(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// CreateUser creates a user, within the clinic user limit
// POST /api/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.userService.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser updates a user
// PUT /api/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req service.UpdateUserRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.userService.Update(c.UserContext(), actor(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// DeactivateUser deactivates a user, ending its sessions and product tokens
// DELETE /api/users/:id
func (h *UserHandler) DeactivateUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.userService.Deactivate(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User deactivated successfully",
	})
}
