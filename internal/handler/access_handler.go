package handler

import (
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type AccessHandler struct {
	accessService *service.AccessService
	validator     *validator.Validator
}

func NewAccessHandler(accessService *service.AccessService, validator *validator.Validator) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		validator:     validator,
	}
}

// Validate answers whether a user or clinic may use a product. Products call
// it server to server.
// POST /api/access/validate
func (h *AccessHandler) Validate(c *fiber.Ctx) error {
	var req service.AccessQuery
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.accessService.Resolve(c.UserContext(), req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	switch {
	case result.HasAccess:
	case result.Code.IsLookupFailure():
		status = fiber.StatusNotFound
	default:
		status = fiber.StatusForbidden
	}
	return c.Status(status).JSON(result)
}
