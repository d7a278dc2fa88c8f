package handler

import (
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	productService *service.ProductService
	ssoService     *service.SSOService
	validator      *validator.Validator
}

func NewProductHandler(productService *service.ProductService, ssoService *service.SSOService, validator *validator.Validator) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		ssoService:     ssoService,
		validator:      validator,
	}
}

// ListForUser lists active products with the session user's access to each
// GET /api/products
func (h *ProductHandler) ListForUser(c *fiber.Ctx) error {
	products, err := h.productService.ListForUser(c.UserContext(), sessionData(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"products": products,
		"total":    len(products),
	})
}

// IssueToken issues a single product SSO token for the session user
// POST /api/products/sso/:slug
func (h *ProductHandler) IssueToken(c *fiber.Ctx) error {
	issued, err := h.ssoService.IssueToken(c.UserContext(), sessionData(c), c.Params("slug"), requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(issued)
}

// ValidateToken lets a product exchange an SSO token for the user identity
// GET /api/products/sso/:slug?token=
func (h *ProductHandler) ValidateToken(c *fiber.Ctx) error {
	result, err := h.ssoService.ValidateToken(c.UserContext(), c.Params("slug"), c.Query("token"), requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// Create creates a product
// POST /api/admin/products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.productService.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// List lists products; ?active=true hides inactive ones
// GET /api/admin/products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.productService.List(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"products": products,
		"total":    len(products),
	})
}

// Get returns one product
// GET /api/admin/products/:id
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.productService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

// Update updates a product
// PUT /api/admin/products/:id
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req service.UpdateProductRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.productService.Update(c.UserContext(), actor(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

// Delete deactivates a product. Products are never hard deleted.
// DELETE /api/admin/products/:id
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.productService.Deactivate(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Product deactivated successfully",
	})
}
