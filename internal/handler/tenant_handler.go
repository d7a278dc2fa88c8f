package handler

import (
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type TenantHandler struct {
	tenantService        *service.TenantService
	tenantProductService *service.TenantProductService
	validator            *validator.Validator
}

func NewTenantHandler(tenantService *service.TenantService, tenantProductService *service.TenantProductService, validator *validator.Validator) *TenantHandler {
	return &TenantHandler{
		tenantService:        tenantService,
		tenantProductService: tenantProductService,
		validator:            validator,
	}
}

// CreateTenant creates a clinic, optionally with its first admin (admin only)
// POST /api/admin/tenants
func (h *TenantHandler) CreateTenant(c *fiber.Ctx) error {
	var req service.CreateTenantRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	created, err := h.tenantService.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListTenants lists clinics (admin only)
// GET /api/admin/tenants?status=&planId=&search=
func (h *TenantHandler) ListTenants(c *fiber.Ctx) error {
	p := pagination(c)

	tenants, total, err := h.tenantService.List(c.UserContext(), service.TenantListFilter{
		Status: c.Query("status"),
		PlanID: c.Query("planId"),
		Search: c.Query("search"),
		Limit:  p.Limit,
		Offset: p.Offset(),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"tenants":    tenants,
		"pagination": p.body(total),
	})
}

// GetTenant gets a specific clinic by ID (admin only)
// GET /api/admin/tenants/:id
func (h *TenantHandler) GetTenant(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	tenant, err := h.tenantService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tenant)
}

// UpdateTenant updates a clinic (admin only)
// PUT /api/admin/tenants/:id
func (h *TenantHandler) UpdateTenant(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req service.UpdateTenantRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	tenant, err := h.tenantService.Update(c.UserContext(), actor(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tenant)
}

// DeleteTenant deletes a clinic without regular users (admin only)
// DELETE /api/admin/tenants/:id
func (h *TenantHandler) DeleteTenant(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.tenantService.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Tenant deleted successfully",
	})
}

// SyncProducts aligns the clinic's products with its plan (admin only)
// POST /api/admin/tenants/:id/products/sync
func (h *TenantHandler) SyncProducts(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.tenantProductService.SyncWithPlan(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ListProducts lists every product with the clinic's activation (admin only)
// GET /api/admin/tenants/:id/products
func (h *TenantHandler) ListProducts(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	products, err := h.tenantProductService.List(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"products": products,
		"total":    len(products),
	})
}

// UpdateProduct activates, deactivates or configures a product for the
// clinic (admin only)
// PUT /api/admin/tenants/:id/products/:productId
func (h *TenantHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	productID, err := parseID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}

	var req service.UpdateTenantProductRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	tp, err := h.tenantProductService.Update(c.UserContext(), actor(c), id, productID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tp)
}

// RemoveProduct removes a product from the clinic (admin only)
// DELETE /api/admin/tenants/:id/products/:productId
func (h *TenantHandler) RemoveProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	productID, err := parseID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.tenantProductService.Remove(c.UserContext(), actor(c), id, productID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product removed from tenant",
	})
}
