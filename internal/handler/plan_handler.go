package handler

import (
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type PlanHandler struct {
	planService *service.PlanService
	validator   *validator.Validator
}

func NewPlanHandler(planService *service.PlanService, validator *validator.Validator) *PlanHandler {
	return &PlanHandler{
		planService: planService,
		validator:   validator,
	}
}

// POST /api/admin/plans
func (h *PlanHandler) Create(c *fiber.Ctx) error {
	var req service.CreatePlanRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	plan, err := h.planService.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// GET /api/admin/plans?active=true
func (h *PlanHandler) List(c *fiber.Ctx) error {
	plans, err := h.planService.List(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"plans": plans,
		"total": len(plans),
	})
}

// Get returns a plan with its products
// GET /api/admin/plans/:id
func (h *PlanHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	plan, err := h.planService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(plan)
}

// PUT /api/admin/plans/:id
func (h *PlanHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req service.UpdatePlanRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	plan, err := h.planService.Update(c.UserContext(), actor(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(plan)
}

// Delete deletes a plan no clinic is on
// DELETE /api/admin/plans/:id
func (h *PlanHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.planService.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Plan deleted successfully",
	})
}

// SetProduct includes a product in the plan or changes its plan config
// PUT /api/admin/plans/:id/products/:productId
func (h *PlanHandler) SetProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	productID, err := parseID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}

	var req service.SetPlanProductRequest
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, err)
	}

	pp, err := h.planService.SetProduct(c.UserContext(), actor(c), id, productID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pp)
}

// DELETE /api/admin/plans/:id/products/:productId
func (h *PlanHandler) RemoveProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	productID, err := parseID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.planService.RemoveProduct(c.UserContext(), actor(c), id, productID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product removed from plan",
	})
}
