package handler

import (
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuditHandler struct {
	auditService *service.AuditService
	statsService *service.StatsService
}

func NewAuditHandler(auditService *service.AuditService, statsService *service.StatsService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		statsService: statsService,
	}
}

// ListAuditLogs returns audit entries, newest first (admin only)
// GET /api/admin/audit-logs?action=&userId=&tenantId=
func (h *AuditHandler) ListAuditLogs(c *fiber.Ctx) error {
	p := pagination(c)
	filter := repository.AuditFilter{Limit: p.Limit, Offset: p.Offset()}

	if action := c.Query("action"); action != "" {
		a := domain.AuditAction(action)
		filter.Action = &a
	}
	for param, dst := range map[string]**uuid.UUID{"userId": &filter.UserID, "tenantId": &filter.TenantID} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return respondError(c, &service.InputError{Field: param, Message: "Invalid " + param})
		}
		*dst = &id
	}

	logs, total, err := h.auditService.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"logs":       logs,
		"pagination": p.body(total),
	})
}

// Stats returns console wide counters (admin only)
// GET /api/admin/stats
func (h *AuditHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.statsService.Get(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
