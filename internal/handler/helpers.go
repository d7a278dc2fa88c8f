package handler

import (
	"errors"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/service"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/logger"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errBadBody = errors.New("Invalid request body")

// bind parses the request body into req and validates it
func bind(c *fiber.Ctx, v *validator.Validator, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errBadBody
	}
	return v.Validate(req)
}

// requestMeta extracts the caller details recorded on sessions and audits
func requestMeta(c *fiber.Ctx) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// sessionData returns the identity stored by the gatekeeper. Routes behind
// the gatekeeper always have one.
func sessionData(c *fiber.Ctx) *service.SessionData {
	data, _ := c.Locals("session").(*service.SessionData)
	return data
}

func actor(c *fiber.Ctx) service.Actor {
	return service.NewActor(sessionData(c), requestMeta(c))
}

// parseID reads a uuid route parameter
func parseID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, &service.InputError{Field: name, Message: "Invalid " + name}
	}
	return id, nil
}

type page struct {
	Number int
	Limit  int
}

func (p page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// pagination reads page/limit query parameters, limit capped at 100
func pagination(c *fiber.Ctx) page {
	limit := c.QueryInt("limit", 20)
	number := c.QueryInt("page", 1)

	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if number < 1 {
		number = 1
	}
	return page{Number: number, Limit: limit}
}

func (p page) body(total int) fiber.Map {
	return fiber.Map{
		"total":       total,
		"page":        p.Number,
		"limit":       p.Limit,
		"total_pages": (total + p.Limit - 1) / p.Limit,
	}
}

// respondError maps service errors to HTTP responses. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validationErr *validator.ValidationError
		inputErr      *service.InputError
		conflictErr   *service.ConflictError
		deniedErr     *service.AccessDeniedError
	)

	switch {
	case errors.Is(err, errBadBody):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})

	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  validationErr.Error(),
			"fields": validationErr.Fields,
		})

	case errors.As(err, &inputErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": inputErr.Message,
			"field": inputErr.Field,
		})

	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": conflictErr.Message,
			"count": conflictErr.Count,
		})

	case errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})

	case errors.Is(err, service.ErrSessionInvalid):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})

	case errors.Is(err, service.ErrInvalidOrExpiredToken), errors.Is(err, service.ErrTokenProductMismatch):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})

	case errors.As(err, &deniedErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": deniedErr.Message,
			"code":  deniedErr.Reason,
		})

	case errors.Is(err, service.ErrTenantSuspended):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Clinic is suspended",
			"code":  "TENANT_SUSPENDED",
		})

	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})

	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, service.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	logger.FromContext(c.UserContext()).Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

// ErrorHandler renders errors that escape handlers, such as fiber's own 404
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return respondError(c, err)
}
