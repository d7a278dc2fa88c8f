package service

import (
	"errors"
	"fmt"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
)

// Base errors. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrTenantNotFound        = fmt.Errorf("tenant %w", ErrNotFound)
	ErrPlanNotFound          = fmt.Errorf("plan %w", ErrNotFound)
	ErrProductNotFound       = fmt.Errorf("product %w", ErrNotFound)
	ErrSessionNotFound       = fmt.Errorf("session %w", ErrNotFound)
	ErrTenantProductNotFound = fmt.Errorf("tenant product %w", ErrNotFound)
	ErrPlanProductNotFound   = fmt.Errorf("plan product %w", ErrNotFound)

	ErrEmailTaken = fmt.Errorf("email %w", ErrConflict)
	ErrSlugTaken  = fmt.Errorf("slug %w", ErrConflict)
)

// RequestMeta carries caller details recorded on sessions and audit entries
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Actor is the authenticated caller of an administrative operation
type Actor struct {
	UserID   uuid.UUID
	Role     domain.Role
	TenantID *uuid.UUID
	Meta     RequestMeta
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == domain.RoleSuperAdmin
}

// userID returns a pointer for audit entries; nil for system actors
func (a Actor) userID() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// NewActor builds the actor of a validated session
func NewActor(data *SessionData, meta RequestMeta) Actor {
	return Actor{
		UserID:   data.User.ID,
		Role:     data.User.Role,
		TenantID: data.User.TenantID,
		Meta:     meta,
	}
}

// InputError rejects a request field that passed syntax validation but
// breaks a business rule
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Message }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidField(field, message string) error {
	return &InputError{Field: field, Message: message}
}

// ConflictError refuses an operation that would break an invariant. Count
// tells the caller how many records stand in the way.
type ConflictError struct {
	Message string
	Count   int
}

func (e *ConflictError) Error() string { return e.Message }

// AccessDeniedError is returned when the access resolver turns a request down
type AccessDeniedError struct {
	Reason  DenyReason
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// lookupErr swaps repository.ErrNotFound for the service sentinel
func lookupErr(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}

// writeErr swaps repository.ErrDuplicate for the service sentinel
func writeErr(err, duplicate error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return duplicate
	}
	return err
}
