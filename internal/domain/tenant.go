package domain

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus represents the lifecycle status of a clinic
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusInactive  TenantStatus = "INACTIVE"
)

// Valid reports whether s is one of the known statuses
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusInactive:
		return true
	}
	return false
}

// Tenant represents a clinic subscribed to a plan
type Tenant struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Slug      string       `json:"slug" db:"slug"`
	Status    TenantStatus `json:"status" db:"status"`
	PlanID    uuid.UUID    `json:"planId" db:"plan_id"`
	MaxUsers  *int         `json:"maxUsers,omitempty" db:"max_users"` // NULL = plan default
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether staff of the tenant may use the console
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// UserLimit returns the effective maximum number of users for the tenant
func (t *Tenant) UserLimit(plan *Plan) int {
	if t.MaxUsers != nil {
		return *t.MaxUsers
	}
	if plan != nil {
		return plan.MaxUsers
	}
	return 0
}

// TenantSummary is the tenant view embedded in access and SSO responses
type TenantSummary struct {
	ID     uuid.UUID    `json:"id"`
	Name   string       `json:"name"`
	Slug   string       `json:"slug"`
	Status TenantStatus `json:"status,omitempty"`
}

// Summary returns the public summary of the tenant
func (t *Tenant) Summary() *TenantSummary {
	return &TenantSummary{ID: t.ID, Name: t.Name, Slug: t.Slug, Status: t.Status}
}
