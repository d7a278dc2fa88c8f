package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan is a subscription tier that entitles its tenants to products
type Plan struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	Name        string              `json:"name" db:"name"`
	Slug        string              `json:"slug" db:"slug"`
	Description string              `json:"description" db:"description"`
	MaxUsers    int                 `json:"maxUsers" db:"max_users"`
	Price       decimal.NullDecimal `json:"price" db:"price"` // NULL = free
	IsActive    bool                `json:"isActive" db:"is_active"`
	CreatedAt   time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time           `json:"updatedAt" db:"updated_at"`
}

// IsFree reports whether the plan has no price
func (p *Plan) IsFree() bool {
	return !p.Price.Valid
}

// PlanProduct is the entitlement template linking a plan to a product
type PlanProduct struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PlanID    uuid.UUID `json:"planId" db:"plan_id"`
	ProductID uuid.UUID `json:"productId" db:"product_id"`
	Config    JSONMap   `json:"config" db:"config"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
