package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is an application of the ecosystem reachable through SSO
type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Slug          string    `json:"slug" db:"slug"`
	Description   string    `json:"description" db:"description"`
	BaseURL       *string   `json:"baseUrl,omitempty" db:"base_url"`
	Icon          string    `json:"icon,omitempty" db:"icon"`
	Color         string    `json:"color,omitempty" db:"color"`
	DefaultConfig JSONMap   `json:"defaultConfig" db:"default_config"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// ProductSummary is the product view embedded in access responses
type ProductSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Slug    string    `json:"slug"`
	BaseURL *string   `json:"baseUrl,omitempty"`
}

// Summary returns the public summary of the product
func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{ID: p.ID, Name: p.Name, Slug: p.Slug, BaseURL: p.BaseURL}
}

// TenantProduct switches a product on or off for one tenant and tracks usage
type TenantProduct struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     uuid.UUID  `json:"tenantId" db:"tenant_id"`
	ProductID    uuid.UUID  `json:"productId" db:"product_id"`
	Config       JSONMap    `json:"config" db:"config"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty" db:"last_accessed"`
	AccessCount  int        `json:"accessCount" db:"access_count"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}
