package domain

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ProductClaims is the signed payload handed to a downstream product
type ProductClaims struct {
	jwt.RegisteredClaims
	UserID      uuid.UUID  `json:"uid"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	TenantID    *uuid.UUID `json:"tenant_id,omitempty"`
	TenantSlug  string     `json:"tenant_slug,omitempty"`
	ProductID   uuid.UUID  `json:"product_id"`
	ProductSlug string     `json:"product_slug"`
}
