package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductToken is the persisted record of an issued SSO handoff token.
// The record, not the signature, is the authority during validation.
type ProductToken struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Token     string     `json:"-" db:"token"`
	UserID    uuid.UUID  `json:"userId" db:"user_id"`
	ProductID uuid.UUID  `json:"productId" db:"product_id"`
	ExpiresAt time.Time  `json:"expiresAt" db:"expires_at"`
	IsRevoked bool       `json:"isRevoked" db:"is_revoked"`
	LastUsed  *time.Time `json:"lastUsed,omitempty" db:"last_used"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// IsExpired checks if the token expired at the given instant
func (t *ProductToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsUsable checks the token is neither revoked nor expired
func (t *ProductToken) IsUsable(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}
