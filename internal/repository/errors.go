package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("record already exists")
)

// Transactor runs fn inside a single storage transaction. Repositories
// called with the ctx handed to fn take part in the transaction; an
// error returned by fn rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Set bundles the repositories of one storage backend
type Set struct {
	Users          UserRepository
	Tenants        TenantRepository
	Plans          PlanRepository
	PlanProducts   PlanProductRepository
	Products       ProductRepository
	TenantProducts TenantProductRepository
	Sessions       SessionRepository
	ProductTokens  ProductTokenRepository
	AuditLogs      AuditLogRepository
	Tx             Transactor
}
