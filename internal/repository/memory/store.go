// Package memory is an in-process repository backend used by tests and by
// DB_DRIVER=memory for local runs. Transactions are serialized and undone by
// restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
)

type txKey struct{}

type tables struct {
	users          map[uuid.UUID]domain.User
	tenants        map[uuid.UUID]domain.Tenant
	plans          map[uuid.UUID]domain.Plan
	planProducts   map[uuid.UUID]domain.PlanProduct
	products       map[uuid.UUID]domain.Product
	tenantProducts map[uuid.UUID]domain.TenantProduct
	sessions       map[uuid.UUID]domain.Session
	tokens         map[uuid.UUID]domain.ProductToken
	audit          []domain.AuditLog
}

func newTables() tables {
	return tables{
		users:          map[uuid.UUID]domain.User{},
		tenants:        map[uuid.UUID]domain.Tenant{},
		plans:          map[uuid.UUID]domain.Plan{},
		planProducts:   map[uuid.UUID]domain.PlanProduct{},
		products:       map[uuid.UUID]domain.Product{},
		tenantProducts: map[uuid.UUID]domain.TenantProduct{},
		sessions:       map[uuid.UUID]domain.Session{},
		tokens:         map[uuid.UUID]domain.ProductToken{},
	}
}

func (t tables) clone() tables {
	out := newTables()
	for k, v := range t.users {
		out.users[k] = v
	}
	for k, v := range t.tenants {
		out.tenants[k] = v
	}
	for k, v := range t.plans {
		out.plans[k] = v
	}
	for k, v := range t.planProducts {
		out.planProducts[k] = v
	}
	for k, v := range t.products {
		out.products[k] = v
	}
	for k, v := range t.tenantProducts {
		out.tenantProducts[k] = v
	}
	for k, v := range t.sessions {
		out.sessions[k] = v
	}
	for k, v := range t.tokens {
		out.tokens[k] = v
	}
	out.audit = append([]domain.AuditLog(nil), t.audit...)
	return out
}

// Store holds every table behind one lock
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	t    tables
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{t: newTables()}
}

// NewSet wires every repository over a fresh store
func NewSet() *repository.Set {
	return NewStore().Set()
}

// Set returns the repositories backed by s
func (s *Store) Set() *repository.Set {
	return &repository.Set{
		Users:          &userRepository{s},
		Tenants:        &tenantRepository{s},
		Plans:          &planRepository{s},
		PlanProducts:   &planProductRepository{s},
		Products:       &productRepository{s},
		TenantProducts: &tenantProductRepository{s},
		Sessions:       &sessionRepository{s},
		ProductTokens:  &productTokenRepository{s},
		AuditLogs:      &auditLogRepository{s},
		Tx:             s,
	}
}

// WithinTx serializes transactions and restores the previous state when fn fails
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.t.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func notFound(what string) error {
	return fmt.Errorf("%s not found: %w", what, repository.ErrNotFound)
}

func duplicate(op string) error {
	return fmt.Errorf("failed to %s: %w", op, repository.ErrDuplicate)
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// page applies limit/offset the way the SQL backend does
func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortBy[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
