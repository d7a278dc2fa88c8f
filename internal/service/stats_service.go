package service

import (
	"context"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
)

// Stats is the admin dashboard summary
type Stats struct {
	Tenants         map[domain.TenantStatus]int `json:"tenants"`
	TotalTenants    int                         `json:"totalTenants"`
	TotalUsers      int                         `json:"totalUsers"`
	ActiveProducts  int                         `json:"activeProducts"`
	TokensIssued24h int                         `json:"tokensIssued24h"`
}

type StatsService struct {
	tenants  repository.TenantRepository
	users    repository.UserRepository
	products repository.ProductRepository
	tokens   repository.ProductTokenRepository
	now      func() time.Time
}

func NewStatsService(repos *repository.Set) *StatsService {
	return &StatsService{
		tenants:  repos.Tenants,
		users:    repos.Users,
		products: repos.Products,
		tokens:   repos.ProductTokens,
		now:      time.Now,
	}
}

func (s *StatsService) Get(ctx context.Context) (*Stats, error) {
	byStatus, err := s.tenants.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Tenants: map[domain.TenantStatus]int{
		domain.TenantStatusActive:    0,
		domain.TenantStatusSuspended: 0,
		domain.TenantStatusInactive:  0,
	}}
	for status, n := range byStatus {
		stats.Tenants[status] = n
		stats.TotalTenants += n
	}

	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveProducts, err = s.products.CountActive(ctx); err != nil {
		return nil, err
	}
	if stats.TokensIssued24h, err = s.tokens.CountIssuedSince(ctx, s.now().Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	return stats, nil
}
