package service

import (
	"testing"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_ListForUser(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	f.product(t, "telemedicine", nil, nil)
	data := f.login(t, c.admin)

	cards, err := f.products.ListForUser(f.ctx, data)
	require.NoError(t, err)
	require.Len(t, cards, 3)

	access := map[string]bool{}
	for _, card := range cards {
		access[card.Slug] = card.HasAccess
	}
	assert.Equal(t, map[string]bool{"educational": true, "ecommerce": true, "telemedicine": false}, access)
}

func TestProductService_DeactivateIsSoft(t *testing.T) {
	f := newFixture(t)

	product, err := f.products.Create(f.ctx, Actor{}, CreateProductRequest{Name: "Educational", Slug: "educational", DefaultConfig: domain.JSONMap{"a": 1}})
	require.NoError(t, err)

	_, err = f.products.Create(f.ctx, Actor{}, CreateProductRequest{Name: "Again", Slug: "educational"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	require.NoError(t, f.products.Deactivate(f.ctx, Actor{}, product.ID))
	require.NoError(t, f.products.Deactivate(f.ctx, Actor{}, product.ID))

	stored, err := f.products.Get(f.ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Len(t, f.auditActions(t, domain.AuditProductDeactivated), 1)

	active, err := f.products.List(f.ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStatsService_Get(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	data := f.login(t, c.admin)

	_, err := f.sso.IssueToken(f.ctx, data, "educational", RequestMeta{})
	require.NoError(t, err)

	status := domain.TenantStatusSuspended
	other := f.tenant(t, "clinic-b", c.plan)
	_, err = f.tenants.Update(f.ctx, Actor{}, other.ID, UpdateTenantRequest{Status: &status})
	require.NoError(t, err)

	stats, err := f.stats.Get(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTenants)
	assert.Equal(t, 1, stats.Tenants[domain.TenantStatusActive])
	assert.Equal(t, 1, stats.Tenants[domain.TenantStatusSuspended])
	assert.Equal(t, 0, stats.Tenants[domain.TenantStatusInactive])
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveProducts)
	assert.Equal(t, 1, stats.TokensIssued24h)

	f.clock.Advance(25 * time.Hour)
	stats, err = f.stats.Get(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TokensIssued24h)
}
