package service

import (
	"testing"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantProductService_SyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	// a new plan product appears after the tenant was created
	extra := f.product(t, "telemedicine", nil, nil)
	f.include(t, c.plan, extra, nil)

	first, err := f.tenantProducts.SyncWithPlan(f.ctx, Actor{}, c.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Activated: 1}, first)

	second, err := f.tenantProducts.SyncWithPlan(f.ctx, Actor{}, c.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{}, second)

	assert.Len(t, f.auditActions(t, domain.AuditTenantProductsSynced), 2)
}

func TestTenantProductService_SyncDeactivatesUnentitled(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	data := f.login(t, c.admin)

	_, err := f.sso.IssueToken(f.ctx, data, "ecommerce", RequestMeta{})
	require.NoError(t, err)

	pp, err := f.repos.PlanProducts.Get(f.ctx, c.plan.ID, c.other.ID)
	require.NoError(t, err)
	pp.IsActive = false
	require.NoError(t, f.repos.PlanProducts.Upsert(f.ctx, pp))

	result, err := f.tenantProducts.SyncWithPlan(f.ctx, Actor{}, c.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Activated)
	assert.Equal(t, 1, result.Deactivated)
	assert.Equal(t, int64(1), result.RevokedTokens)
}

func TestTenantProductService_SyncReactivates(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	_, err := f.tenantProducts.Update(f.ctx, Actor{}, c.tenant.ID, c.product.ID, UpdateTenantProductRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)

	result, err := f.tenantProducts.SyncWithPlan(f.ctx, Actor{}, c.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Activated)
}

func TestTenantProductService_List(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	f.product(t, "telemedicine", nil, nil)

	views, err := f.tenantProducts.List(f.ctx, c.tenant.ID)
	require.NoError(t, err)
	require.Len(t, views, 3)

	bySlug := map[string]*TenantProductView{}
	for _, v := range views {
		bySlug[v.Product.Slug] = v
	}
	assert.True(t, bySlug["educational"].Entitled)
	require.NotNil(t, bySlug["educational"].TenantProduct)
	assert.True(t, bySlug["educational"].TenantProduct.IsActive)
	assert.False(t, bySlug["telemedicine"].Entitled)
	assert.Nil(t, bySlug["telemedicine"].TenantProduct)
}

func TestTenantProductService_RemoveMissing(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	extra := f.product(t, "telemedicine", nil, nil)

	err := f.tenantProducts.Remove(f.ctx, Actor{}, c.tenant.ID, extra.ID)
	assert.ErrorIs(t, err, ErrTenantProductNotFound)
}
