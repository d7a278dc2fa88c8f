package service

import (
	"testing"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantService_CreateWithAdmin(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "premium", 5)
	product := f.product(t, "educational", nil, nil)
	f.include(t, plan, product, nil)

	created, err := f.tenants.Create(f.ctx, Actor{}, CreateTenantRequest{
		Name:   "Clínica Sorriso",
		PlanID: plan.ID.String(),
		Admin:  &TenantAdminRequest{Name: "Ana", Email: "Ana@Sorriso.com", Password: testPassword},
	})
	require.NoError(t, err)

	assert.Equal(t, "cl-nica-sorriso", created.Tenant.Slug)
	assert.Equal(t, domain.TenantStatusActive, created.Tenant.Status)
	require.NotNil(t, created.Admin)
	assert.Equal(t, "ana@sorriso.com", created.Admin.Email)
	assert.Equal(t, domain.RoleAdmin, created.Admin.Role)
	assert.Equal(t, 1, created.Sync.Activated)

	tp, err := f.repos.TenantProducts.Get(f.ctx, created.Tenant.ID, product.ID)
	require.NoError(t, err)
	assert.True(t, tp.IsActive)

	assert.Len(t, f.auditActions(t, domain.AuditTenantCreated), 1)
	assert.Len(t, f.auditActions(t, domain.AuditUserCreated), 1)
}

func TestTenantService_CreateIsAtomic(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "premium", 5)
	f.user(t, "taken@example.com", domain.RoleSuperAdmin, nil)

	_, err := f.tenants.Create(f.ctx, Actor{}, CreateTenantRequest{
		Name:   "Clinic",
		Slug:   "new-clinic",
		PlanID: plan.ID.String(),
		Admin:  &TenantAdminRequest{Name: "Ana", Email: "taken@example.com", Password: testPassword},
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.repos.Tenants.GetBySlug(f.ctx, "new-clinic")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.auditActions(t, domain.AuditTenantCreated))
}

func TestTenantService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "premium", 5)
	f.tenant(t, "clinic-a", plan)

	_, err := f.tenants.Create(f.ctx, Actor{}, CreateTenantRequest{Name: "A", Slug: "clinic-a", PlanID: plan.ID.String()})
	assert.ErrorIs(t, err, ErrSlugTaken)

	_, err = f.tenants.Create(f.ctx, Actor{}, CreateTenantRequest{Name: "B", Slug: "clinic-b", PlanID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = f.tenants.Create(f.ctx, Actor{}, CreateTenantRequest{Name: "!!", PlanID: plan.ID.String()})
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "slug", inputErr.Field)
}

func TestTenantService_PlanChangeResyncs(t *testing.T) {
	f := newFixture(t)
	basic := f.plan(t, "basico", 5)
	premium := f.plan(t, "premium", 20)
	edu := f.product(t, "educational", nil, nil)
	shop := f.product(t, "ecommerce", nil, nil)
	f.include(t, basic, edu, nil)
	f.include(t, premium, edu, nil)
	f.include(t, premium, shop, nil)

	tenant := f.tenant(t, "clinic-a", premium)

	planID := basic.ID.String()
	_, err := f.tenants.Update(f.ctx, Actor{}, tenant.ID, UpdateTenantRequest{PlanID: &planID})
	require.NoError(t, err)

	tp, err := f.repos.TenantProducts.Get(f.ctx, tenant.ID, shop.ID)
	require.NoError(t, err)
	assert.False(t, tp.IsActive)

	tp, err = f.repos.TenantProducts.Get(f.ctx, tenant.ID, edu.ID)
	require.NoError(t, err)
	assert.True(t, tp.IsActive)
}

func TestTenantService_DeleteRequiresNoUsers(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	staff := f.user(t, "staff@clinic.com", domain.RoleUser, &c.tenant.ID)

	err := f.tenants.Delete(f.ctx, Actor{}, c.tenant.ID)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.Count)

	root := f.user(t, "root@example.com", domain.RoleSuperAdmin, nil)
	require.NoError(t, f.users.Deactivate(f.ctx, actorOf(root), staff.ID))

	// deactivated members still count
	err = f.tenants.Delete(f.ctx, Actor{}, c.tenant.ID)
	require.ErrorAs(t, err, &conflict)
}

func TestTenantService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	data := f.login(t, c.admin)
	_, err := f.sso.IssueToken(f.ctx, data, "educational", RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, f.tenants.Delete(f.ctx, Actor{}, c.tenant.ID))

	_, err = f.repos.Tenants.GetByID(f.ctx, c.tenant.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.repos.Users.GetByID(f.ctx, c.admin.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.repos.Sessions.GetByID(f.ctx, data.Session.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	rows, err := f.repos.TenantProducts.ListByTenant(f.ctx, c.tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = f.tenants.Delete(f.ctx, Actor{}, c.tenant.ID)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestTenantService_List(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "premium", 5)
	a := f.tenant(t, "clinic-a", plan)
	f.tenant(t, "clinic-b", plan)

	status := domain.TenantStatusSuspended
	_, err := f.tenants.Update(f.ctx, Actor{}, a.ID, UpdateTenantRequest{Status: &status})
	require.NoError(t, err)

	tenants, total, err := f.tenants.List(f.ctx, TenantListFilter{Status: "suspended"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tenants, 1)
	assert.Equal(t, a.ID, tenants[0].ID)

	_, _, err = f.tenants.List(f.ctx, TenantListFilter{Status: "deleted"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
