package service

import (
	"testing"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateInOwnClinic(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	v, err := f.users.Create(f.ctx, actorOf(c.admin), CreateUserRequest{
		Email: "Staff@Clinic.com", Name: "Staff", Password: testPassword, Role: domain.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "staff@clinic.com", v.Email)
	require.NotNil(t, v.TenantID)
	assert.Equal(t, c.tenant.ID, *v.TenantID)
	assert.Equal(t, Capabilities{CanView: true, CanEdit: true, CanDelete: true}, v.Capabilities)

	_, err = f.users.Create(f.ctx, actorOf(c.admin), CreateUserRequest{
		Email: "staff@clinic.com", Name: "Dup", Password: testPassword, Role: domain.RoleUser,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserService_CreateRules(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	staff := f.user(t, "staff@clinic.com", domain.RoleUser, &c.tenant.ID)
	otherTenant := f.tenant(t, "clinic-b", c.plan)

	_, err := f.users.Create(f.ctx, actorOf(c.admin), CreateUserRequest{
		Email: "boss@example.com", Name: "Boss", Password: testPassword, Role: domain.RoleSuperAdmin,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.users.Create(f.ctx, actorOf(staff), CreateUserRequest{
		Email: "new@clinic.com", Name: "New", Password: testPassword, Role: domain.RoleUser,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	otherID := otherTenant.ID.String()
	_, err = f.users.Create(f.ctx, actorOf(c.admin), CreateUserRequest{
		Email: "spy@clinic.com", Name: "Spy", Password: testPassword, Role: domain.RoleUser, TenantID: &otherID,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	root := f.user(t, "root@example.com", domain.RoleSuperAdmin, nil)
	v, err := f.users.Create(f.ctx, actorOf(root), CreateUserRequest{
		Email: "second@example.com", Name: "Second", Password: testPassword, Role: domain.RoleSuperAdmin, TenantID: &otherID,
	})
	require.NoError(t, err)
	assert.Nil(t, v.TenantID)
}

func TestUserService_EnforcesUserLimit(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "basico", 2)
	tenant := f.tenant(t, "small-clinic", plan)
	admin := f.user(t, "admin@small.com", domain.RoleAdmin, &tenant.ID)
	f.user(t, "one@small.com", domain.RoleUser, &tenant.ID)

	_, err := f.users.Create(f.ctx, actorOf(admin), CreateUserRequest{
		Email: "two@small.com", Name: "Two", Password: testPassword, Role: domain.RoleUser,
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Count)

	// the tenant override wins over the plan
	limit := 3
	_, err = f.tenants.Update(f.ctx, Actor{}, tenant.ID, UpdateTenantRequest{MaxUsers: &limit})
	require.NoError(t, err)

	_, err = f.users.Create(f.ctx, actorOf(admin), CreateUserRequest{
		Email: "two@small.com", Name: "Two", Password: testPassword, Role: domain.RoleUser,
	})
	assert.NoError(t, err)
}

func TestUserService_TenantScoping(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	other := f.tenant(t, "clinic-b", c.plan)
	outsider := f.user(t, "outsider@b.com", domain.RoleUser, &other.ID)
	f.user(t, "staff@clinic.com", domain.RoleUser, &c.tenant.ID)

	_, err := f.users.Get(f.ctx, actorOf(c.admin), outsider.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, total, err := f.users.List(f.ctx, actorOf(c.admin), UserListFilter{TenantID: other.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, u := range users {
		assert.Equal(t, c.tenant.ID, *u.TenantID)
	}

	loose := f.user(t, "loose@example.com", domain.RoleAdmin, nil)
	_, _, err = f.users.List(f.ctx, actorOf(loose), UserListFilter{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUserService_UserRoleIsReadOnly(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	staff := f.user(t, "staff@clinic.com", domain.RoleUser, &c.tenant.ID)

	v, err := f.users.Get(f.ctx, actorOf(staff), c.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, Capabilities{CanView: true}, v.Capabilities)

	_, err = f.users.Update(f.ctx, actorOf(staff), c.admin.ID, UpdateUserRequest{Name: strPtr("Hacked")})
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.users.Deactivate(f.ctx, actorOf(staff), c.admin.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUserService_DeactivateCutsAccess(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	staff := f.user(t, "staff@clinic.com", domain.RoleUser, &c.tenant.ID)
	data := f.login(t, staff)

	issued, err := f.sso.IssueToken(f.ctx, data, "educational", RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, f.users.Deactivate(f.ctx, actorOf(c.admin), staff.ID))

	sessions, err := f.sessions.ListUserSessions(f.ctx, staff.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	record, err := f.repos.ProductTokens.GetByToken(f.ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, record.IsRevoked)

	assert.Len(t, f.auditActions(t, domain.AuditUserDeactivated), 1)
}

func TestUserService_CannotDeactivateSelf(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	err := f.users.Deactivate(f.ctx, actorOf(c.admin), c.admin.ID)
	assert.ErrorIs(t, err, ErrCannotDeactivateSelf)

	_, err = f.users.Update(f.ctx, actorOf(c.admin), c.admin.ID, UpdateUserRequest{IsActive: boolPtr(false)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserService_UpdateRole(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	staff := f.user(t, "staff@clinic.com", domain.RoleUser, &c.tenant.ID)

	admin := domain.RoleAdmin
	v, err := f.users.Update(f.ctx, actorOf(c.admin), staff.ID, UpdateUserRequest{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, v.Role)

	super := domain.RoleSuperAdmin
	_, err = f.users.Update(f.ctx, actorOf(c.admin), staff.ID, UpdateUserRequest{Role: &super})
	assert.ErrorIs(t, err, ErrForbidden)
}
