package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/attempts"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	result, err := f.auth.Login(f.ctx, LoginRequest{Email: "ADMIN@clinic.com", Password: testPassword}, RequestMeta{IPAddress: "10.0.0.9"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, c.admin.ID, result.Data.User.ID)
	assert.NotNil(t, result.Data.User.LastLogin)
	assert.Equal(t, "10.0.0.9", result.Session.IPAddress)

	success := f.auditActions(t, domain.AuditLoginSuccess)
	require.Len(t, success, 1)
	assert.Equal(t, "10.0.0.9", success[0].Details["ipAddress"])
}

func TestAuthService_LoginFailuresAreGeneric(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	tests := []struct {
		name   string
		req    LoginRequest
		reason string
	}{
		{"wrong password", LoginRequest{Email: "admin@clinic.com", Password: "wrong-password"}, "invalid password"},
		{"unknown email", LoginRequest{Email: "nobody@clinic.com", Password: testPassword}, "user not found"},
		{"wrong clinic", LoginRequest{Email: "admin@clinic.com", Password: testPassword, TenantSlug: "other"}, "clinic mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(f.ctx, tt.req, RequestMeta{})
			assert.ErrorIs(t, err, ErrInvalidCredentials)

			failed := f.auditActions(t, domain.AuditLoginFailed)
			require.NotEmpty(t, failed)
			assert.Equal(t, tt.reason, failed[0].Details["reason"])
		})
	}

	sessions, err := f.sessions.ListUserSessions(f.ctx, c.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestAuthService_LoginSuspendedClinic(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	status := domain.TenantStatusSuspended
	_, err := f.tenants.Update(f.ctx, Actor{}, c.tenant.ID, UpdateTenantRequest{Status: &status})
	require.NoError(t, err)

	_, err = f.auth.Login(f.ctx, LoginRequest{Email: "admin@clinic.com", Password: testPassword}, RequestMeta{})
	assert.ErrorIs(t, err, ErrTenantSuspended)
	assert.ErrorIs(t, err, ErrForbidden)

	// super admins are not bound to a clinic status
	f.user(t, "root@example.com", domain.RoleSuperAdmin, nil)
	_, err = f.auth.Login(f.ctx, LoginRequest{Email: "root@example.com", Password: testPassword}, RequestMeta{})
	assert.NoError(t, err)
}

func TestAuthService_LoginGuardBlocks(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, withGuard(attempts.NewTracker(client, 3, 15*time.Minute)))
	f.clinic(t)

	for i := 0; i < 3; i++ {
		_, err := f.auth.Login(f.ctx, LoginRequest{Email: "admin@clinic.com", Password: "nope-nope"}, RequestMeta{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.auth.Login(f.ctx, LoginRequest{Email: "admin@clinic.com", Password: testPassword}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Len(t, f.auditActions(t, domain.AuditLoginBlocked), 1)

	mr.FastForward(16 * time.Minute)

	_, err = f.auth.Login(f.ctx, LoginRequest{Email: "admin@clinic.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, mr.Exists("login:failed:admin@clinic.com"))
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	result, err := f.auth.Login(f.ctx, LoginRequest{Email: "admin@clinic.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(f.ctx, result.Token, result.Data, RequestMeta{}))
	_, err = f.sessions.ValidateSession(f.ctx, result.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	logouts := f.auditActions(t, domain.AuditLogout)
	require.Len(t, logouts, 1)
	assert.Equal(t, c.admin.ID, *logouts[0].UserID)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)
	data := f.login(t, c.admin)
	f.login(t, c.admin)

	err := f.auth.ChangePassword(f.ctx, data, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "another-password"}, RequestMeta{})
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "currentPassword", inputErr.Field)

	err = f.auth.ChangePassword(f.ctx, data, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "another-password"}, RequestMeta{})
	require.NoError(t, err)

	sessions, err := f.sessions.ListUserSessions(f.ctx, c.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = f.auth.Login(f.ctx, LoginRequest{Email: "admin@clinic.com", Password: "another-password"}, RequestMeta{})
	assert.NoError(t, err)
	assert.Len(t, f.auditActions(t, domain.AuditPasswordChanged), 1)
}

func TestAuthService_Signup(t *testing.T) {
	f := newFixture(t, withSignup(true))
	plan := f.plan(t, "basico", 3)
	product := f.product(t, "educational", nil, nil)
	f.include(t, plan, product, nil)

	result, err := f.auth.Signup(f.ctx, SignupRequest{
		ClinicName: "Clínica Nova",
		ClinicSlug: "clinica-nova",
		Name:       "Ana",
		Email:      "ana@nova.com",
		Password:   testPassword,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, result.Data.User.Role)
	require.NotNil(t, result.Data.Tenant)
	assert.Equal(t, "clinica-nova", result.Data.Tenant.Slug)
	assert.Equal(t, plan.ID, result.Data.Plan.ID)

	access, err := f.access.ResolveForUser(f.ctx, "educational", result.Data, RequestMeta{})
	require.NoError(t, err)
	assert.True(t, access.HasAccess)
}

func TestAuthService_SignupDisabled(t *testing.T) {
	f := newFixture(t, withSignup(false))
	f.plan(t, "basico", 3)

	_, err := f.auth.Signup(f.ctx, SignupRequest{ClinicName: "X clinic", Name: "Ana", Email: "ana@x.com", Password: testPassword}, RequestMeta{})
	assert.ErrorIs(t, err, ErrSignupDisabled)

	_, err = f.repos.Users.GetByEmail(f.ctx, "ana@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAuthService_SetupSuperAdmin(t *testing.T) {
	f := newFixture(t)

	required, err := f.auth.SetupRequired(f.ctx)
	require.NoError(t, err)
	assert.True(t, required)

	user, err := f.auth.SetupSuperAdmin(f.ctx, SetupRequest{Name: "Root", Email: "Root@Example.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, user.Role)
	assert.Nil(t, user.TenantID)

	_, err = f.auth.SetupSuperAdmin(f.ctx, SetupRequest{Name: "Again", Email: "again@example.com", Password: testPassword}, RequestMeta{})
	assert.ErrorIs(t, err, ErrSetupCompleted)

	required, err = f.auth.SetupRequired(f.ctx)
	require.NoError(t, err)
	assert.False(t, required)
}
