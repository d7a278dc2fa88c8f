package service

import (
	"testing"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_RoundTrip(t *testing.T) {
	f := newFixture(t)
	c := f.clinic(t)

	token, session, err := f.sessions.CreateSession(f.ctx, c.admin.ID, RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.Len(t, token, 43)
	assert.NotEqual(t, token, session.TokenHash)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), session.ExpiresAt)

	data, err := f.sessions.ValidateSession(f.ctx, token)
	require.NoError(t, err)
	assert.Equal(t, c.admin.ID, data.User.ID)
	require.NotNil(t, data.Tenant)
	assert.Equal(t, c.tenant.ID, data.Tenant.ID)
	require.NotNil(t, data.Plan)
	assert.Equal(t, c.plan.ID, data.Plan.ID)
}

func TestSessionService_TokensAreUnique(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "root@example.com", domain.RoleSuperAdmin, nil)

	a, _, err := f.sessions.CreateSession(f.ctx, user.ID, RequestMeta{})
	require.NoError(t, err)
	b, _, err := f.sessions.CreateSession(f.ctx, user.ID, RequestMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	data, err := f.sessions.ValidateSession(f.ctx, a)
	require.NoError(t, err)
	assert.Nil(t, data.Tenant)
	assert.Nil(t, data.Plan)
}

func TestSessionService_ExpiredSessionIsPurged(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "root@example.com", domain.RoleSuperAdmin, nil)

	token, session, err := f.sessions.CreateSession(f.ctx, user.ID, RequestMeta{})
	require.NoError(t, err)

	f.clock.Advance(7*24*time.Hour + time.Second)

	_, err = f.sessions.ValidateSession(f.ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = f.repos.Sessions.GetByTokenHash(f.ctx, session.TokenHash)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionService_RejectsUnknownAndInactive(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "ana@example.com", domain.RoleSuperAdmin, nil)

	_, err := f.sessions.ValidateSession(f.ctx, "")
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = f.sessions.ValidateSession(f.ctx, "not-a-real-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	token, _, err := f.sessions.CreateSession(f.ctx, user.ID, RequestMeta{})
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, f.repos.Users.Update(f.ctx, user))

	_, err = f.sessions.ValidateSession(f.ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionService_RevokeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "ana@example.com", domain.RoleSuperAdmin, nil)

	token, _, err := f.sessions.CreateSession(f.ctx, user.ID, RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, f.sessions.RevokeSession(f.ctx, token))
	require.NoError(t, f.sessions.RevokeSession(f.ctx, token))

	_, err = f.sessions.ValidateSession(f.ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionService_RevokeByIDIsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ana := f.user(t, "ana@example.com", domain.RoleSuperAdmin, nil)
	bob := f.user(t, "bob@example.com", domain.RoleSuperAdmin, nil)

	_, session, err := f.sessions.CreateSession(f.ctx, ana.ID, RequestMeta{})
	require.NoError(t, err)

	err = f.sessions.RevokeSessionByID(f.ctx, bob.ID, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = f.sessions.RevokeSessionByID(f.ctx, ana.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.sessions.RevokeSessionByID(f.ctx, ana.ID, session.ID))

	live, err := f.sessions.ListUserSessions(f.ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestSessionService_PurgeExpired(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "ana@example.com", domain.RoleSuperAdmin, nil)

	_, _, err := f.sessions.CreateSession(f.ctx, user.ID, RequestMeta{})
	require.NoError(t, err)
	f.clock.Advance(8 * 24 * time.Hour)
	_, _, err = f.sessions.CreateSession(f.ctx, user.ID, RequestMeta{})
	require.NoError(t, err)

	purged, err := f.sessions.PurgeExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
