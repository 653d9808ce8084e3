package service

import (
	"testing"

	"storekeep/internal/apierror"
	"storekeep/internal/dto"
	"storekeep/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRegister_CreatesUserAndSession(t *testing.T) {
	h := newHarness(t)

	resp, err := h.accounts.Register(bg, dto.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "User", resp.User.Role)
	assert.True(t, resp.User.IsActive)

	stored, err := h.users.FindByUsername(bg, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password, "stored hashed")
	assert.True(t, h.hasher.Matches(stored.Password, "secret1"))

	sess, err := h.accounts.CurrentSession(bg, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, sess.UserID)
	assert.Equal(t, model.RoleUser, sess.Role)
}

func TestRegister_DuplicateUntilPurged(t *testing.T) {
	h := newHarness(t)
	super := h.user(t, "root", "rootpw", model.RoleSuperAdmin)

	_, err := h.accounts.Register(bg, dto.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	alice, err := h.users.FindByUsername(bg, "alice")
	require.NoError(t, err)

	_, err = h.accounts.Register(bg, dto.RegisterRequest{Username: "alice", Password: "other12"})
	assert.ErrorIs(t, err, apierror.ErrDuplicateUsername)

	// trashed users keep their name
	_, err = h.engine.TrashUser(bg, actor(super), alice.ID)
	require.NoError(t, err)
	_, err = h.accounts.Register(bg, dto.RegisterRequest{Username: "alice", Password: "other12"})
	assert.ErrorIs(t, err, apierror.ErrDuplicateUsername)

	_, err = h.engine.PurgeUser(bg, actor(super), alice.ID)
	require.NoError(t, err)
	resp, err := h.accounts.Register(bg, dto.RegisterRequest{Username: "alice", Password: "other12"})
	require.NoError(t, err)
	assert.NotEqual(t, alice.ID, resp.User.ID)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice", "secret1", model.RoleUser)
	inactive := h.user(t, "bob", "secret2", model.RoleUser)
	require.NoError(t, h.db.Model(inactive).Update("is_active", false).Error)

	resp, err := h.accounts.Login(bg, dto.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resp.User.ID)

	_, err = h.accounts.Login(bg, dto.LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, apierror.ErrInvalidCredentials)

	_, err = h.accounts.Login(bg, dto.LoginRequest{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, apierror.ErrInvalidCredentials)

	_, err = h.accounts.Login(bg, dto.LoginRequest{Username: "bob", Password: "secret2"})
	assert.ErrorIs(t, err, apierror.ErrInvalidCredentials)
	assert.Equal(t, apierror.KindUnauthenticated, apierror.KindOf(err))
}

func TestLogin_TrashedUserRejected(t *testing.T) {
	h := newHarness(t)
	super := h.user(t, "root", "rootpw", model.RoleSuperAdmin)
	alice := h.user(t, "alice", "secret1", model.RoleUser)
	_, err := h.engine.TrashUser(bg, actor(super), alice.ID)
	require.NoError(t, err)

	_, err = h.accounts.Login(bg, dto.LoginRequest{Username: "alice", Password: "secret1"})
	assert.ErrorIs(t, err, apierror.ErrInvalidCredentials)
}

func TestLogout_RevokesSession(t *testing.T) {
	h := newHarness(t)
	h.user(t, "alice", "secret1", model.RoleUser)
	resp, err := h.accounts.Login(bg, dto.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, h.accounts.Logout(bg, resp.Token))
	_, err = h.accounts.CurrentSession(bg, resp.Token)
	assert.ErrorIs(t, err, apierror.ErrUnauthenticated)

	// unconditional
	assert.NoError(t, h.accounts.Logout(bg, ""))
	assert.NoError(t, h.accounts.Logout(bg, "garbage"))
}

func TestCurrentSession_FollowsStoredUser(t *testing.T) {
	h := newHarness(t)
	super := h.user(t, "root", "rootpw", model.RoleSuperAdmin)
	alice := h.user(t, "alice", "secret1", model.RoleUser)
	resp, err := h.accounts.Login(bg, dto.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = h.admin.UpdateUser(bg, actor(super), alice.ID, dto.UpdateUserRequest{Role: "Admin"})
	require.NoError(t, err)
	sess, err := h.accounts.CurrentSession(bg, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, sess.Role, "role change picked up")

	_, err = h.engine.TrashUser(bg, actor(super), alice.ID)
	require.NoError(t, err)
	_, err = h.accounts.CurrentSession(bg, resp.Token)
	assert.ErrorIs(t, err, apierror.ErrUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	h.user(t, "alice", "secret1", model.RoleUser)
	h.user(t, "bob", "secret2", model.RoleUser)
	resp, err := h.accounts.Login(bg, dto.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	sess, err := h.accounts.CurrentSession(bg, resp.Token)
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		_, err := h.accounts.UpdateProfile(bg, sess, dto.UpdateProfileRequest{
			Username: strPtr("alice2"), CurrentPassword: "nope", NewPassword: "secret9",
		})
		assert.ErrorIs(t, err, apierror.ErrWrongPassword)
		assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
		_, err = h.users.FindByUsername(bg, "alice")
		assert.NoError(t, err, "nothing applied")
	})

	t.Run("username taken", func(t *testing.T) {
		_, err := h.accounts.UpdateProfile(bg, sess, dto.UpdateProfileRequest{Username: strPtr("bob")})
		assert.ErrorIs(t, err, apierror.ErrDuplicateUsername)
	})

	t.Run("rename only", func(t *testing.T) {
		out, err := h.accounts.UpdateProfile(bg, sess, dto.UpdateProfileRequest{Username: strPtr("alicia")})
		require.NoError(t, err)
		assert.Equal(t, "alicia", out.User.Username)
		assert.Equal(t, "alicia", sess.Username)

		reloaded, err := h.accounts.CurrentSession(bg, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "alicia", reloaded.Username)
	})

	t.Run("password only", func(t *testing.T) {
		_, err := h.accounts.UpdateProfile(bg, sess, dto.UpdateProfileRequest{CurrentPassword: "secret1", NewPassword: "secret9"})
		require.NoError(t, err)
		_, err = h.accounts.Login(bg, dto.LoginRequest{Username: "alicia", Password: "secret9"})
		assert.NoError(t, err)
		_, err = h.accounts.Login(bg, dto.LoginRequest{Username: "alicia", Password: "secret1"})
		assert.ErrorIs(t, err, apierror.ErrInvalidCredentials)
	})

	t.Run("same username is a no-op", func(t *testing.T) {
		_, err := h.accounts.UpdateProfile(bg, sess, dto.UpdateProfileRequest{Username: strPtr("alicia")})
		assert.NoError(t, err)
	})
}

func TestProfile_Stats(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice", "secret1", model.RoleUser)
	h.product(t, alice, "lamp", "10.00", 2)
	h.product(t, alice, "desk", "25.50", 1)
	trashed := h.product(t, alice, "chair", "99.00", 1)
	require.NoError(t, h.engine.TrashProduct(bg, actor(alice), trashed.ID))

	p, err := h.accounts.Profile(bg, actor(alice))
	require.NoError(t, err)
	assert.Equal(t, "alice", p.User.Username)
	assert.Equal(t, int64(2), p.Stats.ProductCount)
	assert.Equal(t, "45.50", p.Stats.TotalValue.StringFixed(2))
	assert.Equal(t, "17.75", p.Stats.AveragePrice.StringFixed(2))

	bob := h.user(t, "bob", "secret2", model.RoleUser)
	p, err = h.accounts.Profile(bg, actor(bob))
	require.NoError(t, err)
	assert.Zero(t, p.Stats.ProductCount)
	assert.True(t, p.Stats.AveragePrice.IsZero())
}

func TestEnsureSuperAdmin(t *testing.T) {
	h := newHarness(t)

	_, err := h.accounts.EnsureSuperAdmin(bg, "root", "")
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))

	created, err := h.accounts.EnsureSuperAdmin(bg, "root", "rootpw")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = h.accounts.EnsureSuperAdmin(bg, "someone-else", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	resp, err := h.accounts.Login(bg, dto.LoginRequest{Username: "root", Password: "rootpw"})
	require.NoError(t, err)
	assert.Equal(t, "SuperAdmin", resp.User.Role)
}

func TestSeedUser(t *testing.T) {
	h := newHarness(t)
	super := h.user(t, "root", "rootpw", model.RoleSuperAdmin)

	created, err := h.accounts.SeedUser(bg, "ops", "first-pw", model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)

	ops, err := h.users.FindByUsername(bg, "ops")
	require.NoError(t, err)
	require.NoError(t, h.db.Model(ops).Update("is_active", false).Error)

	created, err = h.accounts.SeedUser(bg, "ops", "second-pw", model.RoleUser)
	require.NoError(t, err)
	assert.False(t, created)
	resp, err := h.accounts.Login(bg, dto.LoginRequest{Username: "ops", Password: "second-pw"})
	require.NoError(t, err, "reactivated with the new password")
	assert.Equal(t, "User", resp.User.Role)

	_, err = h.accounts.SeedUser(bg, "ops", "pw", model.Role("Owner"))
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))

	_, err = h.engine.TrashUser(bg, actor(super), ops.ID)
	require.NoError(t, err)
	_, err = h.accounts.SeedUser(bg, "ops", "third-pw", model.RoleUser)
	assert.ErrorIs(t, err, apierror.ErrDuplicateUsername)
}
