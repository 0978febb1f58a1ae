package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
	"gstbill/internal/repositories"
	"gstbill/internal/services"
)

type userFixture struct {
	auth  *services.AuthService
	users *services.UserService
	clerk *models.User
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	repo := repositories.NewMemoryStore().Users()
	f := &userFixture{
		auth:  services.NewAuthService(repo, testJWTSecret, time.Hour, zap.NewNop()),
		users: services.NewUserService(repo, zap.NewNop()),
	}
	f.clerk = &models.User{Username: "clerk", Email: "clerk@example.com", Password: "password123"}
	require.NoError(t, f.auth.RegisterUser(context.Background(), f.clerk))
	return f
}

func (f *userFixture) roleInToken(t *testing.T) string {
	t.Helper()
	token, err := f.auth.LoginUser(context.Background(), "clerk", "password123")
	require.NoError(t, err)
	claims, err := f.auth.ValidateToken(token)
	require.NoError(t, err)
	return claims["role"].(string)
}

func TestUserService_DisabledUserCannotLogin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	disabled, err := f.users.DisableUser(ctx, f.clerk.ID)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)
	assert.Empty(t, disabled.Password)

	_, err = f.auth.LoginUser(ctx, "clerk", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	enabled, err := f.users.EnableUser(ctx, f.clerk.ID)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)

	_, err = f.auth.LoginUser(ctx, "clerk", "password123")
	assert.NoError(t, err)
}

func TestUserService_RoleChangeShowsInNextToken(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	assert.Equal(t, models.RoleUser, f.roleInToken(t))

	promoted, err := f.users.AssignRole(ctx, f.clerk.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	assert.Equal(t, models.RoleAdmin, f.roleInToken(t))

	demoted, err := f.users.RemoveRole(ctx, f.clerk.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, demoted.Role)
	assert.Equal(t, models.RoleUser, f.roleInToken(t))
}

func TestUserService_RoleRules(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"assign unknown role", func() error { _, err := f.users.AssignRole(ctx, f.clerk.ID, "OWNER"); return err }},
		{"remove base role", func() error { _, err := f.users.RemoveRole(ctx, f.clerk.ID, models.RoleUser); return err }},
		{"remove role not held", func() error { _, err := f.users.RemoveRole(ctx, f.clerk.ID, models.RoleAdmin); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			assert.Contains(t, apperrors.FieldsOf(err), "role")
		})
	}

	_, err := f.users.AssignRole(ctx, "missing", models.RoleAdmin)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_UpdateUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	other := &models.User{Username: "auditor", Email: "auditor@example.com", Password: "password123"}
	require.NoError(t, f.auth.RegisterUser(ctx, other))

	updated, err := f.users.UpdateUser(ctx, f.clerk.ID, services.UserUpdate{Username: " clerk2 ", Email: "clerk2@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "clerk2", updated.Username)
	assert.Equal(t, "clerk2@example.com", updated.Email)
	assert.Empty(t, updated.Password)

	// The password survives a profile edit
	_, err = f.auth.LoginUser(ctx, "clerk2", "password123")
	assert.NoError(t, err)

	_, err = f.users.UpdateUser(ctx, f.clerk.ID, services.UserUpdate{Username: "auditor", Email: "clerk2@example.com"})
	assert.ErrorIs(t, err, services.ErrUserExists)

	_, err = f.users.UpdateUser(ctx, f.clerk.ID, services.UserUpdate{Username: "clerk2", Email: "auditor@example.com"})
	assert.ErrorIs(t, err, services.ErrUserExists)

	_, err = f.users.UpdateUser(ctx, f.clerk.ID, services.UserUpdate{Username: "x", Email: "nope"})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Contains(t, apperrors.FieldsOf(err), "username")
	assert.Contains(t, apperrors.FieldsOf(err), "email")
}

func TestUserService_ListAndDelete(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.RegisterUser(ctx, &models.User{Username: "auditor", Email: "auditor@example.com", Password: "password123"}))

	page, err := f.users.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "auditor", page.Items[0].Username)
	for _, u := range page.Items {
		assert.Empty(t, u.Password)
	}

	require.NoError(t, f.users.DeleteUser(ctx, f.clerk.ID))
	_, err = f.users.GetUser(ctx, f.clerk.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, f.users.DeleteUser(ctx, f.clerk.ID), apperrors.ErrNotFound)

	_, err = f.auth.LoginUser(ctx, "clerk", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}
