package service_test

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/notification"
	"backend/internal/repository/memory"
	"backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*memory.Store, service.UserService) {
	t.Helper()
	store := memory.NewStore()
	svc := service.NewUserService(store.Users(), store.Audits(), store.TxManager(), notification.LogNotifier{})
	return store, svc
}

func TestRegisterAndLoginPublic(t *testing.T) {
	_, svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, service.RegisterRequest{
		Name: "John Doe", Email: "john@public.com", Password: "secret123", Role: model.RolePublic,
	})
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	tokens, err := svc.Login(ctx, service.LoginRequest{Email: "john@public.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, err = svc.Login(ctx, service.LoginRequest{Email: "john@public.com", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = svc.Register(ctx, service.RegisterRequest{
		Name: "Imposter", Email: "john@public.com", Password: "secret123", Role: model.RolePublic,
	})
	assert.Error(t, err)
}

func TestWholesaleActivationFlow(t *testing.T) {
	store, svc := newUserService(t)
	ctx := context.Background()

	admin := &model.User{Name: "Admin", Email: "admin@kingzypharma.com", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, admin))

	user, err := svc.Register(ctx, service.RegisterRequest{
		Name: "MediCorp", Email: "purchasing@medicorp.com", Password: "secret123", Role: model.RoleWholesale,
	})
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	// Pending accounts cannot log in, even with correct credentials.
	_, err = svc.Login(ctx, service.LoginRequest{Email: "purchasing@medicorp.com", Password: "secret123"})
	assert.ErrorIs(t, err, service.ErrAccountInactive)

	activated, err := svc.ActivateAccount(ctx, admin.ID.String(), user.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	_, err = svc.Login(ctx, service.LoginRequest{Email: "purchasing@medicorp.com", Password: "secret123"})
	assert.NoError(t, err)

	// Double activation is refused.
	_, err = svc.ActivateAccount(ctx, admin.ID.String(), user.ID)
	assert.Error(t, err)

	logs, _, err := store.Audits().List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionActivateAccount, logs[0].Action)
	assert.Equal(t, admin.Email, logs[0].PerformedBy)
	assert.Equal(t, model.ActionRegister, logs[1].Action)
	assert.Equal(t, model.SystemActor, logs[1].PerformedBy)
}

func TestRefreshTokenRotation(t *testing.T) {
	_, svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, service.RegisterRequest{
		Name: "John Doe", Email: "john@public.com", Password: "secret123", Role: model.RolePublic,
	})
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, service.LoginRequest{Email: "john@public.com", Password: "secret123"})
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, service.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The presented token is single-use.
	_, err = svc.RefreshToken(ctx, service.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.Error(t, err)

	// Logout revokes the current token.
	require.NoError(t, svc.Logout(ctx, rotated.RefreshToken))
	_, err = svc.RefreshToken(ctx, service.RefreshTokenRequest{RefreshToken: rotated.RefreshToken})
	assert.Error(t, err)
}
