package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sms-gateway/internal/auth"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.Register(ctx, RegisterDTO{Email: " Alice@Example.com ", Name: "Alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "password123", u.PasswordHash)

	_, err = env.users.Register(ctx, RegisterDTO{Email: "alice@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.users.Register(ctx, RegisterDTO{Email: "not-an-email", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.users.Register(ctx, RegisterDTO{Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLoginAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t)

	_, err := env.users.Login(ctx, u.Email, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tok, err := env.users.Login(ctx, u.Email, "password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.NotEmpty(t, tok.AccessToken)

	got, err := env.users.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = env.users.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestDeactivateBlocksAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t)
	tok, err := env.users.Login(ctx, u.Email, "password123")
	require.NoError(t, err)

	got, err := env.users.Deactivate(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = env.users.Deactivate(ctx, u.ID)
	assert.ErrorIs(t, err, ErrAlreadyInState)

	_, err = env.users.Authenticate(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, ErrUserInactive)

	_, err = env.users.Login(ctx, u.Email, "password123")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	tok, _, err := env.users.Tokens.Issue(424242)
	require.NoError(t, err)

	_, err = env.users.Authenticate(context.Background(), tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
