package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sms-gateway/internal/store"
)

func TestApiKeyCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	keys := NewApiKeyService(env.store)
	u := env.user(t)

	first, err := keys.Create(ctx, u.ID, "  ci runner ")
	require.NoError(t, err)
	assert.Equal(t, "ci runner", first.Name)
	assert.True(t, first.IsActive)
	assert.Len(t, first.Key, 43)
	assert.Nil(t, first.LastUsedAt)

	second, err := keys.Create(ctx, u.ID, "backup")
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, second.Key)

	listed, err := keys.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)

	other := env.user(t)
	listed, err = keys.List(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = keys.Create(ctx, u.ID, " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestApiKeyDeleteIsOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	keys := NewApiKeyService(env.store)
	owner := env.user(t)
	other := env.user(t)

	key, err := keys.Create(ctx, owner.ID, "deploy")
	require.NoError(t, err)

	assert.ErrorIs(t, keys.Delete(ctx, other.ID, key.ID), store.ErrNotFound)
	require.NoError(t, keys.Delete(ctx, owner.ID, key.ID))
	assert.ErrorIs(t, keys.Delete(ctx, owner.ID, key.ID), store.ErrNotFound)

	_, err = keys.Authenticate(ctx, key.Key)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestApiKeyAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	keys := NewApiKeyService(env.store)
	used := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	keys.Now = func() time.Time { return used }
	u := env.user(t)

	key, err := keys.Create(ctx, u.ID, "sdk")
	require.NoError(t, err)

	got, err := keys.Authenticate(ctx, key.Key)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	listed, err := keys.List(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, listed[0].LastUsedAt)
	assert.True(t, used.Equal(*listed[0].LastUsedAt))

	_, err = keys.Authenticate(ctx, "not-a-key")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = keys.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.Deactivate(ctx, u.ID)
	require.NoError(t, err)
	_, err = keys.Authenticate(ctx, key.Key)
	assert.ErrorIs(t, err, ErrUserInactive)
}
