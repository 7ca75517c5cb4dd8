package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sms-gateway/internal/models"
)

type fakeHealth struct {
	serving map[string]bool
}

func (f *fakeHealth) SetServing(service string, serving bool) {
	f.serving[service] = serving
}

func newMaintenance(env *testEnv) (*MaintenanceService, *fakeHealth) {
	h := &fakeHealth{serving: map[string]bool{}}
	return NewMaintenanceService(env.store, env.wallets, env.sims, env.sms, h, 24*time.Hour), h
}

func TestProbeHealth(t *testing.T) {
	env := newTestEnv(t)
	m, h := newMaintenance(env)

	assert.True(t, m.ProbeHealth(context.Background()))
	assert.True(t, h.serving[HealthService])
	assert.True(t, h.serving[CarrierHealthService])

	env.carrier.failAll = true
	assert.True(t, m.ProbeHealth(context.Background()))
	assert.True(t, h.serving[HealthService])
	assert.False(t, h.serving[CarrierHealthService])
}

func TestMaintenanceCancelStalePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t)
	env.fund(t, u.ID, "0")
	trx, err := env.wallets.CreateTransaction(ctx, CreateTransactionDTO{
		UserId: u.ID,
		Type:   models.TransactionCredit,
		Amount: decimal.NewFromInt(7),
		Status: models.TransactionPending,
	})
	require.NoError(t, err)

	m, _ := newMaintenance(env)
	require.NoError(t, m.CancelStalePending(ctx))
	got, err := env.wallets.GetTransaction(ctx, u.ID, trx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, got.Status)

	m.Now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	require.NoError(t, m.CancelStalePending(ctx))
	got, err = env.wallets.GetTransaction(ctx, u.ID, trx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCancelled, got.Status)
	assert.Equal(t, "0.00", env.balance(t, u.ID))
}

func TestStartScheduler(t *testing.T) {
	env := newTestEnv(t)
	m, _ := newMaintenance(env)

	c, err := m.StartScheduler()
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 3)
}
