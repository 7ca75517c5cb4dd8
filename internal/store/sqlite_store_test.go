package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sms-gateway/internal/models"
)

var sqliteSeq atomic.Int64

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:storepkg%d?mode=memory&cache=shared", sqliteSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Wallet{}, &models.Transaction{}, &models.Sim{}, &models.Message{}, &models.ApiKey{}))
	return NewGormStore(db)
}

func seedWallet(t *testing.T, s *GormStore, userID int, balance string) *models.Wallet {
	t.Helper()
	w := &models.Wallet{UserId: userID, Balance: decimal.RequireFromString(balance)}
	require.NoError(t, s.CreateWallet(context.Background(), w))
	return w
}

func TestSQLite_WithinTxRollsBackOnError(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	w := seedWallet(t, s, 1, "10.00")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(repo Repository) error {
		locked, err := repo.LockWallet(ctx, 1)
		if err != nil {
			return err
		}
		if _, err := repo.ApplyDelta(ctx, locked.ID, decimal.NewFromInt(-4)); err != nil {
			return err
		}
		require.NoError(t, repo.CreateTransaction(ctx, &models.Transaction{UserId: 1, WalletId: w.ID, Reference: "R1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Balance.StringFixed(2))
	trxs, total, err := s.ListTransactions(ctx, 1, Page{})
	require.NoError(t, err)
	assert.Empty(t, trxs)
	assert.Zero(t, total)
}

func TestSQLite_WithinTxRollsBackOnPanic(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	w := seedWallet(t, s, 1, "10.00")

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(repo Repository) error {
			_, _ = repo.ApplyDelta(ctx, w.ID, decimal.NewFromInt(-4))
			panic("bad")
		})
	})

	got, err := s.FindWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Balance.StringFixed(2))
}

func TestSQLite_WithinTxCommits(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	w := seedWallet(t, s, 1, "10.00")

	err := s.WithinTx(ctx, func(repo Repository) error {
		_, err := repo.ApplyDelta(ctx, w.ID, decimal.RequireFromString("-2.50"))
		return err
	})
	require.NoError(t, err)

	got, err := s.FindWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "7.50", got.Balance.StringFixed(2))
}

func TestSQLite_WithinTxCancelledContext(t *testing.T) {
	s := newSQLiteStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(Repository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSQLite_ApplyDeltaKeepsCents(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	w := seedWallet(t, s, 1, "10.00")

	balance, err := s.ApplyDelta(ctx, w.ID, decimal.RequireFromString("-9.99"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("0.01")), balance.String())

	balance, err = s.ApplyDelta(ctx, w.ID, decimal.RequireFromString("-0.01"))
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), balance.String())

	_, err = s.ApplyDelta(ctx, 987654, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_OwnershipScoping(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	sim := &models.Sim{UserId: 1, Iccid: "I1", PhoneNumber: "+1", Status: models.SimActive, IsActive: true}
	require.NoError(t, s.CreateSim(ctx, sim))

	_, err := s.GetSim(ctx, sim.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSim(ctx, sim.ID, 2), ErrNotFound)

	locked, err := s.LockSims(ctx, []int{sim.ID, 999}, 2)
	require.NoError(t, err)
	assert.Empty(t, locked)

	locked, err = s.LockSims(ctx, []int{sim.ID, sim.ID}, 1)
	require.NoError(t, err)
	assert.Len(t, locked, 1)

	msg := &models.Message{UserId: 1, SimId: sim.ID, Direction: models.DirectionOutbound, Status: models.MessagePending}
	require.NoError(t, s.CreateMessage(ctx, msg))
	_, err = s.GetMessage(ctx, msg.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetMessageByID(ctx, msg.ID)
	assert.NoError(t, err)
}

func TestSQLite_Duplicates(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "a@example.com", Name: "A", IsActive: true}))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Email: "a@example.com", Name: "B", IsActive: true}), ErrDuplicate)

	seedWallet(t, s, 1, "0")
	assert.ErrorIs(t, s.CreateWallet(ctx, &models.Wallet{UserId: 1}), ErrDuplicate)

	require.NoError(t, s.CreateSim(ctx, &models.Sim{UserId: 1, Iccid: "I1", PhoneNumber: "+1"}))
	assert.ErrorIs(t, s.CreateSim(ctx, &models.Sim{UserId: 2, Iccid: "I2", PhoneNumber: "+1"}), ErrDuplicate)
}

func TestSQLite_ListMessagesNewestFirst(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	var ids []int
	for i := 0; i < 5; i++ {
		msg := &models.Message{UserId: 1, SimId: 1, Direction: models.DirectionInbound, Status: models.MessageReceived}
		require.NoError(t, s.CreateMessage(ctx, msg))
		ids = append(ids, msg.ID)
	}
	require.NoError(t, s.CreateMessage(ctx, &models.Message{UserId: 2, SimId: 1, Direction: models.DirectionInbound, Status: models.MessageReceived}))

	page, total, err := s.ListMessages(ctx, 1, Page{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	page, _, err = s.ListMessages(ctx, 1, Page{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSQLite_LockMessage(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	msg := &models.Message{UserId: 1, SimId: 1, Direction: models.DirectionOutbound, Status: models.MessageFailed}
	require.NoError(t, s.CreateMessage(ctx, msg))

	err := s.WithinTx(ctx, func(repo Repository) error {
		locked, err := repo.LockMessage(ctx, msg.ID)
		if err != nil {
			return err
		}
		locked.RetryCount++
		return repo.SaveMessage(ctx, locked)
	})
	require.NoError(t, err)

	got, err := s.GetMessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)

	_, err = s.LockMessage(ctx, 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ExpireSims(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	require.NoError(t, s.CreateSim(ctx, &models.Sim{UserId: 1, Iccid: "A", PhoneNumber: "+1", Status: models.SimActive, IsActive: true, ExpiryDate: &past}))
	require.NoError(t, s.CreateSim(ctx, &models.Sim{UserId: 1, Iccid: "B", PhoneNumber: "+2", Status: models.SimActive, IsActive: true, ExpiryDate: &future}))
	require.NoError(t, s.CreateSim(ctx, &models.Sim{UserId: 1, Iccid: "C", PhoneNumber: "+3", Status: models.SimActive, IsActive: true}))

	n, err := s.ExpireSims(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.ExpireSims(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_PendingBefore(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{UserId: 1, Status: models.TransactionPending, Reference: "A", CreatedAt: old}))
	require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{UserId: 1, Status: models.TransactionPending, Reference: "B"}))
	require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{UserId: 1, Status: models.TransactionCompleted, Reference: "C", CreatedAt: old}))

	stale, err := s.ListPendingTransactionsBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.Unix(), stale[0].CreatedAt.Unix())
}

func TestSQLite_ApiKeys(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	key := &models.ApiKey{UserId: 1, Name: "ci", Key: "k-1", IsActive: true}
	require.NoError(t, s.CreateApiKey(ctx, key))
	assert.ErrorIs(t, s.CreateApiKey(ctx, &models.ApiKey{UserId: 2, Name: "dup", Key: "k-1", IsActive: true}), ErrDuplicate)

	found, err := s.FindApiKey(ctx, "k-1")
	require.NoError(t, err)
	assert.Equal(t, key.ID, found.ID)
	assert.Nil(t, found.LastUsedAt)

	_, err = s.FindApiKey(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	used := time.Now()
	require.NoError(t, s.TouchApiKey(ctx, key.ID, used))
	found, err = s.FindApiKey(ctx, "k-1")
	require.NoError(t, err)
	require.NotNil(t, found.LastUsedAt)
	assert.Equal(t, used.Unix(), found.LastUsedAt.Unix())

	keys, err := s.ListApiKeys(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.ErrorIs(t, s.DeleteApiKey(ctx, key.ID, 2), ErrNotFound)
	require.NoError(t, s.DeleteApiKey(ctx, key.ID, 1))
	_, err = s.FindApiKey(ctx, "k-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
