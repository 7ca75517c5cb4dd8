package store

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sms-gateway/internal/models"
)

// These tests need a live database. DATABASE_URL is a MySQL DSN unless
// DATABASE_DRIVER=postgres.

var testDB *gorm.DB

func setup() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("Skipping DB tests: DATABASE_URL not set")
		return
	}

	dialector := mysql.Open(dsn)
	if os.Getenv("DATABASE_DRIVER") == "postgres" {
		dialector = postgres.Open(dsn)
	}

	var err error
	testDB, err = gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		testDB = nil
		return
	}

	if err := testDB.AutoMigrate(&models.User{}, &models.Wallet{}, &models.Transaction{}, &models.Sim{}, &models.Message{}, &models.ApiKey{}); err != nil {
		log.Printf("Failed to migrate: %v", err)
		testDB = nil
	}
}

func cleanup() {
	if testDB != nil {
		testDB.Exec("DELETE FROM api_keys")
		testDB.Exec("DELETE FROM sms")
		testDB.Exec("DELETE FROM transactions")
		testDB.Exec("DELETE FROM sims")
		testDB.Exec("DELETE FROM wallets")
		testDB.Exec("DELETE FROM users")
	}
}

func TestGormStore_WithinTxRollsBack(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	s := NewGormStore(testDB)
	ctx := context.Background()
	w := &models.Wallet{UserId: 501, Balance: decimal.NewFromInt(10)}
	require.NoError(t, s.CreateWallet(ctx, w))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(repo Repository) error {
		locked, err := repo.LockWallet(ctx, 501)
		if err != nil {
			return err
		}
		if _, err := repo.ApplyDelta(ctx, locked.ID, decimal.NewFromInt(-3)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindWallet(ctx, 501)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Balance.StringFixed(2))
}

func TestGormStore_ApplyDelta(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	s := NewGormStore(testDB)
	ctx := context.Background()
	w := &models.Wallet{UserId: 502, Balance: decimal.NewFromInt(10)}
	require.NoError(t, s.CreateWallet(ctx, w))

	balance, err := s.ApplyDelta(ctx, w.ID, decimal.RequireFromString("-2.25"))
	require.NoError(t, err)
	assert.Equal(t, "7.75", balance.StringFixed(2))

	_, err = s.ApplyDelta(ctx, 987654, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_TranslatesErrors(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	s := NewGormStore(testDB)
	ctx := context.Background()

	require.NoError(t, s.CreateWallet(ctx, &models.Wallet{UserId: 503}))
	assert.ErrorIs(t, s.CreateWallet(ctx, &models.Wallet{UserId: 503}), ErrDuplicate)

	_, err := s.FindWallet(ctx, 504)
	assert.ErrorIs(t, err, ErrNotFound)

	sim := &models.Sim{UserId: 503, Iccid: "GORM-1", PhoneNumber: "+19990000001", Status: models.SimActive, IsActive: true, MessagesLimit: 5}
	require.NoError(t, s.CreateSim(ctx, sim))
	_, err = s.GetSim(ctx, sim.ID, 504)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSim(ctx, sim.ID, 504), ErrNotFound)
}

func TestGormStore_ListMessagesPaged(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	s := NewGormStore(testDB)
	ctx := context.Background()
	var last int
	for i := 0; i < 3; i++ {
		msg := &models.Message{UserId: 505, SimId: 1, Direction: models.DirectionInbound, Status: models.MessageReceived, Price: decimal.Zero}
		require.NoError(t, s.CreateMessage(ctx, msg))
		last = msg.ID
	}

	page, total, err := s.ListMessages(ctx, 505, Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, last, page[0].ID)
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	os.Exit(code)
}
