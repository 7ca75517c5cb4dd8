package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"sms-gateway/internal/auth"
	"sms-gateway/internal/carrier"
	"sms-gateway/internal/models"
	"sms-gateway/internal/store"
	"sms-gateway/internal/store/storetest"
)

// fakeCarrier accepts every publish except the call numbers listed in failOn
// (1-based), or every call when failAll is set. With hang set, Publish waits
// for its context to end.
type fakeCarrier struct {
	mu      sync.Mutex
	calls   []string
	failOn  map[int]bool
	failAll bool
	hang    bool
}

func (f *fakeCarrier) Connect(context.Context) error { return nil }
func (f *fakeCarrier) Close() error                  { return nil }

func (f *fakeCarrier) Ping(context.Context) error {
	if f.failAll {
		return carrier.ErrCarrierUnavailable
	}
	return nil
}

func (f *fakeCarrier) Publish(ctx context.Context, number, _ string) (string, error) {
	if f.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, number)
	if f.failAll || f.failOn[len(f.calls)] {
		return "", carrier.ErrCarrierUnavailable
	}
	return fmt.Sprintf("carrier-%d", len(f.calls)), nil
}

func (f *fakeCarrier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeQueue drops a second enqueue of the same message and attempt.
type fakeQueue struct {
	enqueued []int
	attempts []int
	seen     map[string]bool
	err      error
}

func (q *fakeQueue) EnqueueRedelivery(_ context.Context, id, attempt int) error {
	if q.err != nil {
		return q.err
	}
	key := fmt.Sprintf("%d-%d", id, attempt)
	if q.seen[key] {
		return nil
	}
	if q.seen == nil {
		q.seen = map[string]bool{}
	}
	q.seen[key] = true
	q.enqueued = append(q.enqueued, id)
	q.attempts = append(q.attempts, attempt)
	return nil
}

type testEnv struct {
	store   store.Store
	carrier *fakeCarrier
	queue   *fakeQueue
	users   *UserService
	wallets *WalletService
	sims    *SimService
	sms     *SmsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, storetest.New(t))
}

func newTestEnvWithStore(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	fc := &fakeCarrier{failOn: map[int]bool{}}
	q := &fakeQueue{}
	wallets := NewWalletService(st)
	return &testEnv{
		store:   st,
		carrier: fc,
		queue:   q,
		users:   NewUserService(st, auth.NewTokenIssuer("test-secret", time.Hour)),
		wallets: wallets,
		sims:    NewSimService(st, wallets, decimal.RequireFromString("10.00"), 150),
		sms:     NewSmsService(st, wallets, fc, q, time.Second),
	}
}

var userSeq int

func (e *testEnv) user(t *testing.T) *models.User {
	t.Helper()
	userSeq++
	u, err := e.users.Register(context.Background(), RegisterDTO{
		Email:    fmt.Sprintf("user%d@example.com", userSeq),
		Name:     "Test User",
		Password: "password123",
	})
	require.NoError(t, err)
	return u
}

// fund credits the user's wallet, creating it if needed.
func (e *testEnv) fund(t *testing.T, userID int, amount string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.wallets.GetOrCreateWallet(ctx, userID)
	require.NoError(t, err)
	if amount == "0" {
		return
	}
	_, err = e.wallets.CreateTransaction(ctx, CreateTransactionDTO{
		UserId: userID,
		Type:   models.TransactionCredit,
		Amount: decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
}

func (e *testEnv) sim(t *testing.T, userID int, phone string) *models.Sim {
	t.Helper()
	sim, err := e.sims.CreateSim(context.Background(), CreateSimDTO{
		UserId:      userID,
		Iccid:       "ICC" + phone,
		PhoneNumber: phone,
	})
	require.NoError(t, err)
	return sim
}

func (e *testEnv) balance(t *testing.T, userID int) string {
	t.Helper()
	w, err := e.store.FindWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance.StringFixed(2)
}

func (e *testEnv) transactions(t *testing.T, userID int) []models.Transaction {
	t.Helper()
	trxs, _, err := e.store.ListTransactions(context.Background(), userID, store.Page{})
	require.NoError(t, err)
	return trxs
}

func (e *testEnv) messages(t *testing.T, userID int) []models.Message {
	t.Helper()
	msgs, _, err := e.store.ListMessages(context.Background(), userID, store.Page{})
	require.NoError(t, err)
	return msgs
}

var errDiskFull = errors.New("disk full")

// failingStore fails the n-th SaveMessage made inside a unit of work.
type failingStore struct {
	store.Store
	failAt int
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	return f.Store.WithinTx(ctx, func(repo store.Repository) error {
		return fn(&failingRepo{Repository: repo, failAt: f.failAt})
	})
}

type failingRepo struct {
	store.Repository
	calls  int
	failAt int
}

func (r *failingRepo) SaveMessage(ctx context.Context, msg *models.Message) error {
	r.calls++
	if r.calls == r.failAt {
		return errDiskFull
	}
	return r.Repository.SaveMessage(ctx, msg)
}
