package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"sms-gateway/internal/models"
)

// Page is an offset window over a list query. Limit <= 0 means unbounded.
type Page struct {
	Offset int
	Limit  int
}

// Repository is the set of row operations services run, either directly or
// inside a unit of work obtained from Store.WithinTx.
//
// Lookups scoped by userID return ErrNotFound for rows owned by someone else.
// Lock* methods take row locks that are held until the unit of work ends.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	FindWallet(ctx context.Context, userID int) (*models.Wallet, error)
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	LockWallet(ctx context.Context, userID int) (*models.Wallet, error)
	ApplyDelta(ctx context.Context, walletID int, delta decimal.Decimal) (decimal.Decimal, error)

	CreateTransaction(ctx context.Context, trx *models.Transaction) error
	GetTransaction(ctx context.Context, id, userID int) (*models.Transaction, error)
	LockTransaction(ctx context.Context, id int) (*models.Transaction, error)
	SetTransactionStatus(ctx context.Context, id int, status models.TransactionStatus) error
	ListTransactions(ctx context.Context, userID int, page Page) ([]models.Transaction, int64, error)
	ListPendingTransactionsBefore(ctx context.Context, before time.Time) ([]models.Transaction, error)

	CreateSim(ctx context.Context, sim *models.Sim) error
	GetSim(ctx context.Context, id, userID int) (*models.Sim, error)
	LockSims(ctx context.Context, ids []int, userID int) ([]models.Sim, error)
	FindSimByPhone(ctx context.Context, phone string) (*models.Sim, error)
	SaveSim(ctx context.Context, sim *models.Sim) error
	ListSims(ctx context.Context, userID int) ([]models.Sim, error)
	DeleteSim(ctx context.Context, id, userID int) error
	ExpireSims(ctx context.Context, now time.Time) (int64, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id, userID int) (*models.Message, error)
	GetMessageByID(ctx context.Context, id int) (*models.Message, error)
	LockMessage(ctx context.Context, id int) (*models.Message, error)
	ListMessages(ctx context.Context, userID int, page Page) ([]models.Message, int64, error)

	CreateApiKey(ctx context.Context, key *models.ApiKey) error
	ListApiKeys(ctx context.Context, userID int) ([]models.ApiKey, error)
	DeleteApiKey(ctx context.Context, id, userID int) error
	FindApiKey(ctx context.Context, key string) (*models.ApiKey, error)
	TouchApiKey(ctx context.Context, id int, at time.Time) error
}

type Store interface {
	Repository

	// WithinTx runs fn as one unit of work. Any error returned by fn rolls
	// back every write made through the Repository it was given.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
	Ping(ctx context.Context) error
}
