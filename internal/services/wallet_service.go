package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sms-gateway/internal/models"
	"sms-gateway/internal/store"
	"sms-gateway/pkg/common"
	"sms-gateway/pkg/logger"
)

type WalletService struct {
	Store store.Store
}

func NewWalletService(s store.Store) *WalletService {
	return &WalletService{Store: s}
}

// GetOrCreateWallet returns the user's wallet, creating an empty one on first use.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, userID int) (*models.Wallet, error) {
	wallet, err := s.Store.FindWallet(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	wallet = &models.Wallet{UserId: userID, Balance: decimal.Zero}
	if err := s.Store.CreateWallet(ctx, wallet); err != nil {
		// lost a race with a concurrent first access
		if errors.Is(err, store.ErrDuplicate) {
			return s.Store.FindWallet(ctx, userID)
		}
		return nil, err
	}
	logger.Infof("Created wallet %d for user %d", wallet.ID, userID)
	return wallet, nil
}

type CreateTransactionDTO struct {
	UserId      int
	Type        models.TransactionType
	Amount      decimal.Decimal
	Description string
	// Status is the status to drive the new transaction to. Empty means COMPLETED.
	Status models.TransactionStatus
}

// validAmount accepts positive amounts with at most two decimals that fit a
// decimal(20,2) column.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2)) && !amount.GreaterThan(models.MaxAmount)
}

func (s *WalletService) CreateTransaction(ctx context.Context, data CreateTransactionDTO) (*models.Transaction, error) {
	if !data.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidRequest, data.Type)
	}
	if !validAmount(data.Amount) {
		return nil, fmt.Errorf("%w: amount must be positive, at most %s, with at most two decimals", ErrInvalidRequest, models.MaxAmount.StringFixed(2))
	}
	target := data.Status
	if target == "" {
		target = models.TransactionCompleted
	}
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, target)
	}

	var trx *models.Transaction
	err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
		wallet, err := repo.LockWallet(ctx, data.UserId)
		if err != nil {
			return err
		}

		trx = &models.Transaction{
			UserId:      data.UserId,
			WalletId:    wallet.ID,
			Type:        data.Type,
			Amount:      data.Amount,
			Status:      models.TransactionPending,
			Description: data.Description,
			Reference:   common.GenerateTrxNo(),
		}
		if err := repo.CreateTransaction(ctx, trx); err != nil {
			return err
		}
		return transition(ctx, repo, trx, target)
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"user_id":   data.UserId,
		"reference": trx.Reference,
		"type":      trx.Type,
		"status":    trx.Status,
	}).Infof("Transaction %d recorded for %s", trx.ID, trx.Amount.StringFixed(2))
	return trx, nil
}

func (s *WalletService) GetTransaction(ctx context.Context, userID, id int) (*models.Transaction, error) {
	return s.Store.GetTransaction(ctx, id, userID)
}

func (s *WalletService) ListTransactions(ctx context.Context, userID, page, limit int) ([]models.Transaction, int64, error) {
	return s.Store.ListTransactions(ctx, userID, store.Page{Offset: common.PageOffset(page, limit), Limit: limit})
}

// UpdateTransactionStatus drives a transaction through the status machine.
func (s *WalletService) UpdateTransactionStatus(ctx context.Context, userID, id int, status models.TransactionStatus) (*models.Transaction, error) {
	var trx *models.Transaction
	err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
		var err error
		trx, err = repo.LockTransaction(ctx, id)
		if err != nil {
			return err
		}
		if trx.UserId != userID {
			return store.ErrNotFound
		}
		return transition(ctx, repo, trx, status)
	})
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// CancelStalePending cancels every PENDING transaction created before cutoff.
// Each transaction is cancelled in its own unit of work.
func (s *WalletService) CancelStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.Store.ListPendingTransactionsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, t := range stale {
		err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
			trx, err := repo.LockTransaction(ctx, t.ID)
			if err != nil {
				return err
			}
			if trx.Status != models.TransactionPending {
				return nil
			}
			return transition(ctx, repo, trx, models.TransactionCancelled)
		})
		if err != nil {
			logger.Errorf("Failed to cancel stale transaction %d: %v", t.ID, err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
