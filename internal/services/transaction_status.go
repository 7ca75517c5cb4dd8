package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"sms-gateway/internal/models"
	"sms-gateway/internal/store"
)

var allowedTransitions = map[models.TransactionStatus][]models.TransactionStatus{
	models.TransactionPending:   {models.TransactionCompleted, models.TransactionFailed, models.TransactionCancelled},
	models.TransactionCompleted: {models.TransactionFailed, models.TransactionCancelled},
}

func canTransition(from, to models.TransactionStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// balanceEffect is the wallet delta caused by moving a transaction from one
// status to another. Only entering or leaving COMPLETED touches the balance.
func balanceEffect(trx models.Transaction, to models.TransactionStatus) decimal.Decimal {
	switch {
	case to == models.TransactionCompleted && trx.Status != models.TransactionCompleted:
		return trx.SignedAmount()
	case trx.Status == models.TransactionCompleted && to != models.TransactionCompleted:
		return trx.SignedAmount().Neg()
	}
	return decimal.Zero
}

// transition moves trx to status `to` and applies its balance effect exactly
// once. The caller must hold the transaction row lock inside repo's unit of work.
func transition(ctx context.Context, repo store.Repository, trx *models.Transaction, to models.TransactionStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if trx.Status == to {
		return nil
	}
	if !canTransition(trx.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trx.Status, to)
	}

	if delta := balanceEffect(*trx, to); !delta.IsZero() {
		wallet, err := repo.LockWallet(ctx, trx.UserId)
		if err != nil {
			return err
		}
		if wallet.Balance.Add(delta).IsNegative() {
			return fmt.Errorf("%w: balance %s, required %s", ErrInsufficientFunds,
				wallet.Balance.StringFixed(2), delta.Neg().StringFixed(2))
		}
		if wallet.Balance.Add(delta).GreaterThan(models.MaxAmount) {
			return fmt.Errorf("%w: balance would exceed %s", ErrInvalidRequest, models.MaxAmount.StringFixed(2))
		}
		if _, err := repo.ApplyDelta(ctx, wallet.ID, delta); err != nil {
			return err
		}
	}

	if err := repo.SetTransactionStatus(ctx, trx.ID, to); err != nil {
		return err
	}
	trx.Status = to
	return nil
}
