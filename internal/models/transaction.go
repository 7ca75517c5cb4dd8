package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "CREDIT"
	TransactionDebit  TransactionType = "DEBIT"
)

func (t TransactionType) Valid() bool {
	return t == TransactionCredit || t == TransactionDebit
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionCancelled TransactionStatus = "CANCELLED"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionCompleted, TransactionFailed, TransactionCancelled:
		return true
	}
	return false
}

// Transaction amounts are stored unsigned; Type decides the sign.
type Transaction struct {
	ID          int               `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId      int               `gorm:"column:user_id;not null;index:idx_trx_user" json:"user_id"`
	WalletId    int               `gorm:"column:wallet_id;not null;index" json:"wallet_id"`
	Type        TransactionType   `gorm:"column:type;size:10;not null" json:"type"`
	Amount      decimal.Decimal   `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Status      TransactionStatus `gorm:"column:status;size:20;not null;default:PENDING;index" json:"status"`
	Description string            `gorm:"column:description;type:text" json:"description"`
	Reference   string            `gorm:"column:reference;size:50;not null;index" json:"reference"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// SignedAmount is the delta this transaction applies to its wallet when completed.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
