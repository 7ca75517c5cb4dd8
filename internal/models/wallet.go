package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        int             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId    int             `gorm:"column:user_id;not null;uniqueIndex:idx_wallet_user" json:"user_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:decimal(20,2);not null;default:0.00" json:"balance"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
