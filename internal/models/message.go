package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MessageDirection string

const (
	DirectionOutbound MessageDirection = "OUTBOUND"
	DirectionInbound  MessageDirection = "INBOUND"
)

type MessageStatus string

const (
	MessagePending   MessageStatus = "PENDING"
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageFailed    MessageStatus = "FAILED"
	MessageReceived  MessageStatus = "RECEIVED"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case MessagePending, MessageSent, MessageDelivered, MessageFailed, MessageReceived:
		return true
	}
	return false
}

const MaxContentLength = 1600

type Message struct {
	ID               int              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId           int              `gorm:"column:user_id;not null;index" json:"user_id"`
	SimId            int              `gorm:"column:sim_id;not null;index" json:"sim_id"`
	TransactionId    *int             `gorm:"column:transaction_id;index" json:"transaction_id"`
	Direction        MessageDirection `gorm:"column:direction;size:10;not null" json:"direction"`
	Status           MessageStatus    `gorm:"column:status;size:20;not null;default:PENDING" json:"status"`
	RecipientNumber  string           `gorm:"column:recipient_number;size:32" json:"recipient_number"`
	SenderNumber     string           `gorm:"column:sender_number;size:32" json:"sender_number"`
	Content          string           `gorm:"column:content;size:1600;not null" json:"content"`
	Price            decimal.Decimal  `gorm:"column:price;type:decimal(20,2);not null;default:0.00" json:"price"`
	ErrorMessage     *string          `gorm:"column:error_message;type:text" json:"error_message"`
	RetryCount       int              `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	CarrierMessageId string           `gorm:"column:carrier_message_id;size:64" json:"carrier_message_id,omitempty"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "sms"
}
