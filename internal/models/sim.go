package models

import "time"

type SimStatus string

const (
	SimActive    SimStatus = "ACTIVE"
	SimInactive  SimStatus = "INACTIVE"
	SimSuspended SimStatus = "SUSPENDED"
	SimExpired   SimStatus = "EXPIRED"
)

const DefaultMessagesLimit = 150

type Sim struct {
	ID            int        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId        int        `gorm:"column:user_id;not null;index" json:"user_id"`
	Iccid         string     `gorm:"column:iccid;size:32;not null;uniqueIndex" json:"iccid"`
	PhoneNumber   string     `gorm:"column:phone_number;size:32;not null;uniqueIndex" json:"phone_number"`
	Status        SimStatus  `gorm:"column:status;size:20;not null;default:ACTIVE" json:"status"`
	IsActive      bool       `gorm:"column:is_active;not null" json:"is_active"`
	MessagesUsed  int        `gorm:"column:messages_used;not null;default:0" json:"messages_used"`
	MessagesLimit int        `gorm:"column:messages_limit;not null" json:"messages_limit"`
	ExpiryDate    *time.Time `gorm:"column:expiry_date" json:"expiry_date"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Sim) TableName() string {
	return "sims"
}

// CanSend reports whether the SIM may accept one more outbound message.
func (s Sim) CanSend() bool {
	return s.IsActive && s.MessagesUsed < s.MessagesLimit
}

func (s Sim) ExpiredAt(now time.Time) bool {
	return s.ExpiryDate != nil && s.ExpiryDate.Before(now)
}
