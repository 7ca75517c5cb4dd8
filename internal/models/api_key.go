package models

import "time"

type ApiKey struct {
	ID         int        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId     int        `gorm:"column:user_id;not null;index" json:"user_id"`
	Name       string     `gorm:"column:name;size:100;not null" json:"name"`
	Key        string     `gorm:"column:key;size:64;not null;uniqueIndex" json:"key"`
	IsActive   bool       `gorm:"column:is_active;not null" json:"is_active"`
	LastUsedAt *time.Time `gorm:"column:last_used_at" json:"last_used_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ApiKey) TableName() string {
	return "api_keys"
}
