package models

import (
	"time"
)

// XPLog is an append-only record of every XP delta. User.XP stays the
// balance of record; the log explains how it got there.
type XPLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Amount    int       `gorm:"not null" json:"amount"`          // 正数为增加，负数为扣除
	Action    string    `gorm:"size:100;not null" json:"action"` // 动作描述
	CreatedAt time.Time `json:"created_at"`
}
