package models

import (
	"time"
)

type NotificationAction string

const (
	NotificationActionLike    NotificationAction = "like"
	NotificationActionComment NotificationAction = "comment"
)

type Notification struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	RecipientID uint               `gorm:"not null;index:idx_notifications_dedup,priority:1" json:"recipient_id"`
	Recipient   User               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	SenderID    uint               `gorm:"not null;index:idx_notifications_dedup,priority:2" json:"sender_id"`
	Sender      User               `gorm:"foreignKey:SenderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"sender"`
	PostID      uint               `gorm:"not null;index:idx_notifications_dedup,priority:3" json:"post_id"`
	Post        Post               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"post"`
	Action      NotificationAction `gorm:"type:varchar(20);not null" json:"action"`
	IsRead      bool               `gorm:"default:false;not null;index" json:"is_read"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
}
