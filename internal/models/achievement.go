package models

import (
	"time"
)

// Achievement is catalog data: seeded once at startup and never updated.
type Achievement struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Key         string `gorm:"size:50;uniqueIndex;not null" json:"key"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	XPReward    int    `gorm:"column:xp_reward;default:0;not null" json:"xp_reward"`
	Icon        string `gorm:"size:50" json:"icon"`
}

type UserAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	User          User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AchievementID uint        `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	Achievement   Achievement `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"achievement"`
	UnlockedAt    time.Time   `gorm:"autoCreateTime" json:"unlocked_at"`
}
