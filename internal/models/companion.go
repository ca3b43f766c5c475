package models

import (
	"time"
)

// Companion is a template. Each species has one template per stage; only
// stage 1 templates can be adopted.
type Companion struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Key     string `gorm:"size:50;uniqueIndex;not null" json:"key"`
	Species string `gorm:"size:50;not null;index" json:"species"`
	Name    string `gorm:"size:100;not null" json:"name"`
	Stage   int    `gorm:"not null" json:"stage"`
	Image   string `gorm:"size:200" json:"image"`
}

type UserCompanion struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	User           User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CompanionID    uint      `gorm:"not null;index" json:"companion_id"`
	Companion      Companion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"companion"`
	Nickname       string    `gorm:"size:50" json:"nickname"`
	EvolutionStage int       `gorm:"default:1;not null" json:"evolution_stage"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
