package models

import (
	"time"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Username          string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email             string     `gorm:"size:120;uniqueIndex;not null" json:"-"`
	Password          string     `gorm:"not null" json:"-"` // bcrypt hash
	XP                int        `gorm:"column:xp;default:0;not null" json:"xp"`
	Role              Role       `gorm:"size:20;default:'student';not null" json:"role"`
	AboutMe           string     `gorm:"size:500" json:"about_me"`
	JobTitle          string     `gorm:"size:100" json:"job_title"`
	LinkedIn          string     `gorm:"column:linkedin;size:200" json:"linkedin"`
	DailyLikes        int        `gorm:"default:0;not null" json:"daily_likes"`
	DailyComments     int        `gorm:"default:0;not null" json:"daily_comments"`
	LastActivityReset *time.Time `json:"last_activity_reset"` // nil until the first reset
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
