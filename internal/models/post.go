package models

import (
	"time"
)

type PostType string

const (
	PostTypeQuestion PostType = "question"
	PostTypeMaterial PostType = "material"
)

type PostStatus string

const (
	PostStatusNormal   PostStatus = "normal"
	PostStatusReported PostStatus = "reported"
	PostStatusRemoved  PostStatus = "removed"
)

// Valid reports whether s is one of the moderation states.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusNormal, PostStatusReported, PostStatusRemoved:
		return true
	}
	return false
}

type Post struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Pid       string     `gorm:"uniqueIndex;size:36;not null" json:"pid"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	User      User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Title     string     `gorm:"size:140;not null" json:"title"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	Type      PostType   `gorm:"size:20;default:'question';not null" json:"type"`
	Subject   string     `gorm:"size:50;default:'Geral';not null;index" json:"subject"`
	Status    PostStatus `gorm:"size:20;default:'normal';not null" json:"status"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	LikeCount    int    `gorm:"-" json:"like_count"`
	CommentCount int    `gorm:"-" json:"comment_count"`
	Excerpt      string `gorm:"-" json:"excerpt,omitempty"`
}
