package models

import (
	"time"
)

type Comment struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Cid    string `gorm:"uniqueIndex;size:36;not null" json:"cid"`
	PostID uint   `gorm:"not null;index;uniqueIndex:idx_comments_best_answer,where:is_best_answer = true" json:"post_id"`
	Post   Post   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Body   string `gorm:"type:text;not null" json:"body"`
	// At most one comment per post carries the flag; the partial unique
	// index above backs the check done under the post row lock.
	IsBestAnswer bool      `gorm:"default:false;not null" json:"is_best_answer"`
	CreatedAt    time.Time `json:"created_at"`
}
