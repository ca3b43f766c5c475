package models

import (
	"time"
)

// PostLike is the liked-by relation. The composite primary key keeps a user
// from liking the same post twice; the like count of a post is the number
// of rows for its PostID.
type PostLike struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	Post      Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
