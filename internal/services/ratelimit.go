package services

import (
	"fmt"
	"time"

	"brainshare/internal/models"

	"gorm.io/gorm"
)

type ActivityKind string

const (
	ActivityLike    ActivityKind = "like"
	ActivityComment ActivityKind = "comment"
)

// RateLimiter enforces the per-user daily like and comment quotas. The day
// boundary is midnight in loc.
type RateLimiter struct {
	likeLimit    int
	commentLimit int
	loc          *time.Location
}

func (r *RateLimiter) Limit(kind ActivityKind) int {
	if kind == ActivityLike {
		return r.likeLimit
	}
	return r.commentLimit
}

func (r *RateLimiter) used(user *models.User, kind ActivityKind) int {
	if kind == ActivityLike {
		return user.DailyLikes
	}
	return user.DailyComments
}

// Remaining is the quota left for kind. Call after CheckAndResetDaily.
func (r *RateLimiter) Remaining(user *models.User, kind ActivityKind) int {
	return max(r.Limit(kind)-r.used(user, kind), 0)
}

func (r *RateLimiter) day(t time.Time) time.Time {
	y, m, d := t.In(r.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}

// CheckAndResetDaily zeroes both counters when the last reset happened on an
// earlier calendar day than now. The user row must be locked by tx.
func (r *RateLimiter) CheckAndResetDaily(tx *gorm.DB, user *models.User, now time.Time) (bool, error) {
	if user.LastActivityReset != nil && !r.day(*user.LastActivityReset).Before(r.day(now)) {
		return false, nil
	}
	if err := tx.Model(&models.User{}).
		Where("id = ?", user.ID).
		UpdateColumns(map[string]any{
			"daily_likes":         0,
			"daily_comments":      0,
			"last_activity_reset": now,
		}).Error; err != nil {
		return false, err
	}
	user.DailyLikes = 0
	user.DailyComments = 0
	user.LastActivityReset = &now
	return true, nil
}

// TryConsume takes one unit of quota or fails with ErrRateLimitExceeded
// without touching the counter.
func (r *RateLimiter) TryConsume(tx *gorm.DB, op string, user *models.User, kind ActivityKind) error {
	if r.used(user, kind) >= r.Limit(kind) {
		return newError(op, ErrRateLimitExceeded, "daily %s limit of %d reached", kind, r.Limit(kind))
	}
	column := "daily_comments"
	if kind == ActivityLike {
		column = "daily_likes"
	}
	if err := tx.Model(&models.User{}).
		Where("id = ?", user.ID).
		UpdateColumn(column, gorm.Expr(fmt.Sprintf("%s + 1", column))).
		Error; err != nil {
		return err
	}
	if kind == ActivityLike {
		user.DailyLikes++
	} else {
		user.DailyComments++
	}
	return nil
}
