package services

import (
	"context"
	"math"

	"brainshare/internal/models"

	"gorm.io/gorm"
)

// XP actions recorded in the ledger.
const (
	ActionPostMaterial = "post_material"
	ActionPostQuestion = "post_question"
	ActionComment      = "comment"
	ActionLikeReceived = "like_received"
	ActionLikeRevoked  = "like_revoked"
	ActionBestAnswer   = "best_answer"
	ActionAchievement  = "achievement"
	ActionAdminGrant   = "admin_grant"
)

// XP amounts.
const (
	XPPostMaterial = 50
	XPPostQuestion = 10
	XPComment      = 20
	XPLikeReceived = 10
	XPLikeRevoked  = -10
	XPBestAnswer   = 100
)

const MaxLevel = 100

// Level maps XP to a level: 1 below 10 XP, otherwise floor(sqrt(xp/10))
// capped at MaxLevel. Negative XP is level 1.
func Level(xp int) int {
	if xp < 10 {
		return 1
	}
	n := xp / 10
	l := int(math.Sqrt(float64(n)))
	// float rounding on large values
	for l*l > n {
		l--
	}
	for (l+1)*(l+1) <= n {
		l++
	}
	return min(max(l, 1), MaxLevel)
}

// addXP applies delta to a locked user row and records it in the ledger.
// XP is not clamped and may go negative.
func addXP(tx *gorm.DB, user *models.User, delta int, action string) error {
	if delta == 0 {
		return nil
	}
	entry := models.XPLog{
		UserID: user.ID,
		Amount: delta,
		Action: action,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.User{}).
		Where("id = ?", user.ID).
		UpdateColumn("xp", gorm.Expr("xp + ?", delta)).
		Error; err != nil {
		return err
	}
	user.XP += delta
	return nil
}

type XPResult struct {
	XP      int      `json:"xp"`
	Level   int      `json:"level"`
	Unlocks []Unlock `json:"unlocks"`
}

// AddXP adjusts a user's XP outside of an interaction and re-evaluates
// achievements, since crossing a level can unlock one.
func (e *Engine) AddXP(ctx context.Context, userID uint, delta int, action string) (*XPResult, error) {
	const op = "AddXP"
	if action == "" {
		action = ActionAdminGrant
	}
	var res XPResult
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		user, err := lockUser(tx, op, userID)
		if err != nil {
			return err
		}
		if err := addXP(tx, user, delta, action); err != nil {
			return err
		}
		unlocks, err := e.catalog.evaluate(tx, user)
		if err != nil {
			return err
		}
		res = XPResult{XP: user.XP, Level: Level(user.XP), Unlocks: unlocks}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
