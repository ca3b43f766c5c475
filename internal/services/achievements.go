package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"brainshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStats is what achievement predicates see.
type UserStats struct {
	XP           int
	Level        int
	PostCount    int64
	CommentCount int64
	// MaxPostLikes is the like count of the user's most liked post.
	MaxPostLikes int64
}

type Predicate func(UserStats) bool

const InfluencerLikes = 10

// DefaultRules are the unlock conditions keyed by achievement key.
func DefaultRules() map[string]Predicate {
	return map[string]Predicate{
		"welcome":    func(UserStats) bool { return true },
		"first_post": func(s UserStats) bool { return s.PostCount >= 1 },
		"influencer": func(s UserStats) bool { return s.MaxPostLikes >= InfluencerLikes },
		"helper":     func(s UserStats) bool { return s.CommentCount >= 5 },
		"scholar":    func(s UserStats) bool { return s.Level >= 5 },
	}
}

type CatalogEntry struct {
	models.Achievement
	Predicate Predicate `json:"-"`
}

// Catalog is the immutable set of achievements joined with their rules.
type Catalog struct {
	entries []CatalogEntry
}

// NewCatalog joins stored achievements with rules. Every rule needs a
// stored achievement; achievements without a rule are listed but never
// unlock on their own.
func NewCatalog(achievements []models.Achievement, rules map[string]Predicate) (*Catalog, error) {
	byKey := make(map[string]bool, len(achievements))
	c := &Catalog{}
	for _, a := range achievements {
		byKey[a.Key] = true
		c.entries = append(c.entries, CatalogEntry{Achievement: a, Predicate: rules[a.Key]})
	}
	for key := range rules {
		if !byKey[key] {
			return nil, fmt.Errorf("achievement %q has a rule but is not in the catalog", key)
		}
	}
	slices.SortFunc(c.entries, func(a, b CatalogEntry) int { return cmp.Compare(a.ID, b.ID) })
	return c, nil
}

// LoadCatalog reads the stored achievements and joins them with rules.
func LoadCatalog(ctx context.Context, gdb *gorm.DB, rules map[string]Predicate) (*Catalog, error) {
	var achievements []models.Achievement
	if err := gdb.WithContext(ctx).Order("id").Find(&achievements).Error; err != nil {
		return nil, err
	}
	return NewCatalog(achievements, rules)
}

func (c *Catalog) Entries() []CatalogEntry {
	return slices.Clone(c.entries)
}

// Unlock reports one newly granted achievement.
type Unlock struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	XPReward int    `json:"xp_reward"`
}

func (u Unlock) Message() string {
	return fmt.Sprintf("Achievement unlocked: %s (+%d XP)!", u.Name, u.XPReward)
}

func loadStats(tx *gorm.DB, user *models.User) (UserStats, error) {
	s := UserStats{XP: user.XP, Level: Level(user.XP)}
	if err := tx.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&s.PostCount).Error; err != nil {
		return s, err
	}
	if err := tx.Model(&models.Comment{}).Where("user_id = ?", user.ID).Count(&s.CommentCount).Error; err != nil {
		return s, err
	}
	err := tx.Model(&models.PostLike{}).
		Select("COUNT(*)").
		Joins("JOIN posts ON posts.id = post_likes.post_id").
		Where("posts.user_id = ?", user.ID).
		Group("post_likes.post_id").
		Order("COUNT(*) DESC").
		Limit(1).
		Scan(&s.MaxPostLikes).Error
	return s, err
}

// evaluate grants every achievement whose predicate holds and that the
// user does not hold yet, crediting each reward once. The user row must be
// locked by tx. Rewards can satisfy further predicates, so passes repeat
// until nothing new unlocks.
func (c *Catalog) evaluate(tx *gorm.DB, user *models.User) ([]Unlock, error) {
	var heldIDs []uint
	if err := tx.Model(&models.UserAchievement{}).
		Where("user_id = ?", user.ID).
		Pluck("achievement_id", &heldIDs).Error; err != nil {
		return nil, err
	}
	held := make(map[uint]bool, len(heldIDs))
	for _, id := range heldIDs {
		held[id] = true
	}

	stats, err := loadStats(tx, user)
	if err != nil {
		return nil, err
	}

	var unlocks []Unlock
	for progressed := true; progressed; {
		progressed = false
		for _, entry := range c.entries {
			if held[entry.ID] || entry.Predicate == nil {
				continue
			}
			stats.XP, stats.Level = user.XP, Level(user.XP)
			if !entry.Predicate(stats) {
				continue
			}
			held[entry.ID] = true

			grant := models.UserAchievement{UserID: user.ID, AchievementID: entry.ID}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant)
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				// granted by a concurrent transaction
				continue
			}
			if err := addXP(tx, user, entry.XPReward, ActionAchievement+":"+entry.Key); err != nil {
				return nil, err
			}
			unlocks = append(unlocks, Unlock{
				Key:      entry.Key,
				Name:     entry.Name,
				Icon:     entry.Icon,
				XPReward: entry.XPReward,
			})
			progressed = true
		}
	}
	return unlocks, nil
}

// EvaluateAchievements grants whatever the user currently qualifies for.
// Running it twice in a row grants nothing the second time.
func (e *Engine) EvaluateAchievements(ctx context.Context, userID uint) ([]Unlock, error) {
	const op = "EvaluateAchievements"
	var unlocks []Unlock
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		user, err := lockUser(tx, op, userID)
		if err != nil {
			return err
		}
		unlocks, err = e.catalog.evaluate(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logUnlocks(userID, unlocks)
	return unlocks, nil
}

func (e *Engine) logUnlocks(userID uint, unlocks []Unlock) {
	for _, u := range unlocks {
		e.log.Info("achievement unlocked", "user_id", userID, "achievement", u.Key, "xp_reward", u.XPReward)
	}
}

type AchievementStatus struct {
	CatalogEntry
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ListAchievements returns the whole catalog marked with what userID holds.
func (e *Engine) ListAchievements(ctx context.Context, userID uint) ([]AchievementStatus, error) {
	const op = "ListAchievements"
	var grants []models.UserAchievement
	if err := e.db.WithContext(ctx).Where("user_id = ?", userID).Find(&grants).Error; err != nil {
		return nil, storeError(op, err)
	}
	unlockedAt := make(map[uint]time.Time, len(grants))
	for _, g := range grants {
		unlockedAt[g.AchievementID] = g.UnlockedAt
	}

	out := make([]AchievementStatus, 0, len(e.catalog.entries))
	for _, entry := range e.catalog.entries {
		status := AchievementStatus{CatalogEntry: entry}
		if at, ok := unlockedAt[entry.ID]; ok {
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		out = append(out, status)
	}
	return out, nil
}
