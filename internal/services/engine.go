// Package services holds the gamification and interaction engine: XP and
// levels, daily quotas, achievements, likes, comments, best answers,
// notifications and companions. Every operation runs in a single store
// transaction and either commits all of its effects or none.
package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"brainshare/internal/models"
	"brainshare/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Options struct {
	DailyLikeLimit    int
	DailyCommentLimit int
	// Location decides where the quota day rolls over.
	Location        *time.Location
	LeaderboardSize int
	LeaderboardTTL  time.Duration

	Logger     *slog.Logger
	Now        func() time.Time
	Authorizer Authorizer
}

// DefaultOptions returns the production quotas.
func DefaultOptions() Options {
	return Options{
		DailyLikeLimit:    3,
		DailyCommentLimit: 3,
		Location:          time.UTC,
		LeaderboardSize:   50,
		LeaderboardTTL:    time.Minute,
	}
}

type Engine struct {
	db      *gorm.DB
	catalog *Catalog
	limiter *RateLimiter
	authz   Authorizer
	log     *slog.Logger
	now     func() time.Time

	leaderboardSize int
	leaderboard     *utils.TTLCache[string, []LeaderboardEntry]
}

func New(gdb *gorm.DB, catalog *Catalog, opts Options) (*Engine, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Authorizer == nil {
		opts.Authorizer = RoleAuthorizer{}
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 50
	}
	if opts.LeaderboardTTL <= 0 {
		opts.LeaderboardTTL = time.Minute
	}

	cache, err := utils.NewTTLCache[string, []LeaderboardEntry](8, opts.LeaderboardTTL)
	if err != nil {
		return nil, err
	}

	return &Engine{
		db:      gdb,
		catalog: catalog,
		limiter: &RateLimiter{
			likeLimit:    opts.DailyLikeLimit,
			commentLimit: opts.DailyCommentLimit,
			loc:          opts.Location,
		},
		authz:           opts.Authorizer,
		log:             opts.Logger,
		now:             opts.Now,
		leaderboardSize: opts.LeaderboardSize,
		leaderboard:     cache,
	}, nil
}

// Catalog returns the achievement catalog the engine evaluates.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// transact runs fn in one transaction. Errors that are not already *Error
// are reported as ErrStore; either way the transaction is rolled back.
func (e *Engine) transact(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := e.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return err
	}
	e.log.Error("store failure", "op", op, "error", err)
	return storeError(op, err)
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// lockUsers locks the given user rows in ascending id order, so two
// transactions touching the same pair of users cannot deadlock.
func lockUsers(tx *gorm.DB, op string, ids ...uint) (map[uint]*models.User, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var users []models.User
	if err := tx.Clauses(forUpdate).Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, newError(op, ErrNotFound, "user not found")
	}
	out := make(map[uint]*models.User, len(users))
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func lockUser(tx *gorm.DB, op string, id uint) (*models.User, error) {
	users, err := lockUsers(tx, op, id)
	if err != nil {
		return nil, err
	}
	return users[id], nil
}

func findUser(tx *gorm.DB, op string, id uint) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(op, ErrNotFound, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

func findPost(tx *gorm.DB, op, pid string) (*models.Post, error) {
	var post models.Post
	if err := tx.Where("pid = ?", pid).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(op, ErrNotFound, "post not found")
		}
		return nil, err
	}
	return &post, nil
}

// lockPost takes the row lock that serializes likes and best answers on a
// post. Callers lock users first.
func lockPost(tx *gorm.DB, id uint) error {
	var locked models.Post
	return tx.Clauses(forUpdate).Select("id").First(&locked, id).Error
}

func countLikes(tx *gorm.DB, postID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}
