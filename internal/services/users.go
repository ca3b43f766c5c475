package services

import (
	"context"
	"errors"
	"strings"

	"brainshare/internal/models"
	"brainshare/internal/utils"

	"gorm.io/gorm"
)

type RegisterInput struct {
	Username string      `json:"username" validate:"required,max=64"`
	Email    string      `json:"email" validate:"required,email,max=120"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     models.Role `json:"role"`
}

type Registration struct {
	User    models.User `json:"user"`
	Unlocks []Unlock    `json:"unlocks"`
}

// RegisterUser creates an account. Only student and professor can be
// chosen at sign-up; anything else registers a student.
func (e *Engine) RegisterUser(ctx context.Context, in RegisterInput) (*Registration, error) {
	const op = "RegisterUser"
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	if in.Role != models.RoleProfessor {
		in.Role = models.RoleStudent
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, storeError(op, err)
	}

	var reg Registration
	err = e.transact(ctx, op, func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", in.Username, in.Email).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return newError(op, ErrAlreadyExists, "username or email already registered")
		}

		user := models.User{
			Username: in.Username,
			Email:    in.Email,
			Password: hash,
			Role:     in.Role,
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(op, ErrAlreadyExists, "username or email already registered")
			}
			return err
		}
		unlocks, err := e.catalog.evaluate(tx, &user)
		if err != nil {
			return err
		}
		reg = Registration{User: user, Unlocks: unlocks}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("user registered", "user_id", reg.User.ID, "role", reg.User.Role)
	e.logUnlocks(reg.User.ID, reg.Unlocks)
	return &reg, nil
}

// Authenticate checks an email and password pair.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	const op = "Authenticate"
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := e.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError(op, err)
	}
	if err != nil || !utils.CheckPasswordHash(password, user.Password) {
		return nil, newError(op, ErrUnauthorized, "invalid email or password")
	}
	return &user, nil
}

// GetUser loads a user by id.
func (e *Engine) GetUser(ctx context.Context, id uint) (*models.User, error) {
	const op = "GetUser"
	user, err := findUser(e.db.WithContext(ctx), op, id)
	if err != nil {
		var domainErr *Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, storeError(op, err)
	}
	return user, nil
}

// Can reports whether user holds capability c.
func (e *Engine) Can(user *models.User, c Capability) bool {
	return e.authz.Can(user, c)
}

// ChangeRole sets the role of userID. Requires CapManageRoles.
func (e *Engine) ChangeRole(ctx context.Context, actorID, userID uint, role models.Role) (*models.User, error) {
	const op = "ChangeRole"
	if !role.Valid() {
		return nil, newError(op, ErrValidation, "unknown role %q", role)
	}
	var target *models.User
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		actor, err := findUser(tx, op, actorID)
		if err != nil {
			return err
		}
		if err := e.authorize(op, actor, CapManageRoles); err != nil {
			return err
		}
		if target, err = lockUser(tx, op, userID); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("role", role).Error; err != nil {
			return err
		}
		target.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.leaderboard.Purge()
	e.log.Info("role changed", "user_id", userID, "role", role, "by", actorID)
	return target, nil
}

type ProfileInput struct {
	Username string `json:"username" validate:"required,max=64"`
	AboutMe  string `json:"about_me" validate:"max=500"`
	JobTitle string `json:"job_title" validate:"max=100"`
	LinkedIn string `json:"linkedin" validate:"omitempty,url,max=200"`
}

// UpdateProfile replaces the editable profile fields of userID. Usernames
// stay unique.
func (e *Engine) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	const op = "UpdateProfile"
	in.Username = strings.TrimSpace(in.Username)
	in.AboutMe = strings.TrimSpace(in.AboutMe)
	in.JobTitle = strings.TrimSpace(in.JobTitle)
	in.LinkedIn = strings.TrimSpace(in.LinkedIn)
	if err := validateInput(op, in); err != nil {
		return nil, err
	}

	var user *models.User
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		var err error
		if user, err = lockUser(tx, op, userID); err != nil {
			return err
		}
		var taken int64
		if err := tx.Model(&models.User{}).
			Where("username = ? AND id <> ?", in.Username, userID).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return newError(op, ErrAlreadyExists, "username already taken")
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
			"username":  in.Username,
			"about_me":  in.AboutMe,
			"job_title": in.JobTitle,
			"linkedin":  in.LinkedIn,
		}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(op, ErrAlreadyExists, "username already taken")
			}
			return err
		}
		user.Username = in.Username
		user.AboutMe = in.AboutMe
		user.JobTitle = in.JobTitle
		user.LinkedIn = in.LinkedIn
		return nil
	})
	if err != nil {
		return nil, err
	}
	// 排行榜展示用户名
	e.leaderboard.Purge()
	e.log.Info("profile updated", "user_id", userID)
	return user, nil
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
}

const leaderboardKey = "xp"

// Leaderboard ranks non-admin users by XP. Results are cached briefly, so a
// fresh change can take up to the cache TTL to show.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > e.leaderboardSize {
		limit = e.leaderboardSize
	}
	entries, ok := e.leaderboard.Get(leaderboardKey)
	if !ok {
		var users []models.User
		if err := e.db.WithContext(ctx).
			Select("id", "username", "xp").
			Where("role <> ?", models.RoleAdmin).
			Order("xp DESC, id ASC").
			Limit(e.leaderboardSize).
			Find(&users).Error; err != nil {
			return nil, storeError("Leaderboard", err)
		}
		entries = make([]LeaderboardEntry, len(users))
		for i, u := range users {
			entries[i] = LeaderboardEntry{Rank: i + 1, UserID: u.ID, Username: u.Username, XP: u.XP, Level: Level(u.XP)}
		}
		e.leaderboard.Set(leaderboardKey, entries)
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type Profile struct {
	User         models.User           `json:"user"`
	Level        int                   `json:"level"`
	PostCount    int64                 `json:"post_count"`
	CommentCount int64                 `json:"comment_count"`
	Achievements int64                 `json:"achievements"`
	Companion    *models.UserCompanion `json:"companion,omitempty"`
	RecentPosts  []models.Post         `json:"recent_posts"`
	RecentXP     []models.XPLog        `json:"recent_xp"`
}

const (
	recentPostsSize = 10
	recentXPSize    = 20
)

// Profile gathers the public view of a user.
func (e *Engine) Profile(ctx context.Context, userID uint) (*Profile, error) {
	const op = "Profile"
	gdb := e.db.WithContext(ctx)
	user, err := e.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: *user, Level: Level(user.XP)}

	if err := gdb.Model(&models.Post{}).Where("user_id = ?", userID).Count(&p.PostCount).Error; err != nil {
		return nil, storeError(op, err)
	}
	if err := gdb.Model(&models.Comment{}).Where("user_id = ?", userID).Count(&p.CommentCount).Error; err != nil {
		return nil, storeError(op, err)
	}
	if err := gdb.Model(&models.UserAchievement{}).Where("user_id = ?", userID).Count(&p.Achievements).Error; err != nil {
		return nil, storeError(op, err)
	}
	var uc models.UserCompanion
	err = gdb.Preload("Companion").Where("user_id = ?", userID).First(&uc).Error
	switch {
	case err == nil:
		p.Companion = &uc
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storeError(op, err)
	}
	// 最近帖子，已删除的不展示
	if err := gdb.Where("user_id = ? AND status <> ?", userID, models.PostStatusRemoved).
		Order("created_at DESC, id DESC").
		Limit(recentPostsSize).
		Find(&p.RecentPosts).Error; err != nil {
		return nil, storeError(op, err)
	}
	if err := fillCounts(gdb, p.RecentPosts); err != nil {
		return nil, storeError(op, err)
	}
	if err := gdb.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(recentXPSize).
		Find(&p.RecentXP).Error; err != nil {
		return nil, storeError(op, err)
	}
	return p, nil
}
