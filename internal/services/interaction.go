package services

import (
	"context"
	"errors"
	"strings"

	"brainshare/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultSubject = "Geral"

type PostInput struct {
	Title   string          `json:"title" validate:"required,max=140"`
	Body    string          `json:"body" validate:"required"`
	Type    models.PostType `json:"type"`
	Subject string          `json:"subject" validate:"max=50"`
}

func (in *PostInput) normalize(op string) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.Subject = strings.TrimSpace(in.Subject)
	if in.Subject == "" {
		in.Subject = DefaultSubject
	}
	if in.Type != models.PostTypeMaterial {
		in.Type = models.PostTypeQuestion
	}
	return validateInput(op, in)
}

type PostResult struct {
	Post    models.Post `json:"post"`
	XP      int         `json:"xp"`
	Level   int         `json:"level"`
	Unlocks []Unlock    `json:"unlocks"`
}

// CreatePost publishes a post and credits the author: material earns more
// than a question.
func (e *Engine) CreatePost(ctx context.Context, authorID uint, in PostInput) (*PostResult, error) {
	const op = "CreatePost"
	if err := in.normalize(op); err != nil {
		return nil, err
	}

	var res PostResult
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		author, err := lockUser(tx, op, authorID)
		if err != nil {
			return err
		}
		post := models.Post{
			Pid:     uuid.NewString(),
			UserID:  author.ID,
			Title:   in.Title,
			Body:    in.Body,
			Type:    in.Type,
			Subject: in.Subject,
			Status:  models.PostStatusNormal,
		}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}

		reward, action := XPPostQuestion, ActionPostQuestion
		if post.Type == models.PostTypeMaterial {
			reward, action = XPPostMaterial, ActionPostMaterial
		}
		if err := addXP(tx, author, reward, action); err != nil {
			return err
		}
		unlocks, err := e.catalog.evaluate(tx, author)
		if err != nil {
			return err
		}
		post.User = *author
		res = PostResult{Post: post, XP: author.XP, Level: Level(author.XP), Unlocks: unlocks}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("post created", "pid", res.Post.Pid, "user_id", authorID, "type", res.Post.Type)
	e.logUnlocks(authorID, res.Unlocks)
	return &res, nil
}

type CommentResult struct {
	Comment   models.Comment `json:"comment"`
	XP        int            `json:"xp"`
	Level     int            `json:"level"`
	Unlocks   []Unlock       `json:"unlocks"`
	Remaining int            `json:"remaining_comments"`
}

// CreateComment adds a comment, spending one unit of the daily comment
// quota. The post author is notified unless they wrote the comment.
func (e *Engine) CreateComment(ctx context.Context, userID uint, pid, body string) (*CommentResult, error) {
	const op = "CreateComment"
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, newError(op, ErrValidation, "comment body is required")
	}

	var res CommentResult
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		post, err := findPost(tx, op, pid)
		if err != nil {
			return err
		}
		if post.Status == models.PostStatusRemoved {
			return newError(op, ErrValidation, "post was removed")
		}
		user, err := lockUser(tx, op, userID)
		if err != nil {
			return err
		}
		if _, err := e.limiter.CheckAndResetDaily(tx, user, e.now()); err != nil {
			return err
		}
		if err := e.limiter.TryConsume(tx, op, user, ActivityComment); err != nil {
			return err
		}

		comment := models.Comment{
			Cid:    uuid.NewString(),
			PostID: post.ID,
			UserID: user.ID,
			Body:   body,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if err := addXP(tx, user, XPComment, ActionComment); err != nil {
			return err
		}
		if post.UserID != user.ID {
			if err := notifyComment(tx, post.UserID, user.ID, post.ID); err != nil {
				return err
			}
		}
		unlocks, err := e.catalog.evaluate(tx, user)
		if err != nil {
			return err
		}
		comment.User = *user
		res = CommentResult{
			Comment:   comment,
			XP:        user.XP,
			Level:     Level(user.XP),
			Unlocks:   unlocks,
			Remaining: e.limiter.Remaining(user, ActivityComment),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logUnlocks(userID, res.Unlocks)
	return &res, nil
}

type LikeAction string

const (
	LikeActionLike   LikeAction = "like"
	LikeActionUnlike LikeAction = "unlike"
)

type LikeResult struct {
	Action    LikeAction `json:"action"`
	LikeCount int64      `json:"like_count"`
	Remaining int        `json:"remaining_likes"`
	// AuthorXP is the post author's XP after the toggle.
	AuthorXP      int      `json:"author_xp"`
	Notified      bool     `json:"notified"`
	AuthorUnlocks []Unlock `json:"author_unlocks"`
}

// ToggleLike likes the post, or removes the like if userID already holds
// one. Only liking spends quota. XP and notifications go to the author, and
// never for a like on one's own post.
func (e *Engine) ToggleLike(ctx context.Context, userID uint, pid string) (*LikeResult, error) {
	const op = "ToggleLike"
	var (
		res      LikeResult
		authorID uint
	)
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		post, err := findPost(tx, op, pid)
		if err != nil {
			return err
		}
		users, err := lockUsers(tx, op, userID, post.UserID)
		if err != nil {
			return err
		}
		actor, author := users[userID], users[post.UserID]
		authorID = author.ID
		if err := lockPost(tx, post.ID); err != nil {
			return err
		}
		if _, err := e.limiter.CheckAndResetDaily(tx, actor, e.now()); err != nil {
			return err
		}

		var liked int64
		if err := tx.Model(&models.PostLike{}).
			Where("user_id = ? AND post_id = ?", actor.ID, post.ID).
			Count(&liked).Error; err != nil {
			return err
		}
		selfLike := actor.ID == author.ID

		if liked > 0 {
			res.Action = LikeActionUnlike
			if err := tx.Where("user_id = ? AND post_id = ?", actor.ID, post.ID).
				Delete(&models.PostLike{}).Error; err != nil {
				return err
			}
			if !selfLike {
				if err := addXP(tx, author, XPLikeRevoked, ActionLikeRevoked); err != nil {
					return err
				}
			}
		} else {
			res.Action = LikeActionLike
			if post.Status == models.PostStatusRemoved {
				return newError(op, ErrValidation, "post was removed")
			}
			if err := e.limiter.TryConsume(tx, op, actor, ActivityLike); err != nil {
				return err
			}
			if err := tx.Create(&models.PostLike{UserID: actor.ID, PostID: post.ID}).Error; err != nil {
				return err
			}
			if !selfLike {
				if err := addXP(tx, author, XPLikeReceived, ActionLikeReceived); err != nil {
					return err
				}
				res.Notified, err = notifyLikeOnce(tx, author.ID, actor.ID, post.ID)
				if err != nil {
					return err
				}
			}
		}

		if res.LikeCount, err = countLikes(tx, post.ID); err != nil {
			return err
		}
		if res.Notified && res.LikeCount >= InfluencerLikes {
			if res.AuthorUnlocks, err = e.catalog.evaluate(tx, author); err != nil {
				return err
			}
		}
		res.AuthorXP = author.XP
		res.Remaining = e.limiter.Remaining(actor, ActivityLike)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logUnlocks(authorID, res.AuthorUnlocks)
	return &res, nil
}

type BestAnswerResult struct {
	Comment models.Comment `json:"comment"`
	// AuthorXP is the comment author's XP after the reward.
	AuthorXP      int      `json:"author_xp"`
	AuthorLevel   int      `json:"author_level"`
	AuthorUnlocks []Unlock `json:"author_unlocks"`
}

// MarkBestAnswer flags a comment as the best answer to its post and
// rewards its author. A post has at most one best answer.
func (e *Engine) MarkBestAnswer(ctx context.Context, actorID uint, cid string) (*BestAnswerResult, error) {
	const op = "MarkBestAnswer"
	var res BestAnswerResult
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		actor, err := findUser(tx, op, actorID)
		if err != nil {
			return err
		}
		if err := e.authorize(op, actor, CapMarkBestAnswer); err != nil {
			return err
		}

		var comment models.Comment
		if err := tx.Where("cid = ?", cid).First(&comment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(op, ErrNotFound, "comment not found")
			}
			return err
		}
		author, err := lockUser(tx, op, comment.UserID)
		if err != nil {
			return err
		}
		if err := lockPost(tx, comment.PostID); err != nil {
			return err
		}

		var solved int64
		if err := tx.Model(&models.Comment{}).
			Where("post_id = ? AND is_best_answer = ?", comment.PostID, true).
			Count(&solved).Error; err != nil {
			return err
		}
		if solved > 0 {
			return newError(op, ErrAlreadySolved, "post already has a best answer")
		}

		if err := tx.Model(&models.Comment{}).
			Where("id = ?", comment.ID).
			UpdateColumn("is_best_answer", true).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(op, ErrAlreadySolved, "post already has a best answer")
			}
			return err
		}
		comment.IsBestAnswer = true

		if err := addXP(tx, author, XPBestAnswer, ActionBestAnswer); err != nil {
			return err
		}
		unlocks, err := e.catalog.evaluate(tx, author)
		if err != nil {
			return err
		}
		comment.User = *author
		res = BestAnswerResult{
			Comment:       comment,
			AuthorXP:      author.XP,
			AuthorLevel:   Level(author.XP),
			AuthorUnlocks: unlocks,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("best answer marked", "cid", cid, "by", actorID, "author_id", res.Comment.UserID)
	e.logUnlocks(res.Comment.UserID, res.AuthorUnlocks)
	return &res, nil
}
