package services

import (
	"context"
	"errors"
	"html/template"
	"strings"

	"brainshare/internal/models"
	"brainshare/internal/utils"

	"gorm.io/gorm"
)

// DeletePost removes a post with its comments, likes, reports and
// notifications. Authors may delete their own posts; anyone else needs
// CapDeleteAnyPost. XP already earned is kept.
func (e *Engine) DeletePost(ctx context.Context, actorID uint, pid string) error {
	const op = "DeletePost"
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		actor, err := findUser(tx, op, actorID)
		if err != nil {
			return err
		}
		post, err := findPost(tx, op, pid)
		if err != nil {
			return err
		}
		if post.UserID != actor.ID {
			if err := e.authorize(op, actor, CapDeleteAnyPost); err != nil {
				return err
			}
		}
		for _, dependent := range []any{&models.Notification{}, &models.Report{}, &models.PostLike{}, &models.Comment{}} {
			if err := tx.Where("post_id = ?", post.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		return err
	}
	e.log.Info("post deleted", "pid", pid, "by", actorID)
	return nil
}

// ReportPost records a report and flags a normal post as reported.
func (e *Engine) ReportPost(ctx context.Context, userID uint, pid, reason string) (*models.Report, error) {
	const op = "ReportPost"
	reason = strings.TrimSpace(reason)
	if err := validateField(op, "reason", reason, "required,max=200"); err != nil {
		return nil, err
	}

	var report models.Report
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		if _, err := findUser(tx, op, userID); err != nil {
			return err
		}
		post, err := findPost(tx, op, pid)
		if err != nil {
			return err
		}
		report = models.Report{UserID: userID, PostID: post.ID, Reason: reason}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).
			Where("id = ? AND status = ?", post.ID, models.PostStatusNormal).
			UpdateColumn("status", models.PostStatusReported).Error
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("post reported", "pid", pid, "by", userID)
	return &report, nil
}

// ModeratePost sets the moderation status of a post.
func (e *Engine) ModeratePost(ctx context.Context, actorID uint, pid string, status models.PostStatus) (*models.Post, error) {
	const op = "ModeratePost"
	if !status.Valid() {
		return nil, newError(op, ErrValidation, "unknown status %q", status)
	}
	var post *models.Post
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		actor, err := findUser(tx, op, actorID)
		if err != nil {
			return err
		}
		if err := e.authorize(op, actor, CapModeratePosts); err != nil {
			return err
		}
		if post, err = findPost(tx, op, pid); err != nil {
			return err
		}
		if err := tx.Model(post).UpdateColumn("status", status).Error; err != nil {
			return err
		}
		post.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("post moderated", "pid", pid, "status", status, "by", actorID)
	return post, nil
}

type CommentView struct {
	models.Comment
	HTML template.HTML `json:"html"`
}

type PostDetail struct {
	Post     models.Post   `json:"post"`
	HTML     template.HTML `json:"html"`
	Liked    bool          `json:"liked"`
	Comments []CommentView `json:"comments"`
}

// GetPost loads a post with its comments, rendered to sanitized HTML.
// Removed posts are only visible to their author and moderators. viewerID
// 0 means anonymous.
func (e *Engine) GetPost(ctx context.Context, viewerID uint, pid string) (*PostDetail, error) {
	const op = "GetPost"
	gdb := e.db.WithContext(ctx)

	var post models.Post
	if err := gdb.Preload("User").Where("pid = ?", pid).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(op, ErrNotFound, "post not found")
		}
		return nil, storeError(op, err)
	}

	var viewer *models.User
	if viewerID != 0 {
		var u models.User
		if err := gdb.First(&u, viewerID).Error; err == nil {
			viewer = &u
		}
	}
	if post.Status == models.PostStatusRemoved &&
		(viewer == nil || (viewer.ID != post.UserID && !e.authz.Can(viewer, CapModeratePosts))) {
		return nil, newError(op, ErrNotFound, "post not found")
	}

	var comments []models.Comment
	if err := gdb.Preload("User").
		Where("post_id = ?", post.ID).
		Order("is_best_answer DESC, created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, storeError(op, err)
	}

	likes, err := countLikes(gdb, post.ID)
	if err != nil {
		return nil, storeError(op, err)
	}
	post.LikeCount = int(likes)
	post.CommentCount = len(comments)

	detail := &PostDetail{
		Post:     post,
		HTML:     utils.RenderMarkdown(post.Body),
		Comments: make([]CommentView, 0, len(comments)),
	}
	for _, c := range comments {
		detail.Comments = append(detail.Comments, CommentView{Comment: c, HTML: utils.RenderComment(c.Body)})
	}
	if viewer != nil {
		var n int64
		if err := gdb.Model(&models.PostLike{}).
			Where("user_id = ? AND post_id = ?", viewer.ID, post.ID).
			Count(&n).Error; err != nil {
			return nil, storeError(op, err)
		}
		detail.Liked = n > 0
	}
	return detail, nil
}

const (
	maxListLimit = 100
	excerptRunes = 200
)

// ListPosts returns the newest visible posts, optionally of one subject.
// Each post carries a plain-text excerpt of its body.
func (e *Engine) ListPosts(ctx context.Context, subject string, limit int) ([]models.Post, error) {
	const op = "ListPosts"
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	gdb := e.db.WithContext(ctx)

	query := gdb.Preload("User").
		Where("status <> ?", models.PostStatusRemoved).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if subject = strings.TrimSpace(subject); subject != "" {
		query = query.Where("subject = ?", subject)
	}
	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, storeError(op, err)
	}
	if err := fillCounts(gdb, posts); err != nil {
		return nil, storeError(op, err)
	}
	for i := range posts {
		posts[i].Excerpt = utils.Excerpt(utils.RenderMarkdown(posts[i].Body), excerptRunes)
	}
	return posts, nil
}

// fillCounts 批量填充点赞数和评论数
func fillCounts(gdb *gorm.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	type countRow struct {
		PostID uint
		N      int
	}
	count := func(model any) (map[uint]int, error) {
		var rows []countRow
		if err := gdb.Model(model).
			Select("post_id, COUNT(*) AS n").
			Where("post_id IN ?", ids).
			Group("post_id").
			Scan(&rows).Error; err != nil {
			return nil, err
		}
		out := make(map[uint]int, len(rows))
		for _, r := range rows {
			out[r.PostID] = r.N
		}
		return out, nil
	}

	likes, err := count(&models.PostLike{})
	if err != nil {
		return err
	}
	comments, err := count(&models.Comment{})
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].LikeCount = likes[posts[i].ID]
		posts[i].CommentCount = comments[posts[i].ID]
	}
	return nil
}
