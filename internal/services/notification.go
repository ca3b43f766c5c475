package services

import (
	"context"
	"errors"

	"brainshare/internal/models"

	"gorm.io/gorm"
)

// notifyLikeOnce records a like notification unless an unread one already
// exists for the same (recipient, sender, post). Callers hold the post row
// lock, which serializes the check.
func notifyLikeOnce(tx *gorm.DB, recipientID, senderID, postID uint) (bool, error) {
	var n int64
	if err := tx.Model(&models.Notification{}).
		Where("recipient_id = ? AND sender_id = ? AND post_id = ? AND action = ? AND is_read = ?",
			recipientID, senderID, postID, models.NotificationActionLike, false).
		Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	err := tx.Create(&models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		PostID:      postID,
		Action:      models.NotificationActionLike,
	}).Error
	return err == nil, err
}

// notifyComment records a notification for every comment.
func notifyComment(tx *gorm.DB, recipientID, senderID, postID uint) error {
	return tx.Create(&models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		PostID:      postID,
		Action:      models.NotificationActionComment,
	}).Error
}

const notificationPageSize = 50

// ListNotifications returns the newest notifications of userID. With
// markRead the returned unread ones are marked read afterwards; the slice
// still shows them as they were.
func (e *Engine) ListNotifications(ctx context.Context, userID uint, markRead bool) ([]models.Notification, error) {
	const op = "ListNotifications"
	var list []models.Notification
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		if err := tx.Preload("Sender").Preload("Post").
			Where("recipient_id = ?", userID).
			Order("created_at DESC, id DESC").
			Limit(notificationPageSize).
			Find(&list).Error; err != nil {
			return err
		}
		if !markRead {
			return nil
		}
		var unread []uint
		for _, n := range list {
			if !n.IsRead {
				unread = append(unread, n.ID)
			}
		}
		if len(unread) == 0 {
			return nil
		}
		return tx.Model(&models.Notification{}).
			Where("id IN ?", unread).
			UpdateColumn("is_read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (e *Engine) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := e.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&n).Error; err != nil {
		return 0, storeError("UnreadCount", err)
	}
	return n, nil
}

// MarkRead marks one notification of userID as read.
func (e *Engine) MarkRead(ctx context.Context, userID, id uint) error {
	const op = "MarkRead"
	res := e.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, userID).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return storeError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return e.notificationExists(ctx, op, userID, id)
	}
	return nil
}

func (e *Engine) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := e.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return 0, storeError("MarkAllRead", res.Error)
	}
	return res.RowsAffected, nil
}

func (e *Engine) DeleteNotification(ctx context.Context, userID, id uint) error {
	const op = "DeleteNotification"
	res := e.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return storeError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return newError(op, ErrNotFound, "notification not found")
	}
	return nil
}

// notificationExists tells an already read notification apart from one the
// user does not own, since an unchanged row may report zero affected rows.
func (e *Engine) notificationExists(ctx context.Context, op string, userID, id uint) error {
	var n models.Notification
	err := e.db.WithContext(ctx).Select("id").
		Where("id = ? AND recipient_id = ?", id, userID).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(op, ErrNotFound, "notification not found")
	}
	if err != nil {
		return storeError(op, err)
	}
	return nil
}
