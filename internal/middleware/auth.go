package middleware

import (
	"log/slog"
	"net/http"

	"brainshare/internal/models"
	"brainshare/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CheckUserKey   = "user"
	UnreadCountKey = "unread_count"
	SessionUserKey = "user_id"
)

// AuthRequired rejects requests without a logged-in user. LoadUser must
// run first.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// LoadUser 从 session 读取用户并写入 context
func LoadUser(eng *services.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(SessionUserKey).(uint)
		if !ok {
			c.Next()
			return
		}

		user, err := eng.GetUser(c.Request.Context(), id)
		if err != nil {
			// stale cookie: the account is gone
			slog.Debug("session user not loaded", "user_id", id, "error", err)
			session.Delete(SessionUserKey)
			_ = session.Save()
			c.Next()
			return
		}
		c.Set(CheckUserKey, user)

		if count, err := eng.UnreadCount(c.Request.Context(), user.ID); err == nil {
			c.Set(UnreadCountKey, count)
		}
		c.Next()
	}
}

// CurrentUser returns the logged-in user or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
