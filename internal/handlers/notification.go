package handlers

import (
	"net/http"

	"brainshare/internal/middleware"
	"brainshare/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	eng *services.Engine
}

func NewNotificationHandler(eng *services.Engine) *NotificationHandler {
	return &NotificationHandler{eng: eng}
}

// List returns the inbox. Viewing marks it read unless ?mark_read=false.
func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	markRead := c.DefaultQuery("mark_read", "true") != "false"

	list, err := h.eng.ListNotifications(c.Request.Context(), user.ID, markRead)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) Unread(c *gin.Context) {
	user := middleware.CurrentUser(c)
	n, err := h.eng.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.eng.MarkRead(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := middleware.CurrentUser(c)
	n, err := h.eng.MarkAllRead(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.eng.DeleteNotification(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
