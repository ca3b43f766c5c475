package handlers

import (
	"net/http"

	"brainshare/internal/middleware"
	"brainshare/internal/models"
	"brainshare/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler holds moderation endpoints. The capability checks live in
// the engine, so a non-admin gets 403 from there.
type AdminHandler struct {
	eng *services.Engine
}

func NewAdminHandler(eng *services.Engine) *AdminHandler {
	return &AdminHandler{eng: eng}
}

type roleRequest struct {
	Role string `json:"role" form:"role"`
}

func (h *AdminHandler) ChangeRole(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	user, err := h.eng.ChangeRole(c.Request.Context(), actor.ID, id, models.Role(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
}

// ModeratePost 设置帖子状态（normal / reported / removed）
func (h *AdminHandler) ModeratePost(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	post, err := h.eng.ModeratePost(c.Request.Context(), actor.ID, c.Param("pid"), models.PostStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}
