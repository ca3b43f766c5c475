package handlers

import (
	"net/http"

	"brainshare/internal/middleware"
	"brainshare/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	eng *services.Engine
}

func NewCommentHandler(eng *services.Engine) *CommentHandler {
	return &CommentHandler{eng: eng}
}

type commentRequest struct {
	Body string `json:"body" form:"body"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req commentRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.eng.CreateComment(c.Request.Context(), user.ID, c.Param("pid"), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Solve marks the comment as the best answer of its post.
func (h *CommentHandler) Solve(c *gin.Context) {
	user := middleware.CurrentUser(c)
	res, err := h.eng.MarkBestAnswer(c.Request.Context(), user.ID, c.Param("cid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
