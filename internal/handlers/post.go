package handlers

import (
	"net/http"
	"strconv"

	"brainshare/internal/middleware"
	"brainshare/internal/models"
	"brainshare/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	eng *services.Engine
}

func NewPostHandler(eng *services.Engine) *PostHandler {
	return &PostHandler{eng: eng}
}

// List 最新帖子，可按科目筛选
func (h *PostHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	posts, err := h.eng.ListPosts(c.Request.Context(), c.Query("subject"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *PostHandler) Detail(c *gin.Context) {
	var viewerID uint
	if u := middleware.CurrentUser(c); u != nil {
		viewerID = u.ID
	}
	detail, err := h.eng.GetPost(c.Request.Context(), viewerID, c.Param("pid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type createPostRequest struct {
	Title   string `json:"title" form:"title"`
	Body    string `json:"body" form:"body"`
	Type    string `json:"type" form:"type"`
	Subject string `json:"subject" form:"subject"`
}

func (h *PostHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req createPostRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.eng.CreatePost(c.Request.Context(), user.ID, services.PostInput{
		Title:   req.Title,
		Body:    req.Body,
		Type:    models.PostType(req.Type),
		Subject: req.Subject,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *PostHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.eng.DeletePost(c.Request.Context(), user.ID, c.Param("pid")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reportRequest struct {
	Reason string `json:"reason" form:"reason"`
}

func (h *PostHandler) Report(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req reportRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	report, err := h.eng.ReportPost(c.Request.Context(), user.ID, c.Param("pid"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// Like 点赞/取消点赞
func (h *PostHandler) Like(c *gin.Context) {
	user := middleware.CurrentUser(c)
	res, err := h.eng.ToggleLike(c.Request.Context(), user.ID, c.Param("pid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
