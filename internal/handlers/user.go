package handlers

import (
	"net/http"
	"strconv"

	"brainshare/internal/middleware"
	"brainshare/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	eng *services.Engine
}

func NewUserHandler(eng *services.Engine) *UserHandler {
	return &UserHandler{eng: eng}
}

// Profile 用户主页
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	profile, err := h.eng.Profile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	Username string `json:"username" form:"username"`
	AboutMe  string `json:"about_me" form:"about_me"`
	JobTitle string `json:"job_title" form:"job_title"`
	LinkedIn string `json:"linkedin" form:"linkedin"`
}

// UpdateProfile 编辑个人资料
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req updateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	updated, err := h.eng.UpdateProfile(c.Request.Context(), user.ID, services.ProfileInput{
		Username: req.Username,
		AboutMe:  req.AboutMe,
		JobTitle: req.JobTitle,
		LinkedIn: req.LinkedIn,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

func (h *UserHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	board, err := h.eng.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": board})
}

// Achievements lists the catalog with the current user's unlocks.
func (h *UserHandler) Achievements(c *gin.Context) {
	user := middleware.CurrentUser(c)
	list, err := h.eng.ListAchievements(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": list})
}

func (h *UserHandler) EvaluateAchievements(c *gin.Context) {
	user := middleware.CurrentUser(c)
	unlocks, err := h.eng.EvaluateAchievements(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	messages := make([]string, len(unlocks))
	for i, u := range unlocks {
		messages[i] = u.Message()
	}
	c.JSON(http.StatusOK, gin.H{"unlocks": unlocks, "messages": messages})
}
