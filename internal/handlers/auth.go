package handlers

import (
	"net/http"

	"brainshare/internal/middleware"
	"brainshare/internal/models"
	"brainshare/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	eng *services.Engine
}

func NewAuthHandler(eng *services.Engine) *AuthHandler {
	return &AuthHandler{eng: eng}
}

type registerRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	reg, err := h.eng.RegisterUser(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// 注册后直接登录
	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, reg.User.ID)
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":    reg.User,
		"level":   services.Level(reg.User.XP),
		"unlocks": reg.Unlocks,
	})
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.eng.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "level": services.Level(user.XP)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Status(http.StatusNoContent)
}
