package handlers

import (
	"net/http"

	"brainshare/internal/middleware"
	"brainshare/internal/services"

	"github.com/gin-gonic/gin"
)

type CompanionHandler struct {
	eng *services.Engine
}

func NewCompanionHandler(eng *services.Engine) *CompanionHandler {
	return &CompanionHandler{eng: eng}
}

// Show observes the companion, evolving it if the owner's level moved.
func (h *CompanionHandler) Show(c *gin.Context) {
	user := middleware.CurrentUser(c)
	view, err := h.eng.ObserveCompanion(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CompanionHandler) Templates(c *gin.Context) {
	list, err := h.eng.ListCompanionTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": list})
}

type adoptRequest struct {
	CompanionID uint   `json:"companion_id" form:"companion_id"`
	Nickname    string `json:"nickname" form:"nickname"`
}

func (h *CompanionHandler) Adopt(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req adoptRequest
	if err := c.ShouldBind(&req); err != nil || req.CompanionID == 0 {
		badRequest(c, "companion_id is required")
		return
	}
	uc, err := h.eng.AdoptCompanion(c.Request.Context(), user.ID, req.CompanionID, req.Nickname)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"companion": uc})
}
