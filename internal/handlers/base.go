package handlers

import (
	"errors"
	"net/http"

	"brainshare/internal/services"
	"brainshare/internal/utils"

	"github.com/gin-gonic/gin"
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrUnauthorized, http.StatusUnauthorized},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrAlreadyExists, http.StatusConflict},
	{services.ErrAlreadySolved, http.StatusConflict},
	{services.ErrAlreadyOwned, http.StatusConflict},
	{services.ErrInvalidTemplate, http.StatusUnprocessableEntity},
	{services.ErrRateLimitExceeded, http.StatusTooManyRequests},
}

// respondError writes err as {"error": message} with the status of its kind.
// Store failures hide their cause.
func respondError(c *gin.Context, err error) {
	for _, k := range statusByKind {
		if errors.Is(err, k.kind) {
			msg := err.Error()
			var e *services.Error
			if errors.As(err, &e) {
				msg = e.Message
			}
			c.AbortWithStatusJSON(k.status, gin.H{"error": msg})
			return
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// paramID parses a numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id := utils.StringToUint(c.Param(name))
	if id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
