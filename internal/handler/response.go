package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoapp/internal/authz"
	"todoapp/internal/model"
	"todoapp/internal/service"
	"todoapp/pkg/logger"
)

const (
	SessionCookie = "todo_session"
	CSRFCookie    = "csrf_id"

	// gin context keys
	UserIDKey    = "user_id"
	CSRFTokenKey = "csrf_token"
)

// WantsJSON reports whether the client asked for JSON rather than a page.
func WantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) && c.GetHeader("Accept") == "" {
		return true
	}
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// getUserID reads the id the auth middleware stored.
func getUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	id, ok := v.(int)
	if !ok || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return id, true
}

// parseID reads :id. Malformed ids can never match a row, so they are reported as 404.
func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "todo not found"})
		return 0, false
	}
	return id, true
}

// writeError maps service errors to JSON responses.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Fields})
	case authz.IsForbidden(err), errors.Is(err, model.ErrNotFound):
		// other users' todos are indistinguishable from missing ones
		c.JSON(http.StatusNotFound, gin.H{"error": "todo not found"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// page returns the data every template expects.
func page(c *gin.Context, title string) gin.H {
	return gin.H{
		"title":     title,
		"csrfToken": c.GetString(CSRFTokenKey),
		"errors":    map[string]string{},
	}
}

func fieldErrors(err error) (map[string]string, bool) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}
