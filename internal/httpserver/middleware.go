package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoapp/internal/handler"
	"todoapp/internal/session"
	"todoapp/pkg/logger"
	"todoapp/pkg/metrics"
	"todoapp/pkg/trace"
)

const (
	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "_csrf"
	maxPeekBody   = 1 << 20
)

// TraceMiddleware 为每个请求注入 trace_id
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromRequest(c.Request)
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderTraceID, traceID)
		c.Next()
	}
}

// RequestLogger 请求日志 + HTTP 指标
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)

		logger.WithTrace(c.Request.Context(), log).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// AuthMiddleware resolves the session cookie and stores user_id in the context.
func AuthMiddleware(sessions *session.Manager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(handler.SessionCookie)
		id, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				logger.WithTrace(c.Request.Context(), log).Error("Session lookup failed", zap.Error(err))
			}
			if c.Request.Method == http.MethodGet && !handler.WantsJSON(c) {
				c.Redirect(http.StatusFound, "/login")
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		// store user_id in context so handlers can use it
		c.Set(handler.UserIDKey, id.UserID)

		c.Next()
	}
}

// CSRFMiddleware keeps a csrf_id cookie on every client and requires a token
// bound to it on state-changing methods.
func CSRFMiddleware(guard *session.CSRF, secureCookie bool, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		unsafe := isUnsafeMethod(c.Request.Method)

		cid, err := c.Cookie(handler.CSRFCookie)
		if err != nil || cid == "" {
			if unsafe {
				rejectCSRF(c, log, "missing csrf cookie")
				return
			}
			cid = guard.NewID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(handler.CSRFCookie, cid, 0, "/", "", secureCookie, true)
		}

		if unsafe {
			if err := guard.Verify(cid, submittedCSRFToken(c)); err != nil {
				rejectCSRF(c, log, err.Error())
				return
			}
		}

		token, err := guard.Token(cid)
		if err != nil {
			logger.WithTrace(c.Request.Context(), log).Error("Failed to sign csrf token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(handler.CSRFTokenKey, token)
		c.Next()
	}
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func rejectCSRF(c *gin.Context, log *zap.Logger, reason string) {
	logger.WithTrace(c.Request.Context(), log).Warn("CSRF check failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("reason", reason),
	)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid csrf token"})
}

// replayBody re-serves the peeked prefix followed by the unread rest of the body.
type replayBody struct {
	io.Reader
	io.Closer
}

// submittedCSRFToken looks in the header, then the form, then a JSON body.
// Only the first maxPeekBody bytes are inspected; the full body is left for the handler.
func submittedCSRFToken(c *gin.Context) string {
	if v := c.GetHeader(csrfHeader); v != "" {
		return v
	}

	if !strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		return c.PostForm(csrfFormField)
	}

	if c.Request.Body == nil {
		return ""
	}
	orig := c.Request.Body
	body, err := io.ReadAll(io.LimitReader(orig, maxPeekBody))
	c.Request.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(body), orig),
		Closer: orig,
	}
	if err != nil {
		return ""
	}

	var payload struct {
		CSRF string `json:"_csrf"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.CSRF
}
