package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoapp/internal/service"
	"todoapp/internal/session"
	"todoapp/pkg/logger"
)

type AuthHandler struct {
	auth         *service.AuthService
	sessions     *session.Manager
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, sessions *session.Manager, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		sessions:     sessions,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type signupRequest struct {
	FirstName string `form:"firstName" json:"firstName"`
	LastName  string `form:"lastName" json:"lastName"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
}

type loginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Landing handles GET /
func (h *AuthHandler) Landing(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil {
		if _, err := h.sessions.Resolve(c.Request.Context(), token); err == nil {
			c.Redirect(http.StatusFound, "/todos")
			return
		}
	}
	c.HTML(http.StatusOK, "index.tmpl", page(c, "Todo Manager"))
}

// SignupPage handles GET /signup
func (h *AuthHandler) SignupPage(c *gin.Context) {
	data := page(c, "Sign up")
	data["form"] = signupRequest{}
	c.HTML(http.StatusOK, "signup.tmpl", data)
}

// Signup handles POST /users
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.auth.Register(c.Request.Context(), service.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if fields, ok := fieldErrors(err); ok && !WantsJSON(c) {
			data := page(c, "Sign up")
			data["errors"] = fields
			data["form"] = signupRequest{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
			c.HTML(http.StatusUnprocessableEntity, "signup.tmpl", data)
			return
		}
		writeError(c, h.logger, err)
		return
	}

	if !h.startSession(c, u.ID) {
		return
	}
	c.Redirect(http.StatusFound, "/todos")
}

// LoginPage handles GET /login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	data := page(c, "Sign in")
	data["email"] = ""
	c.HTML(http.StatusOK, "login.tmpl", data)
}

// Login handles POST /session
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) && !WantsJSON(c) {
			data := page(c, "Sign in")
			data["loginError"] = "Invalid email or password"
			data["email"] = req.Email
			c.HTML(http.StatusUnauthorized, "login.tmpl", data)
			return
		}
		writeError(c, h.logger, err)
		return
	}

	if !h.startSession(c, u.ID) {
		return
	}
	c.Redirect(http.StatusFound, "/todos")
}

// Signout handles GET /signout
func (h *AuthHandler) Signout(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	if token, err := c.Cookie(SessionCookie); err == nil {
		if err := h.sessions.Revoke(c.Request.Context(), token); err != nil {
			log.Warn("Failed to revoke session", zap.Error(err))
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) startSession(c *gin.Context, userID int) bool {
	token, err := h.sessions.Issue(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(h.sessions.TTL().Seconds()), "/", "", h.secureCookie, true)
	logger.WithTrace(c.Request.Context(), h.logger).Info("Session started", zap.Int("user_id", userID))
	return true
}
