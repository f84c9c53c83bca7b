package httpserver

import (
	"context"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"todoapp/internal/handler"
	"todoapp/internal/session"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	authHandler *handler.AuthHandler,
	todoHandler *handler.TodoHandler,
	sessions *session.Manager,
	csrf *session.CSRF,
	store Pinger,
	templates *template.Template,
	secureCookie bool,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogger(logger))
	r.SetHTMLTemplate(templates)

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	web := r.Group("/")
	web.Use(CSRFMiddleware(csrf, secureCookie, logger))
	{
		// Public
		web.GET("/", authHandler.Landing)
		web.GET("/signup", authHandler.SignupPage)
		web.POST("/users", authHandler.Signup)
		web.GET("/login", authHandler.LoginPage)
		web.POST("/session", authHandler.Login)
		web.GET("/signout", authHandler.Signout)

		// Protected
		auth := web.Group("/")
		auth.Use(AuthMiddleware(sessions, logger))
		{
			auth.GET("/todos", todoHandler.ListTodos)
			auth.POST("/todos", todoHandler.CreateTodo)
			auth.GET("/todos/:id", todoHandler.GetTodo)
			auth.PUT("/todos/:id", todoHandler.UpdateTodo)
			auth.DELETE("/todos/:id", todoHandler.DeleteTodo)
			auth.GET("/alltodos", todoHandler.AllTodos)
		}
	}

	return r
}
