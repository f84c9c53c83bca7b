package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"todoapp/internal/config"
	"todoapp/internal/handler"
	"todoapp/internal/httpserver"
	"todoapp/internal/repository"
	"todoapp/internal/repository/sqlite"
	"todoapp/internal/service"
	"todoapp/internal/session"
	"todoapp/internal/web"
	"todoapp/pkg/circuitbreaker"
	pkgconfig "todoapp/pkg/config"
	"todoapp/pkg/db"
	"todoapp/pkg/logger"
	"todoapp/pkg/mq"
	pkgredis "todoapp/pkg/redis"
)

type taskStore interface {
	service.TaskStore
	httpserver.Pinger
}

type stores struct {
	tasks taskStore
	users service.UserStore
	close func()
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			tasks: repository.NewTaskRepository(pool, log),
			users: repository.NewUserRepository(pool),
			close: pool.Close,
		}, nil
	default:
		conn, err := db.NewSQLite(ctx, cfg.Store.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return &stores{
			tasks: sqlite.NewTaskRepository(conn, log),
			users: sqlite.NewUserRepository(conn),
			close: func() { _ = conn.Close() },
		}, nil
	}
}

func main() {
	env := pkgconfig.GetConfigEnv()
	cfg, err := config.Load(env, pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		// logger 还没有初始化
		zap.NewExample().Fatal("Failed to load config", zap.String("env", env), zap.Error(err))
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Development)
	defer log.Sync()

	log.Info("Starting todo server...",
		zap.String("env", env),
		zap.String("store", cfg.Store.Driver),
		zap.String("port", cfg.Server.Port),
		zap.String("due_today_mode", cfg.Tasks.DueTodayMode),
	)

	ctx := context.Background()

	// Store
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to init store", zap.Error(err))
	}
	defer st.close()
	log.Info("Store ready", zap.String("driver", cfg.Store.Driver))

	// Sessions: Redis 可选，未配置时使用进程内存储
	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rdb, err := pkgredis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to init redis", zap.Error(err))
		}
		defer rdb.Close()
		sessionStore = session.NewRedisStore(rdb)
		log.Info("Redis session store enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Events: MQ 可选
	var events service.EventPublisher
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		events = mq.NewGuardedPublisher(publisher, circuitbreaker.New(circuitbreaker.DefaultConfig()))
		log.Info("Todo events enabled", zap.String("exchange", mq.ExchangeName))
	}

	mode, err := service.ParseDueTodayMode(cfg.Tasks.DueTodayMode)
	if err != nil {
		log.Fatal("Invalid classification mode", zap.Error(err))
	}
	loc, err := time.LoadLocation(cfg.Tasks.Timezone)
	if err != nil {
		log.Fatal("Invalid timezone", zap.Error(err))
	}
	classifier := service.Classifier{Mode: mode, Location: loc}

	authService := service.NewAuthService(st.users, cfg.Auth.BcryptCost, log)
	todoService := service.NewTodoService(st.tasks, events, classifier, log)

	sessions := session.NewManager(sessionStore, cfg.JWT.Secret, cfg.JWT.TTL)
	csrf := session.NewCSRF(cfg.CSRF.Secret, cfg.CSRF.TTL)

	authHandler := handler.NewAuthHandler(authService, sessions, cfg.Server.SecureCookie, log)
	todoHandler := handler.NewTodoHandler(todoService, authService, log)

	router := httpserver.NewRouter(
		authHandler,
		todoHandler,
		sessions,
		csrf,
		st.tasks,
		web.Templates(loc),
		cfg.Server.SecureCookie,
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down todo server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("todo server shutdown complete")
}
