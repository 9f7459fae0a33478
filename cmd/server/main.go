package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hugh/staff-manager/internal/api"
	"github.com/hugh/staff-manager/internal/api/handlers"
	"github.com/hugh/staff-manager/internal/auth"
	"github.com/hugh/staff-manager/internal/database"
	"github.com/hugh/staff-manager/internal/departments"
	"github.com/hugh/staff-manager/internal/events"
	"github.com/hugh/staff-manager/internal/users"
	"github.com/hugh/staff-manager/pkg/config"
	"github.com/hugh/staff-manager/pkg/queue"
	"github.com/hugh/staff-manager/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting staff-manager server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStartup()

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := database.EnsureRoles(startupCtx, db); err != nil {
		logger.Error("failed to seed roles", "error", err)
		os.Exit(1)
	}

	// Redis is optional; without it refresh tokens cannot be revoked.
	var (
		redisClient *redis.Client
		revocations auth.RevocationStore
	)
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
		})
		if err := redisClient.Ping(startupCtx).Err(); err != nil {
			logger.Warn("failed to connect to Redis, refresh revocation disabled", "error", err)
			redisClient.Close()
			redisClient = nil
		} else {
			revocations = auth.NewRedisRevocationStore(redisClient)
		}
	}

	var (
		publisher events.Publisher = events.NopPublisher{}
		broker    handlers.Broker
		mq        *queue.Connection
	)
	if cfg.RabbitMQ.URL != "" {
		mq, err = queue.Connect(startupCtx, &cfg.RabbitMQ, logger)
		if err != nil {
			logger.Warn("failed to connect to RabbitMQ, change events disabled", "error", err)
		} else {
			publisher = events.NewAMQPPublisher(mq.Channel, cfg.RabbitMQ.Exchange)
			broker = mq.Conn
		}
	}

	jwtService := auth.NewJWTService(auth.TokenConfig{
		AccessKey:  cfg.JWT.AccessKey,
		RefreshKey: cfg.JWT.RefreshKey,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	})
	authService := auth.NewService(db, jwtService, revocations, logger)
	departmentService := departments.NewService(db, publisher, logger)
	userService := users.NewService(db, departmentService, publisher, logger)

	if cfg.Bootstrap.AdminEmail != "" {
		if _, err := userService.EnsureAdmin(startupCtx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			logger.Error("failed to create bootstrap admin", "error", err)
			os.Exit(1)
		}
	}

	if cfg.JWT.AccessKey == "change-me-access-key-in-production" && !cfg.Server.IsDevelopment() {
		logger.Warn("JWT keys are the built-in defaults, set JWT_ACCESS_KEY and JWT_REFRESH_KEY")
	}

	router := api.NewRouter(api.RouterConfig{
		DB:                db,
		Redis:             redisClient,
		Broker:            broker,
		Logger:            logger,
		JWTService:        jwtService,
		AuthService:       authService,
		UserService:       userService,
		DepartmentService: departmentService,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		RateLimitReqs:     cfg.RateLimit.Requests,
		RateLimitSecs:     cfg.RateLimit.WindowSeconds,
		StaticDir:         cfg.Web.StaticDir,
		SecureCookies:     !cfg.Server.IsDevelopment(),
		TrustProxy:        cfg.Server.TrustProxy,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	router.Close()

	if mq != nil {
		if err := mq.Close(); err != nil {
			logger.Warn("closing rabbitmq", "error", err)
		}
	}

	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
