package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/circleboard/internal/config"
	"github.com/HammerMeetNail/circleboard/internal/database"
	"github.com/HammerMeetNail/circleboard/internal/handlers"
	"github.com/HammerMeetNail/circleboard/internal/logging"
	"github.com/HammerMeetNail/circleboard/internal/middleware"
	"github.com/HammerMeetNail/circleboard/internal/notify"
	"github.com/HammerMeetNail/circleboard/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Server.LogLevel)
	if cfg.Server.Debug {
		level = logging.LevelDebug
	}
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)
	logger.Debug("Debug logging enabled", map[string]interface{}{"env": cfg.Server.Environment})

	logger.Info("Starting circleboard server...")

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), cfg.Server.MigrationsPath)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Migrate(logger); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)
	publisher := notify.NewRedisPublisher(redisAdapter, logger)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(dbAdapter, redisAdapter, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	friendService := services.NewFriendService(dbAdapter)
	groupService := services.NewGroupService(dbAdapter)
	announcementService := services.NewAnnouncementService(dbAdapter)
	invitationService := services.NewInvitationService(dbAdapter)
	conversationService := services.NewConversationService(dbAdapter)
	messageService := services.NewMessageService(dbAdapter, publisher,
		cfg.Messaging.DefaultPageSize, cfg.Messaging.MaxPageSize)
	boardService := services.NewBoardService(dbAdapter)

	hub := notify.NewHub(notify.RedisSubscriber(redisDB.Client), logger)
	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.WithError(err).Error("Notification hub stopped")
		}
	}()

	authLimiter := middleware.NewRateLimiter(redisDB.Client, cfg.Auth.RateLimit, cfg.Auth.RateWindow, "ratelimit:auth", logger)
	go authLimiter.Cleanup(ctx, cfg.Auth.RateWindow)

	mux := newRouter(routeHandlers{
		health:      handlers.NewHealthHandler(db, redisDB),
		auth:        handlers.NewAuthHandler(userService, authService),
		friend:      handlers.NewFriendHandler(friendService),
		group:       handlers.NewGroupHandler(groupService, announcementService, invitationService),
		message:     handlers.NewMessageHandler(conversationService, messageService),
		board:       handlers.NewBoardHandler(boardService),
		ws:          handlers.NewWSHandler(authService, hub, cfg.Messaging.WSAllowAnyOrigin),
		requireAuth: middleware.NewAuthMiddleware(authService).RequireAuth,
		authLimit:   authLimiter.Limit,
	})

	handler := middleware.Chain(mux,
		middleware.NewRecoverer(logger).Apply,
		middleware.NewRequestLogger(logger).Apply,
		middleware.NewSecurityHeaders(cfg.Server.Secure).Apply,
		middleware.NewCompress().Apply,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		cancel()
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
