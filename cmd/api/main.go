package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskager/taskager/internal/auth"
	"github.com/taskager/taskager/internal/config"
	"github.com/taskager/taskager/internal/database"
	"github.com/taskager/taskager/internal/email"
	httpServer "github.com/taskager/taskager/internal/http"
	"github.com/taskager/taskager/internal/logging"
	"github.com/taskager/taskager/internal/ratelimit"
	"github.com/taskager/taskager/internal/task"
	"github.com/taskager/taskager/internal/user"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := database.OpenPostgres(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := database.OpenRedis(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := user.NewRepository(db)
	taskRepo := task.NewRepository(db)

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient)

	// Initialize session token service
	tokenService, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Select the email strategy once at startup: a real SMTP sender, or the
	// auto-verify fallback when credentials are absent or placeholders.
	var mailer auth.EmailService
	if cfg.Email.IsConfigured() {
		mailer = email.NewService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.ClientURL,
			logger,
		)
		logger.Info("email service configured", "smtp_host", cfg.Email.SMTPHost)
	} else {
		logger.Warn("email not configured, users will be auto-verified on registration")
	}

	// Initialize services
	authService := auth.NewService(
		userRepo,
		tokenService,
		mailer,
		logger,
		cfg.Auth.SessionTokenDuration,
	)
	taskService := task.NewService(taskRepo, logger)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(authService, rateLimiter, logger)
	authMiddleware := auth.NewMiddleware(tokenService, !cfg.Server.IsDevelopment())
	taskHandler := task.NewHandler(taskService, logger)

	// Initialize router
	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, taskHandler, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// newTokenService builds the configured session token backend.
func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.Backend {
	case "jwt":
		return auth.NewJWTService(cfg.Key)
	default:
		return auth.NewPasetoService(cfg.Key)
	}
}
