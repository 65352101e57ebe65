package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lena/certscope/internal/api"
	"github.com/lena/certscope/internal/database"
	"github.com/lena/certscope/internal/discovery"
	"github.com/lena/certscope/internal/scanner"
	"github.com/lena/certscope/internal/scheduler"
	"github.com/lena/certscope/internal/store"
	"github.com/lena/certscope/pkg/config"
	"github.com/lena/certscope/pkg/crypto"
	"github.com/lena/certscope/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting CertScope server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize encryptor for credential storage
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - credentials will be lost on restart")
	}
	if cfg.Auth.APIKey == "" {
		logger.Warn("API_KEY not set, API authentication is disabled")
	}

	// Initialize services
	st := store.NewGormStore(db)

	certScanner := scanner.NewCertScanner(logger, &scanner.Config{
		Timeout:     time.Duration(cfg.Scanner.TimeoutSeconds) * time.Second,
		Watchdog:    time.Duration(cfg.Scanner.WatchdogSeconds) * time.Second,
		Concurrency: cfg.Scanner.Concurrency,
		WarningDays: cfg.Scanner.WarningDays,
	})

	discoveryService := discovery.NewService(db, encryptor, logger)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(st, certScanner, logger)
		if err := sched.Start(context.Background()); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("scheduler disabled")
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:            db,
		Logger:        logger,
		Store:         st,
		Scanner:       certScanner,
		Scheduler:     sched,
		Discovery:     discoveryService,
		APIKey:        cfg.Auth.APIKey,
		RateLimitReqs: cfg.RateLimit.Requests,
		RateLimitSecs: cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop scheduled scans, waiting for in-flight runs
	if sched != nil {
		sched.Stop()
	}

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
