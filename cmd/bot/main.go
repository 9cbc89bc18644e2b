package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroshb/scrim_bot/internal/api"
	"github.com/mroshb/scrim_bot/internal/config"
	"github.com/mroshb/scrim_bot/internal/database"
	"github.com/mroshb/scrim_bot/internal/handlers"
	"github.com/mroshb/scrim_bot/internal/middleware"
	"github.com/mroshb/scrim_bot/internal/repositories"
	"github.com/mroshb/scrim_bot/internal/repositories/memory"
	"github.com/mroshb/scrim_bot/internal/services"
	"github.com/mroshb/scrim_bot/pkg/logger"
	"github.com/mroshb/scrim_bot/telegram"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel, cfg.AppEnv)
	defer logger.Sync()

	logger.Info("Starting Scrim Matchmaking Bot...")

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", err)
	}

	// Validate production security settings
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", err)
	}

	botAPI, err := telegram.NewAPI(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize bot", err)
	}

	now := services.UTCNow
	engineCfg := cfg.Engine

	notifier := telegram.NewNotifier(botAPI, store, now, engineCfg.NotifyInterval())
	guard := services.NewAvoidListGuard(store, now, engineCfg.AvoidCooldown())
	waitlist := services.NewWaitlistManager(store, notifier, now, engineCfg.ScanLimit)
	engine := services.NewMatchingEngine(store, store, guard, waitlist, now, services.MatchingEngineOptions{
		ApprovalTTL:     engineCfg.ApprovalTTL(),
		MaxClaimRetries: engineCfg.MaxClaimRetries,
		ScanLimit:       engineCfg.ScanLimit,
	})
	approvals := services.NewApprovalCoordinator(store, store, guard, engine, now)
	reaper := services.NewExpiryReaper(store, store, approvals, guard, waitlist, now, engineCfg.ReaperInterval())
	scrims := services.NewScrimService(store, engine, approvals, waitlist, now, engineCfg.RequestTTL())

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerUser, time.Minute)
	defer limiter.Stop()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go notifier.Run(ctx)
	go reaper.Run(ctx)

	bot := telegram.InitBot(cfg, botAPI, handlers.NewHandlerManager(cfg, scrims, limiter, now))

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           api.NewRouter(scrims, cfg.JWTSecret),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("API server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server failed", "error", err)
		}
	}()

	logger.Info("Bot started successfully", "env", cfg.AppEnv, "store", cfg.StoreDriver)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	bot.Stop()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", "error", err)
	}
	logger.Info("Bot stopped")
}

// openStore returns the persistence backend named by STORE_DRIVER.
func openStore(cfg *config.Config) (services.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using in-memory store; state is lost on restart")
		return memory.NewStore(), nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return repositories.NewStore(db), nil
}
