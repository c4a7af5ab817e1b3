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

	"meal-calendar/internal/apiclient"
	"meal-calendar/internal/config"
	"meal-calendar/internal/database"
	"meal-calendar/internal/logging"
	"meal-calendar/internal/telegram"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.LogDevelopment,
	})
	defer logger.Sync()

	// 2. Session storage
	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	sessions := telegram.NewSessionRepository(db.SQL, time.Duration(cfg.SessionTTLHours)*time.Hour)

	// 3. API client
	api := apiclient.New(cfg.APIBaseURL, cfg.APIAuthSecret)
	healthCtx, cancelHealth := context.WithTimeout(context.Background(), 5*time.Second)
	if err := api.Health(healthCtx); err != nil {
		logger.Warn("Meal calendar API is not reachable yet", zap.String("url", cfg.APIBaseURL), zap.Error(err))
	}
	cancelHealth()

	// 4. Telegram
	botAPI, err := telegram.NewBotAPI(cfg.TelegramBotToken, cfg.TelegramWebhookURL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Telegram Bot", zap.Error(err))
	}
	bot := telegram.NewBot(botAPI, api, sessions, cfg.IsAllowedUser, logger)

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupSessions(ctx, sessions, logger)

	go func() {
		logger.Info("Telegram Bot Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server exiting")
}

// cleanupSessions drops expired chat sessions at start and every hour.
func cleanupSessions(ctx context.Context, sessions *telegram.SessionRepository, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		removed, err := sessions.CleanupExpired(ctx)
		if err != nil {
			logger.Warn("Failed to clean up sessions", zap.Error(err))
		} else if removed > 0 {
			logger.Info("Expired sessions removed", zap.Int64("count", removed))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
