package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-calendar/internal/app"
	"meal-calendar/internal/config"
	"meal-calendar/internal/database"
	"meal-calendar/internal/llm"
	"meal-calendar/internal/logging"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/server"
	"meal-calendar/internal/shopping"
	"meal-calendar/internal/web"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.LogDevelopment,
	})
	defer logger.Sync()

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		err = serve(cfg, logger)
	case "migrate":
		err = migrate(cfg, logger)
	case "metrics-cleanup":
		err = metricsCleanup(cfg, logger, os.Args[2:])
	case "usage":
		err = usage(cfg, logger, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Fatal("Command failed", zap.String("command", command), zap.Error(err))
	}
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	client, err := llm.NewClient(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s client: %w", cfg.LLMProvider, err)
	}
	defer client.Close()

	collectors := metrics.NewCollectors()
	application := app.NewApp(
		meals.NewRepository(db.SQL),
		planner.NewPlanner(client, cfg.PlanLanguage),
		shopping.NewGenerator(client, cfg.PlanLanguage),
		metrics.NewStore(db.SQL),
		collectors,
		logger,
	)

	pages, err := web.NewHandler(application, logger)
	if err != nil {
		return err
	}

	srv := server.New(":"+cfg.Port, application, collectors, logger, server.Options{
		AuthSecret: cfg.APIAuthSecret,
		WebUser:    cfg.WebUsername,
		Web:        pages.Routes(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

func migrate(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	return db.Close()
}

func metricsCleanup(cfg *config.Config, logger *zap.Logger, args []string) error {
	cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
	cleanupCmd.Parse(args)

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	affected, err := metrics.NewStore(db.SQL).Cleanup(context.Background(), *days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}

func usage(cfg *config.Config, logger *zap.Logger, args []string) error {
	usageCmd := flag.NewFlagSet("usage", flag.ExitOnError)
	days := usageCmd.Int("days", 7, "Report the last N days")
	usageCmd.Parse(args)

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := metrics.NewStore(db.SQL).GetDailyUsage(context.Background(), *days)
	if err != nil {
		return err
	}

	fmt.Printf("Generation usage, last %d days\n\n", *days)
	if len(report) == 0 {
		fmt.Println("  no data yet")
	}
	for _, d := range report {
		fmt.Printf("  %s  %6d prompt  %6d completion  %3d calls  %3d failed\n",
			d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution, d.Failures)
	}

	health := metrics.GetSysHealth(cfg.DatabasePath)
	fmt.Println("\nSystem")
	fmt.Printf("  RAM: %dMB (Alloc) / %dMB (Sys), GC runs: %d\n", health.AllocMB, health.SysMB, health.NumGC)
	fmt.Printf("  Goroutines: %d\n", health.Goroutines)
	fmt.Printf("  Database: %s (%s) + %s journal\n",
		humanize.IBytes(health.DatabaseBytes), cfg.DatabasePath, humanize.IBytes(health.JournalBytes))
	return nil
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve              Run the API, web calendar and /metrics (default)")
	fmt.Println("  migrate            Apply database migrations and exit")
	fmt.Println("  metrics-cleanup    Remove old generation usage records (-days N)")
	fmt.Println("  usage              Print daily generation usage and system health (-days N)")
}
