package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaibs3/orginsights/internal/app"
	"github.com/shaibs3/orginsights/internal/config"
	"github.com/shaibs3/orginsights/internal/handlers"
	"github.com/shaibs3/orginsights/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "orginsights",
	Short:         "Company profile insights service",
	Long:          "Serves organization profiles, posts, employees and followers, scraping and caching them on demand.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default command)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, scrapeCmd, followCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the application with a logger
// configured from it
func bootstrap() (*app.App, *zap.Logger, error) {
	// Initialize logger first (for configuration loading)
	initialLogger, err := logger.NewLogger("production", "info")
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer func() {
		_ = initialLogger.Sync()
	}()

	// Load configuration
	cfg := config.Load(initialLogger)

	// Create application logger with proper configuration
	appLogger, err := logger.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create application logger: %w", err)
	}

	// Log build info
	appLogger.Info("Build info",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	a, err := app.NewApp(cfg, appLogger, handlers.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create application: %w", err)
	}
	return a, appLogger, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	a, appLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	if err := a.Run(); err != nil {
		appLogger.Error("application error", zap.Error(err))
		return err
	}
	return nil
}
