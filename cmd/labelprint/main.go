package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"labelprint/internal/app"
	"labelprint/internal/config"
	u "labelprint/internal/infra/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "labelprint",
		Short: "Render and print labels on a local label printer",
		Long: `labelprint renders label text with a typst template and sends the
result to a printer through lp.

Without a subcommand it starts the HTTP server (same as "labelprint serve").`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(newServeCmd(), newPrintCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server exposing POST /print",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	initLogger(cfg)

	rdb := newRedisClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	app := app.SetupApp(cfg, rdb)

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
	return nil
}

func initLogger(cfg config.Config) {
	u.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
}

// newRedisClient returns nil when Redis is not configured.
func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// startServer starts the Fiber app and blocks until a termination signal
// arrives or the listener fails, then shuts down and closes idleConnsClosed.
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	listenErr := make(chan error, 1)
	go func() {
		u.Info("Starting label print server", "addr", cfg.Server.Addr(), "printer", cfg.Label.PrinterName)
		if err := app.Listen(cfg.Server.Addr()); err != nil {
			listenErr <- err
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigint)

	select {
	case <-sigint:
		u.Warn("Shutdown signal received, closing server...")
	case err := <-listenErr:
		u.Error("Server error", "error", err)
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		u.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	u.Info("Server stopped cleanly")
}
