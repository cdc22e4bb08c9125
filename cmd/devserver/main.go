// Command devserver serves a demo page with a filterable table of cars.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlstn/go-iommi"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Serve a demo page with a filterable car table",
	RunE:  runServer,
}

func init() {
	addConfigFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDatabase(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.DSN)
	case "postgres":
		if cfg.DB.DSN == "" {
			return nil, errors.New("postgres needs --dsn or DATABASE_URL")
		}
		dialector = postgres.Open(cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := seedDatabase(db); err != nil {
		return err
	}
	logger.Info("database ready", "driver", cfg.DB.Driver)

	obs := iommi.NewObservability(iommi.ObservabilityConfig{
		TracerProvider:     otel.GetTracerProvider(),
		MeterProvider:      otel.GetMeterProvider(),
		ServiceName:        "iommi-devserver",
		EnableServerTiming: cfg.ServerTiming,
	})
	if err := obs.InstrumentDB(db); err != nil {
		return fmt.Errorf("failed to register database callbacks: %w", err)
	}

	page, err := carsPage(cfg.PageSize, obs)
	if err != nil {
		return fmt.Errorf("failed to declare page: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", page.Handler(iommi.WithDB(db), iommi.WithLogger(logger)))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           obs.Middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr,
			"debug_tree", "http://localhost"+cfg.Addr+"/?/debug_tree")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
		return err
	}
	return nil
}
