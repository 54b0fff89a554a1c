package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"delayed-task-queue/internal/api"
	"delayed-task-queue/internal/config"
	"delayed-task-queue/internal/scheduler"
	"delayed-task-queue/internal/store"
	"delayed-task-queue/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	if err := newRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scheduler",
		Short:         "HTTP API for submitting and inspecting delayed tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, *cfg); err != nil {
				logger.Error("%v", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "database url or path")
	cmd.Flags().StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "http listen address")
	cmd.Flags().IntVar(&cfg.MaxOpenConns, "db-max-conns", cfg.MaxOpenConns, "max open database connections")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.MaxOpenConns)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(scheduler.NewScheduler(st, nil)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Scheduler listening on %s (db=%s)", cfg.ListenAddr, cfg.DatabaseURL)
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

	logger.Info("Shutting down scheduler")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Scheduler stopped")
	return nil
}
