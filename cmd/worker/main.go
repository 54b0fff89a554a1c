package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"delayed-task-queue/internal/config"
	"delayed-task-queue/internal/executor"
	"delayed-task-queue/internal/store"
	"delayed-task-queue/internal/worker"
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
	var workerID string

	cmd := &cobra.Command{
		Use:           "worker",
		Short:         "Claim due tasks from the queue and execute them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, workerID, *cfg); err != nil {
				logger.Error("%v", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workerID, "id", xid.New().String(), "worker id used in logs")
	cmd.Flags().StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "database url or path")
	cmd.Flags().IntVar(&cfg.MaxConcurrentTasks, "concurrency", cfg.MaxConcurrentTasks, "max tasks executing at once")
	cmd.Flags().DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "wait between polls when no task is due")
	cmd.Flags().IntVar(&cfg.MaxOpenConns, "db-max-conns", cfg.MaxOpenConns, "max open database connections")
	cmd.Flags().StringVar(&cfg.BarURL, "bar-url", cfg.BarURL, "url fetched by Bar tasks")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	return cmd
}

func run(ctx context.Context, id string, cfg config.Config) error {
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

	w := worker.NewWorker(id, st, executor.New(executor.WithBarURL(cfg.BarURL)), worker.Options{
		MaxConcurrentTasks: cfg.MaxConcurrentTasks,
		PollInterval:       cfg.PollInterval,
	})

	err = w.Start(ctx)
	s := w.Stats()
	logger.Info("Worker %s exited: claimed=%d succeeded=%d failed=%d complete_errors=%d",
		id, s.Claimed, s.Succeeded, s.Failed, s.CompleteErrors)
	return err
}
