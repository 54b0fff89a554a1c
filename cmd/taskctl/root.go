package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"delayed-task-queue/internal/config"
	"delayed-task-queue/internal/scheduler"
	"delayed-task-queue/internal/store"
	"delayed-task-queue/pkg/logger"
)

// app is the state shared by the subcommands. The store is opened once in
// the root's PersistentPreRunE and closed by execute.
type app struct {
	cfg   config.Config
	st    *store.SQLiteStore
	sched *scheduler.Scheduler
}

func newApp(cfg config.Config) *app {
	return &app{cfg: cfg}
}

// execute runs root and closes the store whether or not the command
// failed. cobra skips post-run hooks after a RunE error.
func execute(a *app, root *cobra.Command) error {
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "taskctl",
		Short:        "Inspect and manage the delayed task queue",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.st != nil {
				return nil
			}
			level, err := logger.ParseLevel(a.cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.SetLevel(level)

			st, err := store.Open(cmd.Context(), a.cfg.DatabaseURL, a.cfg.MaxOpenConns)
			if err != nil {
				return err
			}
			a.st = st
			a.sched = scheduler.NewScheduler(st, nil)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfg.DatabaseURL, "db", a.cfg.DatabaseURL, "database url or path (env DATABASE_URL)")
	root.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", "warn", "debug, info, warn or error")

	root.AddCommand(
		newEnqueueCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newDeleteCmd(a),
		newStatusCmd(a),
	)
	return root
}

func (a *app) close() error {
	if a.st == nil {
		return nil
	}
	err := a.st.Close()
	a.st, a.sched = nil, nil
	return err
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
