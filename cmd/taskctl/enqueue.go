package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"delayed-task-queue/internal/types"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var at string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "enqueue <Foo|Bar|Baz>",
		Short: "Queue a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}

			var executeAt time.Time
			if at != "" {
				if executeAt, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid --at %q: %w", at, err)
				}
				if err := types.CheckProcessAt(executeAt); err != nil {
					return fmt.Errorf("invalid --at %q: %w", at, err)
				}
			}

			task, err := a.sched.Submit(cmd.Context(), kind, executeAt)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s (kind=%s, process_at=%s)\n",
				task.ID, task.Kind, task.ProcessAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "execution time in RFC3339 (default now)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}
