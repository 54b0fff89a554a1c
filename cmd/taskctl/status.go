package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print counts of tasks by status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.sched.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pending=%d in_progress=%d completed=%d total=%d\n",
				s.Pending, s.InProgress, s.Completed, s.Total)
			return nil
		},
	}
}
