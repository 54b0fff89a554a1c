package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var filter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks ordered by process time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := a.sched.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), tasks)
			}
			for _, t := range tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s  %-3s  %s\n",
					t.ID, t.Status, t.Kind, t.ProcessAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "status:<Pending|InProgress|Completed> or kind:<Foo|Bar|Baz>")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}
