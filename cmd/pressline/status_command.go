package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show run statistics and stage health",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureComponents(); err != nil {
				return err
			}
			stats, err := ctx.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", ctx.store.Path())
			fmt.Fprintf(out, "Runs:     %d total, %d running, %d completed, %d failed\n",
				stats.Total, stats.Running, stats.Completed, stats.Failed)

			rows := make([][]string, 0, 8)
			for _, health := range ctx.orch.HealthReport(cmd.Context()) {
				state := "ready"
				if !health.Ready {
					state = "unavailable"
				}
				rows = append(rows, []string{health.Name, state, health.Detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "State", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
