package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pressline/internal/store"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var topicID int64
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Tail the pipeline ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			var entries []*store.LogEntry
			if runID != "" {
				entries, err = st.RunLogs(cmd.Context(), runID, limit)
			} else {
				entries, err = st.QueryLogs(cmd.Context(), topicID, limit)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range entries {
				scope := ""
				if entry.RunID != "" {
					scope = " run=" + entry.RunID[:8]
				}
				if entry.TopicID != 0 {
					scope += fmt.Sprintf(" topic=%d", entry.TopicID)
				}
				fmt.Fprintf(out, "%s [%s]%s %s\n",
					entry.CreatedAt.Local().Format(time.DateTime), entry.Level, scope, entry.Message)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&topicID, "topic", 0, "Filter entries by topic ID")
	cmd.Flags().StringVar(&runID, "run", "", "Filter entries by run ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	return cmd
}
