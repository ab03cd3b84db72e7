package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pressline/internal/store"
)

func newTopicsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "List editorial topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			status := store.TopicApproved
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status = store.TopicStatus(trimmed)
			}
			topics, err := st.TopicsByStatus(cmd.Context(), status)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(topics))
			for _, topic := range topics {
				title := topic.TitleEn
				if title == "" {
					title = topic.TitleHe
				}
				lastUsed := "never"
				if topic.LastUsedAt != nil {
					lastUsed = topic.LastUsedAt.Local().Format(time.DateOnly)
				}
				rows = append(rows, []string{
					strconv.FormatInt(topic.ID, 10),
					title,
					string(topic.Priority),
					strings.Join(topic.Keywords, ", "),
					lastUsed,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Priority", "Keywords", "Last Used"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	topicsCmd.Flags().StringVar(&statusFilter, "status", "", "Topic status to list (default approved)")

	topicsCmd.AddCommand(newTopicProposeCommand(ctx))
	return topicsCmd
}

func newTopicProposeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "propose <feedback...>",
		Short: "Derive a fresh topic proposal from reviewer feedback",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureComponents(); err != nil {
				return err
			}
			topic, err := ctx.orch.ProposeWithFeedback(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Proposed topic %d: %s (keywords: %s)\n",
				topic.ID, topic.TitleEn, strings.Join(topic.Keywords, ", "))
			return nil
		},
	}
}
