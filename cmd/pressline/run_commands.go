package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pressline/internal/pipeline"
	"pressline/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var topicID int64
	var cron bool

	cmd := &cobra.Command{
		Use:   "run <kind>",
		Short: "Start a pipeline run and drive it until it rests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := pipeline.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown pipeline kind %q (expected one of %v)", args[0], pipeline.AllKinds())
			}
			if err := ctx.ensureComponents(); err != nil {
				return err
			}
			trigger := store.TriggerManual
			if cron {
				trigger = store.TriggerCron
			}
			runID, err := ctx.orch.Run(cmd.Context(), kind, trigger, topicID)
			if err != nil {
				return err
			}
			run, err := ctx.store.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s) is %s at stage %s\n", run.ID, run.Kind, run.Status, run.CurrentStage)
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error: %s\n", run.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&topicID, "topic", 0, "Topic ID to run against (content pipeline)")
	cmd.Flags().BoolVar(&cron, "cron", false, "Record the run as cron-triggered")
	return cmd
}

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <run-id>",
		Short: "Execute the current stage of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureComponents(); err != nil {
				return err
			}
			outcome, err := ctx.orch.Advance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s\n", args[0], outcome)
			return nil
		},
	}
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			var statuses []store.RunStatus
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				statuses = append(statuses, store.RunStatus(trimmed))
			}
			runs, err := st.ListRuns(cmd.Context(), limit, statuses...)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID[:8],
					run.Kind,
					string(run.Status),
					run.CurrentStage,
					strconv.FormatInt(run.TopicID, 10),
					run.StartedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Kind", "Status", "Stage", "Topic", "Started"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by run status")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's ledger entry and recent log lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Kind:      %s (%s)\n", run.Kind, run.TriggerType)
			fmt.Fprintf(out, "Status:    %s\n", run.Status)
			fmt.Fprintf(out, "Stage:     %s\n", run.CurrentStage)
			fmt.Fprintf(out, "Topic:     %d\n", run.TopicID)
			fmt.Fprintf(out, "Content:   %d\n", run.ContentID)
			fmt.Fprintf(out, "Completed: %s\n", strings.Join(run.StagesCompleted, ", "))
			if len(run.StagesFailed) > 0 {
				fmt.Fprintf(out, "Failed:    %s\n", strings.Join(run.StagesFailed, ", "))
			}
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:     %s\n", run.ErrorMessage)
			}
			entries, err := st.RunLogs(cmd.Context(), run.ID, 10)
			if err != nil {
				return err
			}
			if len(entries) > 0 {
				fmt.Fprintln(out, "\nRecent log entries:")
				for _, entry := range entries {
					fmt.Fprintf(out, "  %s [%s] %s\n", entry.CreatedAt.Local().Format(time.TimeOnly), entry.Level, entry.Message)
				}
			}
			return nil
		},
	}
}
