package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newApprovalsCommand(ctx *commandContext) *cobra.Command {
	approvalsCmd := &cobra.Command{
		Use:   "approvals",
		Short: "Inspect and resolve pending approvals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureComponents(); err != nil {
				return err
			}
			pending, err := ctx.gate.Pending(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending approvals")
				return nil
			}
			rows := make([][]string, 0, len(pending))
			for _, approval := range pending {
				rows = append(rows, []string{
					approval.ID[:8],
					string(approval.Type),
					approval.RunID[:8],
					strconv.FormatInt(approval.EntityID, 10),
					approval.CreatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Approval", "Type", "Run", "Entity", "Requested"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	approvalsCmd.AddCommand(newApprovalResolveCommand(ctx))
	return approvalsCmd
}

func newApprovalResolveCommand(ctx *commandContext) *cobra.Command {
	var decision string
	var responder string
	var feedback string

	cmd := &cobra.Command{
		Use:   "resolve <approval-id>",
		Short: "Apply a review decision to a pending approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureComponents(); err != nil {
				return err
			}
			resolution, err := ctx.gate.Resolve(cmd.Context(), args[0], decision, responder, feedback)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Approval %s resolved: %s\n", resolution.Approval.ID, resolution.Approval.Status)
			if resolution.Outcome != "" {
				fmt.Fprintf(out, "Run %s outcome: %s\n", resolution.Approval.RunID, resolution.Outcome)
			}
			if resolution.NewTopic != nil {
				fmt.Fprintf(out, "Feedback spawned topic %d (%s)\n", resolution.NewTopic.ID, resolution.NewTopic.TitleEn)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&decision, "decision", "", "approved, rejected, or changes_requested")
	cmd.Flags().StringVar(&responder, "responder", "", "Reviewer identity")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Optional reviewer feedback")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}
