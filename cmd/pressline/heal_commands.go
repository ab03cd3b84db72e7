package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pressline/internal/pipeline"
)

// parseDefects converts --defect values into defect names, rejecting
// unknown ones before any store access.
func parseDefects(values []string) ([]pipeline.Defect, error) {
	defects := make([]pipeline.Defect, 0, len(values))
	for _, value := range values {
		defect, ok := pipeline.ParseDefect(value)
		if !ok {
			return nil, fmt.Errorf("unknown defect %q (expected one of %v)", value, pipeline.AllDefects())
		}
		defects = append(defects, defect)
	}
	return defects, nil
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var defectFlags []string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan recent content for data defects without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			defects, err := parseDefects(defectFlags)
			if err != nil {
				return err
			}
			if err := ctx.ensureComponents(); err != nil {
				return err
			}
			report, err := ctx.healer.Scan(cmd.Context(), limit, defects...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned %d content pieces, %d defects\n", report.Scanned, len(report.Findings))
			if len(report.Findings) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(report.Findings))
			for _, finding := range report.Findings {
				rows = append(rows, []string{
					strconv.FormatInt(finding.ContentID, 10),
					strconv.FormatInt(finding.TopicID, 10),
					string(finding.Defect),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Content", "Topic", "Defect"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum content pieces to inspect (0 uses the configured scan limit)")
	cmd.Flags().StringSliceVar(&defectFlags, "defect", nil, "Restrict the scan to the named defects")
	return cmd
}

func newHealCommand(ctx *commandContext) *cobra.Command {
	var contentID int64
	var limit int
	var defectFlags []string

	cmd := &cobra.Command{
		Use:   "heal",
		Short: "Remediate detected data defects",
		RunE: func(cmd *cobra.Command, args []string) error {
			defects, err := parseDefects(defectFlags)
			if err != nil {
				return err
			}
			if err := ctx.ensureComponents(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if contentID != 0 {
				result, err := ctx.healer.HealContent(cmd.Context(), contentID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Content %d: %s\n", contentID, result.Outcome)
				return nil
			}
			report, err := ctx.healer.HealAll(cmd.Context(), limit, defects...)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Scanned %d content pieces, %d defects\n", report.Scanned, len(report.Findings))
			for _, result := range report.Results {
				line := fmt.Sprintf("  content %d %s: %s", result.ContentID, result.Defect, result.Outcome)
				if result.Error != "" {
					line += " (" + result.Error + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&contentID, "content", 0, "Heal a single content piece by ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum content pieces to inspect (0 uses the configured scan limit)")
	cmd.Flags().StringSliceVar(&defectFlags, "defect", nil, "Restrict the sweep to the named defects")
	return cmd
}
