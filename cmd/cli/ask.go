package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"strings"
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Run the full research loop for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		app, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		outcome, err := app.pipeline.Run(cmd.Context(), query)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Run: %s (%d passes)\n", outcome.RunID, outcome.Passes)
		if outcome.Verdict != nil {
			_, _ = fmt.Fprintf(out, "Status: %s (confidence %.2f)\n",
				outcome.Verdict.OverallStatus, outcome.Verdict.ConfidenceScore)
		}
		_, _ = fmt.Fprintf(out, "\n%s\n\nReport: %s\n", outcome.FinalAnswer, outcome.Report.Markdown)
		return nil
	},
}
