package main

import (
	"fmt"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Regenerate the report documents for a finished run",
	Long: `Regenerate the Markdown and HTML report for a run from its persisted
state. This rereads the database only; it never performs new research.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		paths, err := app.reporter.Generate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Markdown: %s\nHTML: %s\n", paths.Markdown, paths.HTML)
		return nil
	},
}
