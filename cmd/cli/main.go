package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"os"
)

func init() {
	// The CLI is typically run from a checkout with a .env file; a missing
	// file just means the environment is already set.
	_ = godotenv.Load()

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(reportCmd)
}

var rootCmd = &cobra.Command{
	Use:  "inquest",
	Long: `Multi-pass research assistant. Decomposes a query, gathers evidence, and iterates until the answer holds up.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
