package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomql/loom/cmd/loom/commands"
	"github.com/loomql/loom/logger"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "loom - GraphQL compiler",
	Long: `loom compiles GraphQL projects into runtime artifacts.

Each project in loom.toml pairs an SDL schema with executable documents.
loom type-checks the documents against the schema, applies the project's
semantic rules, and generates the reader, normalization, and operation
text artifacts clients consume.

Available commands:
  build   - Compile projects and write artifacts
  check   - Validate projects without writing anything
  watch   - Rebuild whenever sources change
  init    - Write a starter loom.toml
  version - Show version information

Examples:
  loom init                # Create loom.toml in this directory
  loom build               # Build every project
  loom build --project web # Build one project
  loom check               # CI-friendly validation, no writes
  loom watch               # Rebuild on save`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON instead of console output")
	rootCmd.PersistentFlags().String("config", "", "Path to loom.toml (default: search upward from the working directory)")

	rootCmd.AddCommand(commands.BuildCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
