package commands

import (
	"github.com/spf13/cobra"

	"github.com/loomql/loom/compiler"
	"github.com/loomql/loom/logger"
	"github.com/loomql/loom/timing"
)

// CheckCmd validates projects without writing anything.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate projects without writing anything",
	Long: `Run the schema, document, and semantic rule stages for every
project without generating or writing artifacts. Failures carry the same
diagnostics a full build would report.

Intended for CI and editor integrations where writes are unwanted.

Examples:
  loom check               # Check every project
  loom check --project web # Check only the web project`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		comp := compiler.New(cfg, logger.Logger, timing.NewLogSink(logger.Logger, ""))
		report, err := comp.Check(project)
		if err != nil {
			return err
		}
		return renderReport(report)
	},
}

func init() {
	CheckCmd.Flags().String("project", "", "Check only the named project")
}
