package commands

import (
	"github.com/spf13/cobra"

	"github.com/loomql/loom/compiler"
	"github.com/loomql/loom/logger"
	"github.com/loomql/loom/timing"
)

// BuildCmd compiles projects and writes their artifacts.
var BuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile projects and write artifacts",
	Long: `Compile every configured project and write its artifacts.

Projects build concurrently and independently: a failing project reports
its diagnostics without blocking the others. The command exits nonzero
when any project fails.

Examples:
  loom build               # Build every project
  loom build --project web # Build only the web project`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		comp := compiler.New(cfg, logger.Logger, timing.NewLogSink(logger.Logger, ""))

		var report *compiler.Report
		if project != "" {
			report, err = comp.BuildProjects(cmd.Context(), []string{project})
		} else {
			report, err = comp.BuildAll(cmd.Context())
		}
		if err != nil {
			return err
		}
		return renderReport(report)
	},
}

func init() {
	BuildCmd.Flags().String("project", "", "Build only the named project")
}
