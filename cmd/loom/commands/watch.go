package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/loomql/loom/compiler"
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/logger"
	"github.com/loomql/loom/timing"
)

// WatchCmd rebuilds projects whenever their sources change.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild whenever sources change",
	Long: `Build every project, then watch their schema and document files
and rebuild on change. Bursts of saves are debounced into one rebuild
(watch.debounce_ms in loom.toml, default 250).

Changes to loom.toml itself are not picked up; restart the watcher after
editing the config. Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		comp := compiler.New(cfg, logger.Logger, timing.NewLogSink(logger.Logger, ""))
		err = comp.Watch(ctx, func(report *compiler.Report) {
			// Watch keeps running through failed cycles; the rendered
			// diagnostics are the signal, not the exit code.
			_ = renderReport(report)
			pterm.Println()
		})
		if errors.Is(err, context.Canceled) {
			pterm.Println()
			pterm.Info.Println("watch stopped")
			return nil
		}
		return err
	},
}
