package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/loomql/loom/build"
	"github.com/loomql/loom/compiler"
	"github.com/loomql/loom/config"
	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/errors"
)

// loadConfig loads loom.toml, honoring the persistent --config flag. The
// load itself enforces the config's required_version constraint.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// renderReport prints one block per project and returns an error when any
// project failed, so commands exit nonzero.
func renderReport(report *compiler.Report) error {
	failed := 0
	for _, outcome := range report.Outcomes {
		if outcome.Err == nil {
			renderSuccess(outcome)
			continue
		}
		failed++
		renderFailure(outcome)
	}
	if failed > 0 {
		return errors.Newf("%d of %d projects failed", failed, len(report.Outcomes))
	}
	return nil
}

func renderSuccess(outcome compiler.Outcome) {
	if outcome.Result == nil {
		// Check outcomes carry no artifact counts.
		pterm.Success.Printfln("%s: ok", outcome.Project)
		return
	}
	c := outcome.Result.Counts
	pterm.Success.Printfln("%s: %d artifacts (reader %d, normalization %d, operation text %d)",
		outcome.Project, outcome.Result.Artifacts, c.Reader, c.Normalization, c.OperationText)
}

func renderFailure(outcome compiler.Outcome) {
	var perr *build.ProjectError
	if !errors.As(outcome.Err, &perr) {
		pterm.Error.Printfln("%s: %v", outcome.Project, outcome.Err)
		return
	}

	pterm.Error.Printfln("%s: failed at %s", outcome.Project, perr.Stage)
	if diags, ok := diag.AsList(outcome.Err); ok {
		pterm.Println(diags.Format(diag.RenderContextTerminal))
		return
	}
	pterm.Println(perr.Err.Error())
}
