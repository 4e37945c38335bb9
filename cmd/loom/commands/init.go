package commands

import (
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/loomql/loom/config"
)

// InitCmd writes a starter loom.toml.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter loom.toml",
	Long: `Write a starter loom.toml in the current directory: one project
wired for the conventional layout (schema.graphql at the root, documents
under src/). Refuses to overwrite an existing config.

Examples:
  loom init                # One project named "default"
  loom init --project app  # Name the starter project "app"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")

		path := filepath.Join(".", config.ConfigFileName)
		if err := config.WriteStarter(path, project); err != nil {
			return err
		}

		pterm.Success.Printfln("wrote %s", path)
		pterm.Info.Println("edit the schema and documents paths, then run: loom build")
		return nil
	},
}

func init() {
	InitCmd.Flags().String("project", "", "Name for the starter project")
}
