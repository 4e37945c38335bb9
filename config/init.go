package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/loomql/loom/errors"
)

// StarterConfig returns the settings `loom init` writes for a fresh
// repository: one project wired for the conventional layout.
func StarterConfig(project string) map[string]interface{} {
	if project == "" {
		project = "default"
	}
	return map[string]interface{}{
		"watch": map[string]interface{}{
			"debounce_ms": DefaultWatchDebounceMS,
		},
		"projects": map[string]interface{}{
			project: map[string]interface{}{
				"schema":    "schema.graphql",
				"documents": []string{"src/**/*.graphql"},
				"output":    filepath.Join("src", "__generated__"),
				"rules": map[string]interface{}{
					"operation_suffix": true,
				},
			},
		},
	}
}

// WriteStarter writes a starter config file. It refuses to overwrite an
// existing file so a typo'd init never clobbers a working setup.
func WriteStarter(path, project string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to check %s", path)
	}

	data, err := toml.Marshal(StarterConfig(project))
	if err != nil {
		return errors.Wrap(err, "failed to marshal starter config")
	}

	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
