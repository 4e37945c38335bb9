package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/loomql/loom/errors"
)

// ConfigFileName is the file loom searches for when no path is given.
const ConfigFileName = "loom.toml"

// Load reads the loom configuration, searching upward from the working
// directory for loom.toml. Environment variables prefixed LOOM_ override
// file values.
func Load() (*Config, error) {
	path := findConfigFile()
	if path == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig,
			"no %s found in this directory or any parent", ConfigFileName)
	}
	return LoadFromFile(path)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve config path %s", configPath)
	}
	finalize(&config, filepath.Dir(absPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// findConfigFile searches for loom.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, stop searching
			break
		}
		dir = parent
	}

	return ""
}

// finalize fills the derived fields viper cannot: project names from their
// table keys, the config directory, and sensitive env overrides.
func finalize(config *Config, dir string) {
	config.Dir = dir
	for name, project := range config.Projects {
		if project == nil {
			project = &Project{}
			config.Projects[name] = project
		}
		project.Name = name
	}

	// Persist tokens are secrets; the environment always wins over the file.
	if token := os.Getenv("LOOM_PERSIST_TOKEN"); token != "" {
		for _, project := range config.Projects {
			if project.Persist != nil {
				project.Persist.Token = token
			}
		}
	}
}
