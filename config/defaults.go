package config

import "github.com/spf13/viper"

// Default values applied to every loaded config.
const (
	DefaultWatchDebounceMS       = 250
	DefaultPersistTimeoutSeconds = 10
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("watch.debounce_ms", DefaultWatchDebounceMS)
}

// ApplyPersistDefaults fills zero values in a persist section.
// Per-project tables cannot carry viper defaults, so the store layer
// applies these when it builds a store.
func ApplyPersistDefaults(p *PersistConfig) {
	if p == nil {
		return
	}
	if p.Kind == "" {
		p.Kind = PersistKindSQLite
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = DefaultPersistTimeoutSeconds
	}
}
