package config

import (
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/version"
)

var namePattern = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := CheckVersion(c.RequiredVersion, version.Version); err != nil {
		return err
	}

	if c.Watch.DebounceMS < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig,
			"watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}

	if len(c.Projects) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "at least one project must be configured")
	}

	// Deterministic first error regardless of map order.
	outputs := make(map[string]string, len(c.Projects))
	for _, name := range c.ProjectNames() {
		if !namePattern.MatchString(name) {
			return errors.Wrapf(errors.ErrInvalidConfig, "project name %q is not a valid identifier", name)
		}
		p := c.Projects[name]
		if err := c.validateProject(p); err != nil {
			return err
		}
		if other, ok := outputs[p.Output]; ok {
			return errors.Wrapf(errors.ErrInvalidConfig,
				"projects.%s.output %q is already used by project %q", name, p.Output, other)
		}
		outputs[p.Output] = name
	}

	return nil
}

func (c *Config) validateProject(p *Project) error {
	if p.Schema == "" {
		return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.schema must be set", p.Name)
	}
	if len(p.Documents) == 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.documents must list at least one pattern", p.Name)
	}
	if p.Output == "" {
		return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.output must be set", p.Name)
	}

	if p.Base != "" {
		if p.Base == p.Name {
			return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.base cannot reference itself", p.Name)
		}
		if _, ok := c.Projects[p.Base]; !ok {
			return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.base references unknown project %q", p.Name, p.Base)
		}
		if err := c.checkBaseCycle(p); err != nil {
			return err
		}
	}

	if p.Rules.MaxDepth < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.rules.max_depth must be >= 0, got %d", p.Name, p.Rules.MaxDepth)
	}
	if p.Rules.FragmentPrefix != "" && !namePattern.MatchString(p.Rules.FragmentPrefix) {
		return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.rules.fragment_prefix %q is not a valid name prefix", p.Name, p.Rules.FragmentPrefix)
	}

	return c.validatePersist(p)
}

func (c *Config) validatePersist(p *Project) error {
	if p.Persist == nil {
		return nil
	}

	switch p.Persist.Kind {
	case "", PersistKindSQLite:
		if p.Persist.Path == "" {
			return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.persist.path must be set for the sqlite store", p.Name)
		}
	case PersistKindRemote:
		if p.Persist.URL == "" {
			return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.persist.url must be set for the remote store", p.Name)
		}
	case PersistKindMemory:
		// No further settings.
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.persist.kind must be sqlite, remote, or memory, got %q", p.Name, p.Persist.Kind)
	}

	if p.Persist.TimeoutSeconds < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.persist.timeout_seconds must be >= 0, got %d", p.Name, p.Persist.TimeoutSeconds)
	}
	if p.Persist.RatePerSecond < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.persist.rate_per_second must be >= 0, got %f", p.Name, p.Persist.RatePerSecond)
	}
	return nil
}

// checkBaseCycle follows base links from p and rejects any loop.
func (c *Config) checkBaseCycle(p *Project) error {
	seen := map[string]bool{p.Name: true}
	current := p
	for current.Base != "" {
		next, ok := c.Projects[current.Base]
		if !ok {
			// Unknown bases are reported by validateProject for their referrer.
			return nil
		}
		if seen[next.Name] {
			return errors.Wrapf(errors.ErrInvalidConfig, "projects.%s.base forms a cycle through %q", p.Name, next.Name)
		}
		seen[next.Name] = true
		current = next
	}
	return nil
}

// CheckVersion verifies the running loom version satisfies a required semver
// range. Untagged builds ("dev") always pass so local development never
// fights the constraint.
func CheckVersion(required, current string) error {
	if required == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(required)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidConfig, "required_version %q is not a valid version range", required)
	}

	v, err := semver.NewVersion(current)
	if err != nil {
		// Dev and otherwise untagged binaries carry no comparable version.
		return nil
	}

	if !constraint.Check(v) {
		return errors.Wrapf(errors.ErrInvalidConfig,
			"loom %s does not satisfy required_version %q", current, required)
	}
	return nil
}
