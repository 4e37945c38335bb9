// Package compiler orchestrates builds across every configured project:
// loading sources, driving the per-project pipelines concurrently, and
// watching for changes.
package compiler

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomql/loom/build"
	"github.com/loomql/loom/config"
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/logger"
	"github.com/loomql/loom/persist"
	"github.com/loomql/loom/timing"
)

// StageLoad marks failures that happen before a project's pipeline starts:
// reading, globbing, and parsing its sources.
const StageLoad = "load_sources"

// Compiler runs builds for every project in one config.
type Compiler struct {
	cfg  *config.Config
	log  *zap.SugaredLogger
	sink timing.Sink
}

// New returns a compiler over cfg. A nil logger falls back to the package
// global; a nil sink records nothing.
func New(cfg *config.Config, log *zap.SugaredLogger, sink timing.Sink) *Compiler {
	if log == nil {
		log = logger.Logger
	}
	if sink == nil {
		sink = timing.NopSink{}
	}
	return &Compiler{cfg: cfg, log: log, sink: sink}
}

// Outcome is one project's build result or failure.
type Outcome struct {
	Project string
	Result  *build.Result
	Err     error
}

// Failed reports whether the project build failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Report collects every project outcome of one invocation, ordered by
// project name.
type Report struct {
	BuildID  string
	Outcomes []Outcome
}

// HasFailures reports whether any project failed.
func (r *Report) HasFailures() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return true
		}
	}
	return false
}

// Outcome returns the outcome recorded for a named project.
func (r *Report) Outcome(project string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Project == project {
			return o, true
		}
	}
	return Outcome{}, false
}

// BuildAll loads the current sources and builds every project, one
// goroutine per project. A failing project never interrupts its siblings;
// every outcome lands in the report.
func (c *Compiler) BuildAll(ctx context.Context) (*Report, error) {
	state, err := Load(c.cfg)
	if err != nil {
		return nil, err
	}
	return c.buildState(ctx, state, c.cfg.ProjectNames()), nil
}

// BuildProjects builds only the named projects. Every project's sources
// still load, so fragments from a base project resolve even when the base
// itself is not built.
func (c *Compiler) BuildProjects(ctx context.Context, names []string) (*Report, error) {
	for _, name := range names {
		if c.cfg.Projects[name] == nil {
			return nil, errors.Wrapf(errors.ErrNotFound, "unknown project %q", name)
		}
	}
	state, err := Load(c.cfg)
	if err != nil {
		return nil, err
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return c.buildState(ctx, state, sorted), nil
}

func (c *Compiler) buildState(ctx context.Context, state *State, names []string) *Report {
	buildID := uuid.NewString()
	log := c.log.With(logger.FieldBuildID, buildID)

	outcomes := make([]Outcome, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, project *config.Project) {
			defer wg.Done()
			outcomes[i] = c.buildProject(ctx, state, project, log)
		}(i, c.cfg.Projects[name])
	}
	wg.Wait()

	return &Report{BuildID: buildID, Outcomes: outcomes}
}

// buildProject runs one project's full pipeline. Parse and store setup
// failures surface with the load stage; everything past that comes back
// from the driver already wrapped.
func (c *Compiler) buildProject(ctx context.Context, state *State, project *config.Project, log *zap.SugaredLogger) Outcome {
	fail := func(stage string, err error) Outcome {
		return Outcome{Project: project.Name, Err: &build.ProjectError{Project: project.Name, Stage: stage, Err: err}}
	}

	if diags := state.ParseDiags(project.Name); diags.HasErrors() {
		resolved, err := resolveDiags(diags, state)
		if err != nil {
			return fail(StageLoad, err)
		}
		return fail(StageLoad, resolved)
	}

	store, err := c.openStore(project)
	if err != nil {
		return fail(StageLoad, err)
	}
	if store != nil {
		defer store.Close()
	}

	res, err := build.Run(ctx, c.cfg, project, state.Inputs(project), build.DefaultStages(store), c.sink, log)
	return Outcome{Project: project.Name, Result: res, Err: err}
}

func (c *Compiler) openStore(project *config.Project) (persist.Store, error) {
	if !project.PersistEnabled() {
		return nil, nil
	}
	return persist.Open(project.Persist, c.cfg.Dir, c.log)
}
