package compiler

import (
	"github.com/google/uuid"

	"github.com/loomql/loom/build"
	"github.com/loomql/loom/config"
	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
	"github.com/loomql/loom/schema"
	"github.com/loomql/loom/timing"
	"github.com/loomql/loom/validate"
)

// Check runs the front half of the pipeline (schema, documents, semantic
// rules) without generating or writing anything. An empty projectName
// checks every project. Failures carry the same shapes as full builds so
// callers render both the same way.
func (c *Compiler) Check(projectName string) (*Report, error) {
	state, err := Load(c.cfg)
	if err != nil {
		return nil, err
	}

	names := c.cfg.ProjectNames()
	if projectName != "" {
		if c.cfg.Projects[projectName] == nil {
			return nil, errors.Wrapf(errors.ErrNotFound, "unknown project %q", projectName)
		}
		names = []string{projectName}
	}

	report := &Report{BuildID: uuid.NewString()}
	for _, name := range names {
		report.Outcomes = append(report.Outcomes, c.checkProject(state, c.cfg.Projects[name]))
	}
	return report, nil
}

func (c *Compiler) checkProject(state *State, project *config.Project) Outcome {
	fail := func(stage string, err error) Outcome {
		return Outcome{Project: project.Name, Err: &build.ProjectError{Project: project.Name, Stage: stage, Err: err}}
	}
	failDiags := func(stage string, diags diag.List, wrap func(diag.List) error) Outcome {
		resolved, err := resolveDiags(diags, state)
		if err != nil {
			return fail(stage, err)
		}
		return fail(stage, wrap(resolved))
	}

	if diags := state.ParseDiags(project.Name); diags.HasErrors() {
		return failDiags(StageLoad, diags, func(l diag.List) error { return l })
	}

	inputs := state.Inputs(project)

	span := timing.Start(c.sink, build.StageSchema, project.Name)
	sch, diags := schema.Build(project.Name, inputs.Schema, inputs.Extensions)
	span.Stop()
	if diags.HasErrors() {
		return failDiags(build.StageSchema, diags, func(l diag.List) error {
			return &build.SchemaBuildError{Diagnostics: l}
		})
	}

	span = timing.Start(c.sink, build.StageIR, project.Name)
	res, diags := ir.Build(project.Name, sch, inputs.Documents, inputs.BaseFragments)
	span.Stop()
	if diags.HasErrors() {
		return failDiags(build.StageIR, diags, func(l diag.List) error {
			return &build.IRBuildError{Diagnostics: l}
		})
	}

	prog := program.FromIR(sch, res.Definitions)

	span = timing.Start(c.sink, build.StageValidate, project.Name)
	diags = validate.Run(prog, project.Rules)
	span.Stop()
	if diags.HasErrors() {
		return failDiags(build.StageValidate, diags, func(l diag.List) error {
			return &build.SemanticError{Diagnostics: l}
		})
	}

	return Outcome{Project: project.Name}
}
