// Package build drives one project's compilation pipeline from loaded
// sources to committed artifacts. Stages run strictly in order, a failing
// stage stops the build, and batch diagnostics are resolved against the
// source texts before they surface.
package build

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"

	"github.com/loomql/loom/config"
	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/logger"
	"github.com/loomql/loom/program"
	"github.com/loomql/loom/source"
	"github.com/loomql/loom/timing"
	"github.com/loomql/loom/transform"
)

// Stage names, used both in ProjectError and as timing span labels.
const (
	StageSchema    = "build_schema"
	StageIR        = "build_ir"
	StageProgram   = "build_program"
	StageValidate  = "validate"
	StageTransform = "apply_transforms"
	StageGenerate  = "generate_artifacts"
	StageWrite     = "write_artifacts"
)

// Inputs carries one project's loaded and parsed sources. The orchestrator
// fills them before calling Run; the driver itself never reads files.
type Inputs struct {
	Schema        *ast.Source
	Extensions    []*ast.Source
	Documents     *source.ASTSet
	BaseFragments []*ast.FragmentDefinition

	// Texts resolves diagnostics back to source excerpts. Nil leaves
	// diagnostics abstract, which only stage fakes in tests should rely on.
	Texts *source.TextSet
}

// Counts reports how many definitions each target Program carried.
type Counts struct {
	Reader        int
	Normalization int
	OperationText int
}

// Result reports a successful project build.
type Result struct {
	Project   string
	Counts    Counts
	Artifacts int // artifacts written, manifest included
}

// Run compiles one project start to finish: schema, IR, program, semantic
// validation, target transforms, artifact generation, and the final write.
// Every failure comes back as a *ProjectError naming the stage; stages
// after a failed one never run. Cancellation arrives through ctx and only
// the generation stage observes it.
func Run(ctx context.Context, cfg *config.Config, project *config.Project, inputs Inputs, stages Stages, sink timing.Sink, log *zap.SugaredLogger) (*Result, error) {
	if log == nil {
		log = logger.Logger
	}
	log = log.With(logger.FieldProject, project.Name)

	fail := func(stage string, err error) (*Result, error) {
		return nil, &ProjectError{Project: project.Name, Stage: stage, Err: err}
	}

	span := timing.Start(sink, StageSchema, project.Name)
	sch, diags := stages.Schema.BuildSchema(project.Name, inputs.Schema, inputs.Extensions)
	span.Stop()
	if diags.HasErrors() {
		resolved, err := resolveDiags(diags, inputs.Texts)
		if err != nil {
			return fail(StageSchema, err)
		}
		return fail(StageSchema, &SchemaBuildError{Diagnostics: resolved})
	}

	span = timing.Start(sink, StageIR, project.Name)
	res, diags := stages.IR.BuildIR(project.Name, sch, inputs.Documents, inputs.BaseFragments)
	span.Stop()
	if diags.HasErrors() {
		resolved, err := resolveDiags(diags, inputs.Texts)
		if err != nil {
			return fail(StageIR, err)
		}
		return fail(StageIR, &IRBuildError{Diagnostics: resolved})
	}

	span = timing.Start(sink, StageProgram, project.Name)
	prog := program.FromIR(sch, res.Definitions)
	span.Stop()

	span = timing.Start(sink, StageValidate, project.Name)
	diags = stages.Validator.Validate(prog, project.Rules)
	span.Stop()
	if diags.HasErrors() {
		resolved, err := resolveDiags(diags, inputs.Texts)
		if err != nil {
			return fail(StageValidate, err)
		}
		return fail(StageValidate, &SemanticError{Diagnostics: resolved})
	}

	span = timing.Start(sink, StageTransform, project.Name)
	targets := stages.Transform.Transform(prog, res.BaseFragmentNames)
	span.Stop()

	span = timing.Start(sink, StageGenerate, project.Name)
	artifacts, err := stages.Generator.Generate(ctx, project, targets)
	span.Stop()
	if err != nil {
		return fail(StageGenerate, err)
	}

	span = timing.Start(sink, StageWrite, project.Name)
	err = stages.Writer.Write(cfg, project, artifacts)
	span.Stop()
	if err != nil {
		return fail(StageWrite, err)
	}

	counts := targetCounts(targets)
	log.Infow("compiled documents",
		"reader", counts.Reader,
		"normalization", counts.Normalization,
		"operation_text", counts.OperationText,
		logger.FieldArtifacts, len(artifacts),
	)

	return &Result{Project: project.Name, Counts: counts, Artifacts: len(artifacts)}, nil
}

// resolveDiags sorts a batch and attaches source excerpts. An unresolvable
// diagnostic is a defect in the stage that produced it and replaces the
// whole batch with the assertion failure.
func resolveDiags(diags diag.List, texts *source.TextSet) (diag.List, error) {
	diags.Sort()
	if texts == nil {
		return diags, nil
	}
	return diags.Resolve(texts)
}

func targetCounts(targets *transform.TargetSet) Counts {
	var c Counts
	if p := targets.Program(transform.TargetReader); p != nil {
		c.Reader = p.Len()
	}
	if p := targets.Program(transform.TargetNormalization); p != nil {
		c.Normalization = p.Len()
	}
	if p := targets.Program(transform.TargetOperationText); p != nil {
		c.OperationText = p.Len()
	}
	return c
}
