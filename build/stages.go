package build

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/loomql/loom/codegen"
	"github.com/loomql/loom/config"
	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/persist"
	"github.com/loomql/loom/program"
	"github.com/loomql/loom/schema"
	"github.com/loomql/loom/source"
	"github.com/loomql/loom/transform"
	"github.com/loomql/loom/validate"
)

// The stage contracts Run drives. Each is the narrowest slice of its
// package the driver needs, so tests can substitute any single stage.

// SchemaBuilder builds the project schema from SDL sources.
type SchemaBuilder interface {
	BuildSchema(project string, base *ast.Source, extensions []*ast.Source) (*schema.Schema, diag.List)
}

// IRBuilder type-checks parsed documents into IR.
type IRBuilder interface {
	BuildIR(project string, sch *schema.Schema, docs *source.ASTSet, baseFragments []*ast.FragmentDefinition) (*ir.Result, diag.List)
}

// Validator applies semantic rules to a compiled Program.
type Validator interface {
	Validate(p *program.Program, rules config.RulesConfig) diag.List
}

// Transformer derives the per-target Programs.
type Transformer interface {
	Transform(p *program.Program, base ir.NameSet) *transform.TargetSet
}

// Generator produces the project's artifact set.
type Generator interface {
	Generate(ctx context.Context, project *config.Project, targets *transform.TargetSet) ([]codegen.Artifact, error)
}

// Writer commits a generated artifact set.
type Writer interface {
	Write(cfg *config.Config, project *config.Project, artifacts []codegen.Artifact) error
}

// Stages bundles one implementation of each pipeline stage.
type Stages struct {
	Schema    SchemaBuilder
	IR        IRBuilder
	Validator Validator
	Transform Transformer
	Generator Generator
	Writer    Writer
}

// DefaultStages wires the production stages. The persister may be nil for
// projects that do not persist operation text.
func DefaultStages(persister persist.Store) Stages {
	return Stages{
		Schema:    schemaBuilder{},
		IR:        irBuilder{},
		Validator: semanticValidator{},
		Transform: targetTransformer{},
		Generator: codegen.Generator{Persister: persister},
		Writer:    codegen.Writer{},
	}
}

// Adapters from the stage interfaces onto the packages' function APIs.

type schemaBuilder struct{}

func (schemaBuilder) BuildSchema(project string, base *ast.Source, extensions []*ast.Source) (*schema.Schema, diag.List) {
	return schema.Build(project, base, extensions)
}

type irBuilder struct{}

func (irBuilder) BuildIR(project string, sch *schema.Schema, docs *source.ASTSet, baseFragments []*ast.FragmentDefinition) (*ir.Result, diag.List) {
	return ir.Build(project, sch, docs, baseFragments)
}

type semanticValidator struct{}

func (semanticValidator) Validate(p *program.Program, rules config.RulesConfig) diag.List {
	return validate.Run(p, rules)
}

type targetTransformer struct{}

func (targetTransformer) Transform(p *program.Program, base ir.NameSet) *transform.TargetSet {
	return transform.Apply(p, base)
}
