package build

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/loomql/loom/codegen"
	"github.com/loomql/loom/config"
	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/program"
	"github.com/loomql/loom/schema"
	"github.com/loomql/loom/source"
	"github.com/loomql/loom/timing"
	"github.com/loomql/loom/transform"
	"github.com/loomql/loom/validate"
)

const testSDL = `
type Query {
  me: User
  user: User
}

type User {
  id: ID!
  name: String
}
`

// buildInputs assembles driver inputs the way the orchestrator does: parsed
// documents plus a text set covering every loaded source.
func buildInputs(t *testing.T, sdl string, docs map[string]string) Inputs {
	t.Helper()
	texts := source.NewTextSet()
	texts.Add("schema.graphql", sdl)

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	set := &source.ASTSet{}
	for _, name := range names {
		texts.Add(name, docs[name])
		doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: docs[name]})
		require.NoError(t, err)
		set.Documents = append(set.Documents, source.ParsedDocument{File: name, Doc: doc})
	}

	return Inputs{
		Schema:    &ast.Source{Name: "schema.graphql", Input: sdl},
		Documents: set,
		Texts:     texts,
	}
}

func testConfig(t *testing.T) (*config.Config, *config.Project) {
	t.Helper()
	project := &config.Project{Name: "app", Output: "__generated__"}
	cfg := &config.Config{
		Dir:      t.TempDir(),
		Projects: map[string]*config.Project{"app": project},
	}
	return cfg, project
}

// spyStages wraps a stage set and records which stages actually run.
type spyStages struct {
	inner Stages
	mu    sync.Mutex
	calls []string
}

func newSpyStages(inner Stages) *spyStages {
	return &spyStages{inner: inner}
}

func (s *spyStages) note(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, stage)
}

func (s *spyStages) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *spyStages) Stages() Stages {
	return Stages{
		Schema:    spySchema{s},
		IR:        spyIR{s},
		Validator: spyValidator{s},
		Transform: spyTransform{s},
		Generator: spyGenerator{s},
		Writer:    spyWriter{s},
	}
}

type spySchema struct{ spy *spyStages }

func (s spySchema) BuildSchema(project string, base *ast.Source, extensions []*ast.Source) (*schema.Schema, diag.List) {
	s.spy.note(StageSchema)
	return s.spy.inner.Schema.BuildSchema(project, base, extensions)
}

type spyIR struct{ spy *spyStages }

func (s spyIR) BuildIR(project string, sch *schema.Schema, docs *source.ASTSet, baseFragments []*ast.FragmentDefinition) (*ir.Result, diag.List) {
	s.spy.note(StageIR)
	return s.spy.inner.IR.BuildIR(project, sch, docs, baseFragments)
}

type spyValidator struct{ spy *spyStages }

func (s spyValidator) Validate(p *program.Program, rules config.RulesConfig) diag.List {
	s.spy.note(StageValidate)
	return s.spy.inner.Validator.Validate(p, rules)
}

type spyTransform struct{ spy *spyStages }

func (s spyTransform) Transform(p *program.Program, base ir.NameSet) *transform.TargetSet {
	s.spy.note(StageTransform)
	return s.spy.inner.Transform.Transform(p, base)
}

type spyGenerator struct{ spy *spyStages }

func (s spyGenerator) Generate(ctx context.Context, project *config.Project, targets *transform.TargetSet) ([]codegen.Artifact, error) {
	s.spy.note(StageGenerate)
	return s.spy.inner.Generator.Generate(ctx, project, targets)
}

type spyWriter struct{ spy *spyStages }

func (s spyWriter) Write(cfg *config.Config, project *config.Project, artifacts []codegen.Artifact) error {
	s.spy.note(StageWrite)
	return s.spy.inner.Writer.Write(cfg, project, artifacts)
}

func TestRunSuccess(t *testing.T) {
	cfg, project := testConfig(t)
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/frag.graphql": "fragment UserBits on User { name }",
		"src/q.graphql":    "query UserQuery { me { ...UserBits id } }",
	})
	collector := &timing.Collector{}

	res, err := Run(context.Background(), cfg, project, inputs, DefaultStages(nil), collector, nil)
	require.NoError(t, err)

	assert.Equal(t, "app", res.Project)
	assert.Equal(t, Counts{Reader: 2, Normalization: 1, OperationText: 1}, res.Counts)
	assert.Equal(t, 5, res.Artifacts)

	outDir := filepath.Join(cfg.Dir, "__generated__")
	for _, rel := range []string{
		"reader/UserQuery.json",
		"reader/UserBits.json",
		"normalization/UserQuery.json",
		"operationtext/UserQuery.graphql",
		"operations.json",
	} {
		_, statErr := os.Stat(filepath.Join(outDir, rel))
		assert.NoError(t, statErr, "expected artifact %s", rel)
	}

	var labels []string
	for _, span := range collector.Spans() {
		labels = append(labels, span.Label())
	}
	assert.Equal(t, []string{
		"build_schema app",
		"build_ir app",
		"build_program app",
		"validate app",
		"apply_transforms app",
		"generate_artifacts app",
		"write_artifacts app",
	}, labels)
}

func TestRunStageOrder(t *testing.T) {
	cfg, project := testConfig(t)
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/q.graphql": "query UserQuery { me { id } }",
	})
	spy := newSpyStages(DefaultStages(nil))

	_, err := Run(context.Background(), cfg, project, inputs, spy.Stages(), timing.NopSink{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		StageSchema, StageIR, StageValidate, StageTransform, StageGenerate, StageWrite,
	}, spy.Calls())
}

// The canonical scenario: the schema knows User{id,name}, the document
// selects user { id, email }. The build must fail at the IR stage with one
// error whose resolved span covers exactly the text "email".
func TestRunUnknownFieldFailsAtIR(t *testing.T) {
	cfg, project := testConfig(t)
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/user.graphql": "query UserQuery {\n  user {\n    id\n    email\n  }\n}\n",
	})
	spy := newSpyStages(DefaultStages(nil))

	res, err := Run(context.Background(), cfg, project, inputs, spy.Stages(), timing.NopSink{}, nil)
	require.Error(t, err)
	assert.Nil(t, res)

	var projErr *ProjectError
	require.True(t, errors.As(err, &projErr))
	assert.Equal(t, "app", projErr.Project)
	assert.Equal(t, StageIR, projErr.Stage)

	var irErr *IRBuildError
	require.True(t, errors.As(err, &irErr))
	require.Len(t, irErr.Diagnostics, 1)

	d := irErr.Diagnostics[0]
	assert.Equal(t, ir.RuleUnknownField, d.Rule)
	assert.Equal(t, `field "email" not found on type "User"`, d.Message)
	assert.Equal(t, "src/user.graphql", d.Ref.File)
	assert.Equal(t, 4, d.Ref.Line)
	assert.Equal(t, 5, d.Ref.Column)
	require.True(t, d.Resolved(), "IR diagnostics must be source-resolved before surfacing")
	assert.Equal(t, "    email", d.Excerpt)
	assert.Equal(t, "email", d.Excerpt[d.CaretStart:d.CaretStart+d.CaretLen])

	assert.Equal(t, []string{StageSchema, StageIR}, spy.Calls(),
		"no program, transforms, or artifacts after an IR failure")
	_, statErr := os.Stat(filepath.Join(cfg.Dir, "__generated__"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSemanticFailureSkipsTransforms(t *testing.T) {
	cfg, project := testConfig(t)
	project.Rules = config.RulesConfig{OperationSuffix: true}
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/q.graphql": "query Wrong { me { id } }",
	})
	spy := newSpyStages(DefaultStages(nil))

	_, err := Run(context.Background(), cfg, project, inputs, spy.Stages(), timing.NopSink{}, nil)
	require.Error(t, err)

	var projErr *ProjectError
	require.True(t, errors.As(err, &projErr))
	assert.Equal(t, StageValidate, projErr.Stage)

	var semErr *SemanticError
	require.True(t, errors.As(err, &semErr))
	require.Len(t, semErr.Diagnostics, 1)
	assert.Equal(t, validate.RuleOperationSuffix, semErr.Diagnostics[0].Rule)

	assert.Equal(t, []string{StageSchema, StageIR, StageValidate}, spy.Calls(),
		"transforms must never run after a validation failure")
}

func TestRunValidationBatchesRuleViolations(t *testing.T) {
	cfg, project := testConfig(t)
	project.Rules = config.RulesConfig{OperationSuffix: true, FragmentPrefix: "App"}
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/a.graphql": "query Wrong { me { id } }",
		"src/b.graphql": "fragment UserBits on User { name }",
	})

	_, err := Run(context.Background(), cfg, project, inputs, DefaultStages(nil), timing.NopSink{}, nil)
	require.Error(t, err)

	var semErr *SemanticError
	require.True(t, errors.As(err, &semErr))
	require.Len(t, semErr.Diagnostics, 2, "both violations must arrive in one outcome")

	rules := []string{semErr.Diagnostics[0].Rule, semErr.Diagnostics[1].Rule}
	assert.Contains(t, rules, validate.RuleOperationSuffix)
	assert.Contains(t, rules, validate.RuleFragmentPrefix)
	for _, d := range semErr.Diagnostics {
		assert.True(t, d.Resolved(), "batch diagnostics must be resolved: %s", d.Message)
	}
}

type failingPersister struct{}

func (failingPersister) Put(ctx context.Context, id, name, text string) error {
	return errors.New("persist endpoint unreachable")
}

func (failingPersister) Close() error { return nil }

func TestRunGenerationFailureWritesNothing(t *testing.T) {
	cfg, project := testConfig(t)
	project.Persist = &config.PersistConfig{Kind: config.PersistKindMemory}
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/q.graphql": "query UserQuery { me { id } }",
	})
	spy := newSpyStages(DefaultStages(failingPersister{}))

	_, err := Run(context.Background(), cfg, project, inputs, spy.Stages(), timing.NopSink{}, nil)
	require.Error(t, err)

	var projErr *ProjectError
	require.True(t, errors.As(err, &projErr))
	assert.Equal(t, StageGenerate, projErr.Stage)

	var genErr *ArtifactGenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, transform.TargetOperationText, genErr.Target)
	assert.Equal(t, "UserQuery", genErr.Definition)

	assert.NotContains(t, spy.Calls(), StageWrite, "the writer must never see a failed generation")
	_, statErr := os.Stat(filepath.Join(cfg.Dir, "__generated__"))
	assert.True(t, os.IsNotExist(statErr), "zero artifacts may land on disk")
}

func TestRunWriteFailure(t *testing.T) {
	cfg, project := testConfig(t)
	// A plain file occupies the output directory path.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "__generated__"), []byte("x"), 0o644))
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/q.graphql": "query UserQuery { me { id } }",
	})

	_, err := Run(context.Background(), cfg, project, inputs, DefaultStages(nil), timing.NopSink{}, nil)
	require.Error(t, err)

	var projErr *ProjectError
	require.True(t, errors.As(err, &projErr))
	assert.Equal(t, StageWrite, projErr.Stage)

	var writeErr *ArtifactWriteError
	require.True(t, errors.As(err, &writeErr))
	assert.NotEmpty(t, writeErr.Path)
}

func TestRunDeterministicArtifacts(t *testing.T) {
	docs := map[string]string{
		"src/frag.graphql": "fragment UserBits on User { name }",
		"src/q.graphql":    "query UserQuery { me { ...UserBits id } }",
	}

	readTree := func(t *testing.T) map[string]string {
		cfg, project := testConfig(t)
		inputs := buildInputs(t, testSDL, docs)
		_, err := Run(context.Background(), cfg, project, inputs, DefaultStages(nil), timing.NopSink{}, nil)
		require.NoError(t, err)

		outDir := filepath.Join(cfg.Dir, "__generated__")
		tree := make(map[string]string)
		walkErr := filepath.Walk(outDir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			rel, err := filepath.Rel(outDir, path)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			tree[rel] = string(content)
			return nil
		})
		require.NoError(t, walkErr)
		return tree
	}

	first := readTree(t)
	second := readTree(t)
	assert.Equal(t, first, second, "repeated builds must produce identical bytes")
}

func TestRunProjectsAreIndependent(t *testing.T) {
	goodDocs := map[string]string{"src/q.graphql": "query UserQuery { me { id } }"}
	badDocs := map[string]string{"src/q.graphql": "query UserQuery { me { email } }"}

	newProject := func(name string) (*config.Config, *config.Project) {
		project := &config.Project{Name: name, Output: "__generated__"}
		cfg := &config.Config{Dir: t.TempDir(), Projects: map[string]*config.Project{name: project}}
		return cfg, project
	}

	// Sequential baseline.
	seqGoodCfg, seqGoodProject := newProject("app")
	seqGood, seqGoodErr := Run(context.Background(), seqGoodCfg, seqGoodProject,
		buildInputs(t, testSDL, goodDocs), DefaultStages(nil), timing.NopSink{}, nil)
	seqBadCfg, seqBadProject := newProject("web")
	_, seqBadErr := Run(context.Background(), seqBadCfg, seqBadProject,
		buildInputs(t, testSDL, badDocs), DefaultStages(nil), timing.NopSink{}, nil)
	require.NoError(t, seqGoodErr)
	require.Error(t, seqBadErr)

	// The same builds, concurrently, into fresh directories.
	conGoodCfg, conGoodProject := newProject("app")
	conBadCfg, conBadProject := newProject("web")
	goodInputs := buildInputs(t, testSDL, goodDocs)
	badInputs := buildInputs(t, testSDL, badDocs)

	var (
		wg      sync.WaitGroup
		conGood *Result
		conErrs [2]error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		conGood, conErrs[0] = Run(context.Background(), conGoodCfg, conGoodProject,
			goodInputs, DefaultStages(nil), timing.NopSink{}, nil)
	}()
	go func() {
		defer wg.Done()
		_, conErrs[1] = Run(context.Background(), conBadCfg, conBadProject,
			badInputs, DefaultStages(nil), timing.NopSink{}, nil)
	}()
	wg.Wait()

	require.NoError(t, conErrs[0], "a failing sibling build must not affect this project")
	require.Error(t, conErrs[1])
	assert.Equal(t, seqGood.Counts, conGood.Counts)
	assert.Equal(t, seqGood.Artifacts, conGood.Artifacts)

	var projErr *ProjectError
	require.True(t, errors.As(conErrs[1], &projErr))
	assert.Equal(t, "web", projErr.Project)
	assert.Equal(t, StageIR, projErr.Stage)
}

type defectiveIR struct{}

func (defectiveIR) BuildIR(project string, sch *schema.Schema, docs *source.ASTSet, baseFragments []*ast.FragmentDefinition) (*ir.Result, diag.List) {
	ref := diag.SourceRef{File: "ghost.graphql", Line: 1, Column: 1, Start: 0, End: 4}
	return nil, diag.List{diag.Errorf(ref, "bad reference")}
}

func TestRunUnresolvableDiagnosticIsDefect(t *testing.T) {
	cfg, project := testConfig(t)
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/q.graphql": "query UserQuery { me { id } }",
	})
	stages := DefaultStages(nil)
	stages.IR = defectiveIR{}

	_, err := Run(context.Background(), cfg, project, inputs, stages, timing.NopSink{}, nil)
	require.Error(t, err)

	var projErr *ProjectError
	require.True(t, errors.As(err, &projErr))
	assert.Equal(t, StageIR, projErr.Stage)
	assert.Contains(t, err.Error(), "unknown source")

	var irErr *IRBuildError
	assert.False(t, errors.As(err, &irErr), "a defect must not masquerade as a user-facing batch")
}

func TestRunFailureSpansStop(t *testing.T) {
	cfg, project := testConfig(t)
	inputs := buildInputs(t, testSDL, map[string]string{
		"src/q.graphql": "query UserQuery { me { email } }",
	})
	collector := &timing.Collector{}

	_, err := Run(context.Background(), cfg, project, inputs, DefaultStages(nil), collector, nil)
	require.Error(t, err)

	var labels []string
	for _, span := range collector.Spans() {
		labels = append(labels, span.Label())
	}
	assert.Equal(t, []string{"build_schema app", "build_ir app"}, labels,
		"the failing stage's span must still be recorded")
}
