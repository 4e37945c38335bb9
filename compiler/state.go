package compiler

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/loomql/loom/build"
	"github.com/loomql/loom/config"
	"github.com/loomql/loom/diag"
	"github.com/loomql/loom/source"
)

// projectSources is one project's loaded schema and documents.
type projectSources struct {
	schema     *ast.Source
	extensions []*ast.Source
	documents  *source.ASTSet
}

// State is a loaded snapshot of every project's sources. Immutable once
// loaded; concurrent project builds share it read-only. Watch mode builds
// a fresh State per cycle rather than patching this one.
type State struct {
	Config *config.Config
	Texts  *source.TextSet

	sources map[string]*projectSources
	diags   map[string]diag.List
}

// Load reads and parses every project's sources. IO errors abort the load;
// parse failures are collected per project and surface when that project
// builds.
func Load(cfg *config.Config) (*State, error) {
	st := &State{
		Config:  cfg,
		Texts:   source.NewTextSet(),
		sources: make(map[string]*projectSources),
		diags:   make(map[string]diag.List),
	}

	for _, name := range cfg.ProjectNames() {
		project := cfg.Projects[name]

		base, extensions, err := source.LoadSchemaSources(cfg.Dir, project, st.Texts)
		if err != nil {
			return nil, err
		}
		docs, diags, err := source.LoadDocuments(cfg.Dir, project, st.Texts)
		if err != nil {
			return nil, err
		}

		st.sources[name] = &projectSources{schema: base, extensions: extensions, documents: docs}
		if len(diags) > 0 {
			st.diags[name] = diags
		}
	}
	return st, nil
}

// ParseDiags returns the parse diagnostics collected for one project.
func (s *State) ParseDiags(project string) diag.List {
	return s.diags[project]
}

// Inputs assembles the driver inputs for one project. Base fragment
// definitions come from the base project's parsed documents; the defining
// project checks them, this one only resolves their names.
func (s *State) Inputs(project *config.Project) build.Inputs {
	src := s.sources[project.Name]
	inputs := build.Inputs{
		Schema:     src.schema,
		Extensions: src.extensions,
		Documents:  src.documents,
		Texts:      s.Texts,
	}
	if base := s.Config.BaseOf(project); base != nil {
		if baseSrc := s.sources[base.Name]; baseSrc != nil {
			inputs.BaseFragments = baseSrc.documents.Fragments()
		}
	}
	return inputs
}

// resolveDiags sorts a batch and attaches source excerpts from the loaded
// texts.
func resolveDiags(diags diag.List, state *State) (diag.List, error) {
	diags.Sort()
	return diags.Resolve(state.Texts)
}
