package build

import (
	"fmt"

	"github.com/loomql/loom/codegen"
	"github.com/loomql/loom/diag"
)

// ProjectError is the single failure shape Run returns: the project, the
// stage that failed, and the stage's own error underneath.
type ProjectError struct {
	Project string
	Stage   string
	Err     error
}

func (e *ProjectError) Error() string {
	return fmt.Sprintf("project %s: %s: %v", e.Project, e.Stage, e.Err)
}

func (e *ProjectError) Unwrap() error { return e.Err }

// SchemaBuildError reports a malformed or conflicting schema. The
// diagnostics are resolved before the error surfaces.
type SchemaBuildError struct {
	Diagnostics diag.List
}

func (e *SchemaBuildError) Error() string {
	return fmt.Sprintf("schema build failed: %s", e.Diagnostics.Error())
}

func (e *SchemaBuildError) Unwrap() error { return e.Diagnostics }

// IRBuildError carries the full batch of type and structural errors found
// while building IR from a project's documents.
type IRBuildError struct {
	Diagnostics diag.List
}

func (e *IRBuildError) Error() string {
	return fmt.Sprintf("document build failed: %s", e.Diagnostics.Error())
}

func (e *IRBuildError) Unwrap() error { return e.Diagnostics }

// SemanticError carries the full batch of semantic rule violations from the
// validation stage.
type SemanticError struct {
	Diagnostics diag.List
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Diagnostics.Error())
}

func (e *SemanticError) Unwrap() error { return e.Diagnostics }

// Artifact stage failures originate in codegen; aliased here so the whole
// taxonomy reads from one package.
type (
	ArtifactGenerationError = codegen.GenerationError
	ArtifactWriteError      = codegen.WriteError
)
