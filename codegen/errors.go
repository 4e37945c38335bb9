package codegen

import (
	"fmt"

	"github.com/loomql/loom/transform"
)

// GenerationError reports the target and definition whose artifact could
// not be generated. When it surfaces, no artifacts from the project reach
// the writer.
type GenerationError struct {
	Target     transform.Target
	Definition string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %s artifact for %q: %v", e.Target, e.Definition, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// WriteError reports the artifact that failed to commit. Artifacts sorted
// before it may already be on disk; this stage is the one partial-write
// window the pipeline accepts.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing artifact %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
