// Package codegen turns target Programs into artifacts and commits them to
// disk. Generation is pure except for operation text persistence; writing
// runs only after generation for the whole project succeeded.
package codegen

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/loomql/loom/transform"
)

// Artifact is one generated output, in memory until the writer commits it.
type Artifact struct {
	// Path is relative to the project's output directory.
	Path string
	// Content is the exact bytes to write.
	Content []byte
	// Target names the representation this artifact belongs to.
	Target transform.Target
	// Source is the definition the artifact was generated from; empty for
	// project-level artifacts like the operation manifest.
	Source string
	// Hash is the hex SHA-256 of Content.
	Hash string
}

func newArtifact(path string, content []byte, target transform.Target, source string) Artifact {
	sum := sha256.Sum256(content)
	return Artifact{
		Path:    path,
		Content: content,
		Target:  target,
		Source:  source,
		Hash:    hex.EncodeToString(sum[:]),
	}
}
