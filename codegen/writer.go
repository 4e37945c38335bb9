package codegen

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/loomql/loom/config"
)

// Writer commits generated artifacts to the filesystem.
type Writer struct{}

// Write lands every artifact under the project's output directory, creating
// intermediate directories as needed. Artifacts are written in path order so
// repeated builds touch the disk in the same sequence. Write stops at the
// first failure, which can leave earlier artifacts of this run on disk next
// to stale ones from the previous run.
func (Writer) Write(cfg *config.Config, project *config.Project, artifacts []Artifact) error {
	outDir := filepath.Join(cfg.Dir, project.Output)

	sorted := make([]Artifact, len(artifacts))
	copy(sorted, artifacts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	for _, artifact := range sorted {
		dest := filepath.Join(outDir, artifact.Path)
		if err := os.MkdirAll(filepath.Dir(dest), config.DefaultDirPermissions); err != nil {
			return &WriteError{Path: artifact.Path, Err: err}
		}
		if err := os.WriteFile(dest, artifact.Content, config.DefaultFilePermissions); err != nil {
			return &WriteError{Path: artifact.Path, Err: err}
		}
	}
	return nil
}
