package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomql/loom/config"
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/transform"
)

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Dir: dir}
	project := &config.Project{Name: "app", Output: "__generated__"}

	arts := []Artifact{
		newArtifact("reader/UserQuery.json", []byte("{}\n"), transform.TargetReader, "UserQuery"),
		newArtifact("operationtext/UserQuery.graphql", []byte("query UserQuery {\n  me\n}\n"), transform.TargetOperationText, "UserQuery"),
		newArtifact("operations.json", []byte("{}\n"), transform.TargetOperationText, ""),
	}
	require.NoError(t, Writer{}.Write(cfg, project, arts))

	got, err := os.ReadFile(filepath.Join(dir, "__generated__", "reader", "UserQuery.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(got))

	got, err = os.ReadFile(filepath.Join(dir, "__generated__", "operations.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(got))
}

func TestWriteOverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Dir: dir}
	project := &config.Project{Name: "app", Output: "out"}

	first := []Artifact{newArtifact("reader/Q.json", []byte("old\n"), transform.TargetReader, "Q")}
	require.NoError(t, Writer{}.Write(cfg, project, first))

	second := []Artifact{newArtifact("reader/Q.json", []byte("new\n"), transform.TargetReader, "Q")}
	require.NoError(t, Writer{}.Write(cfg, project, second))

	got, err := os.ReadFile(filepath.Join(dir, "out", "reader", "Q.json"))
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(got))
}

func TestWriteStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	// A plain file occupies the directory slot the first artifact needs.
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "blocked"), []byte("x"), 0o644))

	cfg := &config.Config{Dir: dir}
	project := &config.Project{Name: "app", Output: "out"}
	arts := []Artifact{
		newArtifact("zz/ok.txt", []byte("ok"), transform.TargetReader, "A"),
		newArtifact("blocked/artifact.txt", []byte("no"), transform.TargetReader, "B"),
	}

	err := Writer{}.Write(cfg, project, arts)
	require.Error(t, err)

	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "blocked/artifact.txt", writeErr.Path)

	_, statErr := os.Stat(filepath.Join(outDir, "zz", "ok.txt"))
	assert.True(t, os.IsNotExist(statErr), "artifacts sorting after the failure must not land")
}
