package codegen

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/loomql/loom/config"
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/ir"
	"github.com/loomql/loom/persist"
	"github.com/loomql/loom/transform"
)

// manifestPath is where the operation id manifest lands, relative to the
// project output directory.
const manifestPath = "operations.json"

// Generator turns transformed programs into artifacts. Persister receives
// operation text for projects that opt into persistence; it may be nil for
// projects that do not.
type Generator struct {
	Persister persist.Store
}

// Generate produces the full artifact set for one project. It checks ctx
// between definitions so a canceled build stops without finishing the
// remaining documents. No artifact set is returned on error, so a failed
// generation never reaches the writer.
func (g Generator) Generate(ctx context.Context, project *config.Project, targets *transform.TargetSet) ([]Artifact, error) {
	var artifacts []Artifact
	manifest := make(map[string]string)
	for _, target := range transform.Targets() {
		p := targets.Program(target)
		if p == nil {
			continue
		}
		for _, def := range p.Definitions() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			art, err := g.generateOne(ctx, project, target, def, manifest)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, art)
		}
	}

	manifestArtifact, err := marshalManifest(manifest)
	if err != nil {
		return nil, err
	}
	return append(artifacts, manifestArtifact), nil
}

func (g Generator) generateOne(ctx context.Context, project *config.Project, target transform.Target, def ir.Definition, manifest map[string]string) (Artifact, error) {
	name := def.DefinitionName()
	if target != transform.TargetOperationText {
		content, err := marshalDefinition(def)
		if err != nil {
			return Artifact{}, &GenerationError{Target: target, Definition: name, Err: err}
		}
		return newArtifact(filepath.Join(string(target), name+".json"), content, target, name), nil
	}

	text := printDefinition(def)
	id := persist.OperationID(text)
	manifest[id] = name
	if project.PersistEnabled() {
		if g.Persister == nil {
			err := errors.AssertionFailedf("project %q enables persistence but no store was wired", project.Name)
			return Artifact{}, &GenerationError{Target: target, Definition: name, Err: err}
		}
		if err := g.Persister.Put(ctx, id, name, text); err != nil {
			return Artifact{}, &GenerationError{Target: target, Definition: name, Err: err}
		}
	}
	return newArtifact(filepath.Join(string(target), name+".graphql"), []byte(text), target, name), nil
}

// marshalManifest encodes the id to name manifest. encoding/json sorts map
// keys, so the manifest bytes are stable for a given operation set.
func marshalManifest(manifest map[string]string) (Artifact, error) {
	content, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		wrapped := errors.Wrap(err, "failed to encode operations manifest")
		return Artifact{}, &GenerationError{Target: transform.TargetOperationText, Definition: manifestPath, Err: wrapped}
	}
	return newArtifact(manifestPath, append(content, '\n'), transform.TargetOperationText, ""), nil
}
