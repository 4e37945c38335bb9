// Package persist stores generated operation text under content-derived
// ids so a client can reference a persisted operation instead of shipping
// the full document.
package persist

import (
	"context"
	"crypto/sha256"
	"path/filepath"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/loomql/loom/config"
	"github.com/loomql/loom/errors"
)

// Store persists operation text by id. Implementations must tolerate
// repeated Puts of the same id; ids are content-derived, so a repeat
// always carries identical text.
type Store interface {
	Put(ctx context.Context, id, name, text string) error
	Close() error
}

// OperationID derives the canonical id for operation text: the base58
// encoding of its SHA-256 digest.
func OperationID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return base58.Encode(sum[:])
}

// Open constructs the store a project's persist section asks for. Relative
// sqlite paths resolve against dir, the directory holding loom.toml.
func Open(cfg *config.PersistConfig, dir string, log *zap.SugaredLogger) (Store, error) {
	if cfg == nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "persistence is not configured")
	}
	switch cfg.Kind {
	case "", config.PersistKindSQLite:
		path := cfg.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return OpenSQLite(path, log)
	case config.PersistKindRemote:
		return NewRemoteStore(cfg, log), nil
	case config.PersistKindMemory:
		return NewMemoryStore(), nil
	}
	return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown persist kind %q", cfg.Kind)
}
