package persist

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/loomql/loom/errors"
)

// SQLiteStore persists operation text in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// OpenSQLite opens the operation store at path, creating the file and
// schema when missing.
func OpenSQLite(path string, log *zap.SugaredLogger) (*SQLiteStore, error) {
	if log != nil {
		log.Debugw("opening operation store", "path", path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open operation store")
	}

	// WAL keeps concurrent project builds from serializing on the store.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	if err := Migrate(db, log); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLiteStore(db, log), nil
}

// NewSQLiteStore wraps an existing connection. Schema setup stays with the
// caller; OpenSQLite is the usual entry point.
func NewSQLiteStore(db *sql.DB, log *zap.SugaredLogger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log}
}

// Put stores text under id. Re-persisting an existing id is a no-op.
func (s *SQLiteStore) Put(ctx context.Context, id, name, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO persisted_operations (id, name, text) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, name, text,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to persist operation %q", name)
	}
	return nil
}

// Get returns the text stored under id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT text FROM persisted_operations WHERE id = ?`, id,
	).Scan(&text)
	if err == sql.ErrNoRows {
		return "", errors.Wrapf(errors.ErrNotFound, "operation %s", id)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to load operation")
	}
	return text, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
