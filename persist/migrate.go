package persist

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/loomql/loom/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate brings the operation store schema up to date. Applied versions
// are tracked in schema_migrations, so repeated runs are no-ops and an
// existing store only picks up the migrations it is missing.
func Migrate(db *sql.DB, log *zap.SugaredLogger) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return errors.Wrap(err, "failed to read migrations")
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.SplitN(name, "_", 2)[0]

		var applied bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&applied)
		if err != nil {
			// The tracking table is created by migration 000 itself.
			if version != "000" {
				return errors.Wrapf(err, "schema_migrations missing before %s", name)
			}
		} else if applied {
			continue
		}

		sqlText, err := migrationFiles.ReadFile(path.Join("migrations", name))
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", name)
		}

		if log != nil {
			log.Infow("applying migration", "migration", name)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "failed to begin %s", name)
		}
		if _, err := tx.Exec(string(sqlText)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "failed to apply %s", name)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "failed to record %s", name)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "failed to commit %s", name)
		}
	}
	return nil
}
