package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomtest "github.com/loomql/loom/internal/testing"
)

func TestMigrate(t *testing.T) {
	t.Run("applies every migration", func(t *testing.T) {
		db := loomtest.CreateTestDB(t)

		require.NoError(t, Migrate(db, nil))

		for _, table := range []string{"schema_migrations", "persisted_operations"} {
			var count int
			err := db.QueryRow(
				"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
			).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "table %s should exist", table)
		}
	})

	t.Run("records applied versions", func(t *testing.T) {
		db := loomtest.CreateTestDB(t)

		require.NoError(t, Migrate(db, nil))

		var versions int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		assert.GreaterOrEqual(t, versions, 2, "each migration records its version")
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := loomtest.CreateTestDB(t)

		require.NoError(t, Migrate(db, nil))

		var before int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&before))

		require.NoError(t, Migrate(db, nil))

		var after int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&after))
		assert.Equal(t, before, after, "a second run must not reapply anything")
	})

	t.Run("adopts a store created before migrations existed", func(t *testing.T) {
		db := loomtest.CreateTestDB(t)

		// Old stores have persisted_operations but no tracking table.
		_, err := db.Exec(`CREATE TABLE persisted_operations (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, text TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')))`)
		require.NoError(t, err)

		require.NoError(t, Migrate(db, nil))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.GreaterOrEqual(t, count, 2)
	})

	t.Run("fails on a closed connection", func(t *testing.T) {
		db := loomtest.CreateTestDB(t)
		require.NoError(t, db.Close())

		require.Error(t, Migrate(db, nil))
	})
}
