package testutil

import (
	"database/sql"
	"testing"

	"github.com/alexanderramin/insurer/internal/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// NewTestDB opens a migrated in-memory database that is closed with the
// test. Foreign keys are enforced, as in production.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err, "opening test database")
	t.Cleanup(func() { _ = database.Close() })

	var fk int
	require.NoError(t, database.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	require.Equal(t, 1, fk, "foreign keys must be enabled")
	return database
}

// NewTestUoW wraps database in the production unit of work.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}

// NewLoggedTestUoW is NewTestUoW with transaction failures logged to t.
func NewLoggedTestUoW(t *testing.T, database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database, db.WithLogger(zaptest.NewLogger(t)))
}
