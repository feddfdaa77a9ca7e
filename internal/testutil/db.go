// Package testutil provides helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-box-office/internal/database"
)

// NewDB opens a migrated SQLite database in a temp dir. It is closed when
// the test ends.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "theatre.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, database.DriverSQLite, nil).Migrate(context.Background()))
	return db
}
