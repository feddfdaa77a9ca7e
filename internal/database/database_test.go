package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(DriverSQLite, SQLiteDSN(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	m := NewMigrator(db, DriverSQLite, nil)

	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Migrate(ctx))

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, len(allMigrations()), n)
}

func TestTicketSeatIsUnique(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, NewMigrator(db, DriverSQLite, nil).Migrate(ctx))

	stmts := []string{
		`INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES (1, 'a@b.c', 'x', '2024-01-01 00:00:00+00:00', '2024-01-01 00:00:00+00:00')`,
		`INSERT INTO plays (id, title, description) VALUES (1, 'Hamlet', '')`,
		`INSERT INTO theatre_halls (id, name, num_rows, seats_in_row) VALUES (1, 'Main', 10, 10)`,
		`INSERT INTO performances (id, show_time, play_id, theatre_hall_id) VALUES (1, '2024-12-15 19:00:00+00:00', 1, 1)`,
		`INSERT INTO reservations (id, user_id, created_at) VALUES (1, 1, '2024-12-01 10:00:00+00:00')`,
		`INSERT INTO tickets (row_num, seat, performance_id, reservation_id) VALUES (1, 1, 1, 1)`,
	}
	for _, s := range stmts {
		_, err := db.ExecContext(ctx, s)
		require.NoError(t, err, s)
	}

	_, err := db.ExecContext(ctx, `INSERT INTO tickets (row_num, seat, performance_id, reservation_id) VALUES (1, 1, 1, 1)`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	_, err = db.ExecContext(ctx, `INSERT INTO tickets (row_num, seat, performance_id, reservation_id) VALUES (1, 2, 99, 1)`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}

func TestDeletingPerformanceCascadesToTickets(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, NewMigrator(db, DriverSQLite, nil).Migrate(ctx))

	for _, s := range []string{
		`INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES (1, 'a@b.c', 'x', '2024-01-01 00:00:00+00:00', '2024-01-01 00:00:00+00:00')`,
		`INSERT INTO plays (id, title, description) VALUES (1, 'Hamlet', '')`,
		`INSERT INTO theatre_halls (id, name, num_rows, seats_in_row) VALUES (1, 'Main', 10, 10)`,
		`INSERT INTO performances (id, show_time, play_id, theatre_hall_id) VALUES (1, '2024-12-15 19:00:00+00:00', 1, 1)`,
		`INSERT INTO reservations (id, user_id, created_at) VALUES (1, 1, '2024-12-01 10:00:00+00:00')`,
		`INSERT INTO tickets (row_num, seat, performance_id, reservation_id) VALUES (1, 1, 1, 1)`,
	} {
		_, err := db.ExecContext(ctx, s)
		require.NoError(t, err)
	}

	_, err := db.ExecContext(ctx, `DELETE FROM plays WHERE id = 1`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM tickets`).Scan(&n))
	assert.Zero(t, n)
}

func TestTitleFoldBackfillsExistingPlays(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	all := allMigrations()
	before := &Migrator{db: db, driver: DriverSQLite, log: zap.NewNop(), migrations: all[:len(all)-1]}
	require.NoError(t, before.Migrate(ctx))
	_, err := db.ExecContext(ctx, `INSERT INTO plays (id, title, description) VALUES (1, 'Ромео и Джульетта', '')`)
	require.NoError(t, err)

	require.NoError(t, NewMigrator(db, DriverSQLite, nil).Migrate(ctx))

	var folded string
	require.NoError(t, db.QueryRow(`SELECT title_lower FROM plays WHERE id = 1`).Scan(&folded))
	assert.Equal(t, "ромео и джульетта", folded)
}

func TestIsUniqueViolationMySQL(t *testing.T) {
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(nil))
}
