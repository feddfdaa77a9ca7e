package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Migration is one ordered schema change. Statements are written once with
// {{...}} placeholders and expanded per dialect.
type Migration struct {
	Version    string
	Name       string
	Statements []string
	// Backfill runs after Statements in the same transaction, for data
	// changes SQL cannot express portably.
	Backfill func(ctx context.Context, tx *sql.Tx) error
}

// Migrator applies pending migrations and records them in schema_migrations.
type Migrator struct {
	db         *sql.DB
	driver     string
	log        *zap.Logger
	migrations []Migration
}

func NewMigrator(db *sql.DB, driver string, log *zap.Logger) *Migrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{db: db, driver: driver, log: log, migrations: allMigrations()}
}

// Migrate runs all pending migrations, each in its own transaction.
// MySQL commits DDL implicitly, so there a failed migration can be left
// partially applied and must be repaired by hand.
func (m *Migrator) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(32) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at DATETIME NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if applied[mig.Version] {
			continue
		}
		m.log.Info("running migration", zap.String("version", mig.Version), zap.String("name", mig.Name))
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %s: %w", mig.Version, err)
		}
	}
	return nil
}

// Pending lists migrations that have not been applied yet.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	var out []Migration
	for _, mig := range m.migrations {
		if !applied[mig.Version] {
			out = append(out, mig)
		}
	}
	return out, nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	dialect := dialectFor(m.driver)
	for _, stmt := range mig.Statements {
		if _, err := tx.ExecContext(ctx, dialect.Replace(stmt)); err != nil {
			return err
		}
	}
	if mig.Backfill != nil {
		if err := mig.Backfill(ctx, tx); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		mig.Version, mig.Name, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func dialectFor(driver string) *strings.Replacer {
	if driver == DriverSQLite {
		return strings.NewReplacer(
			"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{ref}}", "INTEGER",
			"{{ts}}", "DATETIME",
			"{{table_opts}}", "",
		)
	}
	return strings.NewReplacer(
		"{{pk}}", "BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY",
		"{{ref}}", "BIGINT UNSIGNED",
		"{{ts}}", "DATETIME(6)",
		"{{table_opts}}", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
	)
}

func allMigrations() []Migration {
	return []Migration{
		{
			Version: "20241101_001",
			Name:    "create accounts",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS users (
					id {{pk}},
					email VARCHAR(255) NOT NULL UNIQUE,
					password_hash VARCHAR(255) NOT NULL,
					first_name VARCHAR(150) NOT NULL DEFAULT '',
					last_name VARCHAR(150) NOT NULL DEFAULT '',
					is_staff BOOLEAN NOT NULL DEFAULT FALSE,
					is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at {{ts}} NOT NULL,
					updated_at {{ts}} NOT NULL
				){{table_opts}}`,
				`CREATE TABLE IF NOT EXISTS refresh_tokens (
					id {{pk}},
					user_id {{ref}} NOT NULL,
					token_hash CHAR(64) NOT NULL UNIQUE,
					expires_at {{ts}} NOT NULL,
					revoked_at {{ts}} NULL,
					created_at {{ts}} NOT NULL,
					FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
				){{table_opts}}`,
			},
		},
		{
			Version: "20241101_002",
			Name:    "create catalog",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS genres (
					id {{pk}},
					name VARCHAR(64) NOT NULL UNIQUE
				){{table_opts}}`,
				`CREATE TABLE IF NOT EXISTS actors (
					id {{pk}},
					first_name VARCHAR(64) NOT NULL,
					last_name VARCHAR(64) NOT NULL
				){{table_opts}}`,
				`CREATE TABLE IF NOT EXISTS plays (
					id {{pk}},
					title VARCHAR(255) NOT NULL UNIQUE,
					description TEXT NOT NULL,
					image VARCHAR(255) NULL
				){{table_opts}}`,
				`CREATE TABLE IF NOT EXISTS play_genres (
					play_id {{ref}} NOT NULL,
					genre_id {{ref}} NOT NULL,
					PRIMARY KEY (play_id, genre_id),
					FOREIGN KEY (play_id) REFERENCES plays(id) ON DELETE CASCADE,
					FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE CASCADE
				){{table_opts}}`,
				`CREATE TABLE IF NOT EXISTS play_actors (
					play_id {{ref}} NOT NULL,
					actor_id {{ref}} NOT NULL,
					PRIMARY KEY (play_id, actor_id),
					FOREIGN KEY (play_id) REFERENCES plays(id) ON DELETE CASCADE,
					FOREIGN KEY (actor_id) REFERENCES actors(id) ON DELETE CASCADE
				){{table_opts}}`,
				`CREATE TABLE IF NOT EXISTS theatre_halls (
					id {{pk}},
					name VARCHAR(64) NOT NULL UNIQUE,
					num_rows INT NOT NULL,
					seats_in_row INT NOT NULL
				){{table_opts}}`,
				`CREATE TABLE IF NOT EXISTS performances (
					id {{pk}},
					show_time {{ts}} NOT NULL,
					play_id {{ref}} NOT NULL,
					theatre_hall_id {{ref}} NOT NULL,
					FOREIGN KEY (play_id) REFERENCES plays(id) ON DELETE CASCADE,
					FOREIGN KEY (theatre_hall_id) REFERENCES theatre_halls(id) ON DELETE CASCADE
				){{table_opts}}`,
			},
		},
		{
			Version: "20241101_003",
			Name:    "create booking",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS reservations (
					id {{pk}},
					user_id {{ref}} NOT NULL,
					created_at {{ts}} NOT NULL,
					FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
				){{table_opts}}`,
				`CREATE TABLE IF NOT EXISTS tickets (
					id {{pk}},
					row_num INT NOT NULL,
					seat INT NOT NULL,
					performance_id {{ref}} NOT NULL,
					reservation_id {{ref}} NOT NULL,
					CONSTRAINT uq_ticket_seat UNIQUE (performance_id, row_num, seat),
					FOREIGN KEY (performance_id) REFERENCES performances(id) ON DELETE CASCADE,
					FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
				){{table_opts}}`,
			},
		},
		{
			Version: "20241101_004",
			Name:    "add lookup indexes",
			Statements: []string{
				`CREATE INDEX idx_performances_show_time ON performances (show_time)`,
				`CREATE INDEX idx_reservations_user_created ON reservations (user_id, created_at)`,
				`CREATE INDEX idx_tickets_reservation ON tickets (reservation_id)`,
			},
		},
		{
			// SQLite's LOWER only folds ASCII, so title search matches
			// against a copy folded in Go.
			Version: "20241115_001",
			Name:    "add plays.title_lower",
			Statements: []string{
				`ALTER TABLE plays ADD COLUMN title_lower VARCHAR(255) NOT NULL DEFAULT ''`,
			},
			Backfill: foldPlayTitles,
		},
	}
}

func foldPlayTitles(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, title FROM plays`)
	if err != nil {
		return err
	}
	type play struct {
		id    uint64
		title string
	}
	var plays []play
	for rows.Next() {
		var p play
		if err := rows.Scan(&p.id, &p.title); err != nil {
			rows.Close()
			return err
		}
		plays = append(plays, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range plays {
		if _, err := tx.ExecContext(ctx,
			`UPDATE plays SET title_lower = ? WHERE id = ?`, strings.ToLower(p.title), p.id); err != nil {
			return err
		}
	}
	return nil
}
