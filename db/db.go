package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time_ns INTEGER NOT NULL,
	point TEXT NOT NULL,
	raw REAL NOT NULL,
	value REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS readings_point_time ON readings (point, time_ns);

CREATE TABLE IF NOT EXISTS read_failures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time_ns INTEGER NOT NULL,
	point TEXT NOT NULL,
	error TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS commands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id TEXT NOT NULL,
	applied_at TEXT NOT NULL,
	seq INTEGER NOT NULL,
	point TEXT NOT NULL,
	value REAL NOT NULL,
	raw REAL,
	accepted BOOLEAN NOT NULL,
	error TEXT
);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; one connection also keeps :memory: databases whole
	conn.SetMaxOpenConns(1)

	if err := ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("History database ready")
	return conn, nil
}

// ApplyMigrations creates the schema and adds columns missing from databases
// written by older versions.
func ApplyMigrations(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	has, err := hasColumn(conn, "readings", "unit")
	if err != nil {
		return err
	}
	if !has {
		if _, err := conn.Exec(`ALTER TABLE readings ADD COLUMN unit TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("failed to add readings.unit: %w", err)
		}
	}
	return nil
}

func hasColumn(conn *sql.DB, table, column string) (bool, error) {
	rows, err := conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid          int
			name, typ    string
			notNull      bool
			defaultValue *string
			pk           int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultValue, &pk); err != nil {
			return false, fmt.Errorf("failed to scan %s columns: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
