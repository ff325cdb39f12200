package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a slot has never been written.
var ErrNotFound = errors.New("address not found")

const schema = `CREATE TABLE IF NOT EXISTS addresses (
	slot TEXT PRIMARY KEY CHECK(slot IN ('ip1', 'ip2')),
	ip INTEGER NOT NULL
)`

// Open opens the address database and brings its schema up to date.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer, and keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if err := ApplyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ApplyMigrations(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create addresses table: %w", err)
	}

	hasUpdatedAt, err := hasColumn(db, "addresses", "updated_at")
	if err != nil {
		return err
	}
	if !hasUpdatedAt {
		if _, err := db.Exec(`ALTER TABLE addresses ADD COLUMN updated_at TEXT`); err != nil {
			return fmt.Errorf("failed to add updated_at column: %w", err)
		}
		log.Info().Msg("Migrated addresses table: added updated_at")
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to read table info for %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notNull bool
		var defaultValue *string
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return false, fmt.Errorf("failed to scan table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
