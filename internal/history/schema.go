package history

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the journal on disk was written by an
// incompatible version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

func initSchema(db *sql.DB) error {
	var count int
	row := db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("inspect history schema: %w", err)
	}
	if count == 0 {
		return createSchema(db)
	}

	var version int
	row = db.QueryRow(`SELECT version FROM schema_version LIMIT 1`)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("read history schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: found %d, want %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin history schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("record history schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history schema: %w", err)
	}
	return nil
}
