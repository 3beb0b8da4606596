// Package storage persists analysis runs in SQLite: the symbol table
// flattened into units, types, callables and call sites, plus the
// dependency edges of the run.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens or creates the database at path, enables foreign keys and
// creates the schema when the database is new.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := prepare(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func prepare(db *sql.DB) error {
	// One connection keeps the foreign_keys pragma in effect for every statement.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	version, err := GetSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}
	switch version {
	case "0":
		if err := CreateSchema(db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	case SchemaVersion:
	default:
		return fmt.Errorf("unsupported schema version %s (want %s)", version, SchemaVersion)
	}
	return nil
}
