package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the version CreateSchema writes.
const SchemaVersion = "1"

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// CreateSchema creates every table and index in one transaction.
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"analysis_runs", createAnalysisRunsTable},
		{"compilation_units", createCompilationUnitsTable},
		{"types", createTypesTable},
		{"callables", createCallablesTable},
		{"call_sites", createCallSitesTable},
		{"dependency_edges", createDependencyEdgesTable},
		{"store_metadata", createStoreMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		"INSERT INTO store_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)",
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap store_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from store_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check store_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM store_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in store_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createAnalysisRunsTable = `
CREATE TABLE analysis_runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    root TEXT NOT NULL,                          -- Analyzed project directory
    analysis_level INTEGER NOT NULL,             -- 1 or 2
    tool_version TEXT NOT NULL,
    created_at TEXT NOT NULL                     -- ISO 8601
)
`

const createCompilationUnitsTable = `
CREATE TABLE compilation_units (
    unit_id TEXT PRIMARY KEY,                    -- UUID
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    package_name TEXT NOT NULL,
    import_count INTEGER NOT NULL DEFAULT 0,
    is_modified INTEGER NOT NULL DEFAULT 1,      -- Boolean: 0 when reused from the unit cache
    FOREIGN KEY (run_id) REFERENCES analysis_runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, file_path)
)
`

const createTypesTable = `
CREATE TABLE types (
    type_id TEXT PRIMARY KEY,                    -- UUID
    unit_id TEXT NOT NULL,
    run_id TEXT NOT NULL,                        -- Denormalized from compilation_units
    name TEXT NOT NULL,                          -- Fully qualified name
    kind TEXT NOT NULL,                          -- class, interface, enum, record, annotation
    parent_type TEXT,                            -- NULL for top-level types
    modifiers TEXT NOT NULL DEFAULT '',          -- Space separated
    is_entrypoint INTEGER NOT NULL DEFAULT 0,    -- Boolean
    field_count INTEGER NOT NULL DEFAULT 0,      -- Denormalized count
    callable_count INTEGER NOT NULL DEFAULT 0,   -- Denormalized count
    FOREIGN KEY (unit_id) REFERENCES compilation_units(unit_id) ON DELETE CASCADE
)
`

const createCallablesTable = `
CREATE TABLE callables (
    callable_id TEXT PRIMARY KEY,                -- UUID
    type_id TEXT NOT NULL,
    run_id TEXT NOT NULL,                        -- Denormalized from types
    type_name TEXT NOT NULL,                     -- Denormalized for queries
    signature TEXT NOT NULL,                     -- Signature key
    declaration TEXT NOT NULL,
    file_path TEXT NOT NULL,
    return_type TEXT,                            -- NULL for constructors
    is_constructor INTEGER NOT NULL DEFAULT 0,   -- Boolean
    is_implicit INTEGER NOT NULL DEFAULT 0,      -- Boolean
    is_entrypoint INTEGER NOT NULL DEFAULT 0,    -- Boolean
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    cyclomatic_complexity INTEGER NOT NULL,
    FOREIGN KEY (type_id) REFERENCES types(type_id) ON DELETE CASCADE
)
`

const createCallSitesTable = `
CREATE TABLE call_sites (
    call_site_id TEXT PRIMARY KEY,               -- UUID
    callable_id TEXT NOT NULL,
    run_id TEXT NOT NULL,                        -- Denormalized from callables
    method_name TEXT NOT NULL,
    receiver_type TEXT NOT NULL DEFAULT '',
    callee_signature TEXT NOT NULL DEFAULT '',   -- Empty when the callee did not resolve
    is_static_call INTEGER NOT NULL DEFAULT 0,   -- Boolean
    is_constructor_call INTEGER NOT NULL DEFAULT 0,
    crud_operation TEXT,                         -- CREATE, READ, UPDATE, DELETE or NULL
    crud_query TEXT,                             -- READ, WRITE, NAMED or NULL
    start_line INTEGER NOT NULL,
    start_column INTEGER NOT NULL,
    FOREIGN KEY (callable_id) REFERENCES callables(callable_id) ON DELETE CASCADE
)
`

const createDependencyEdgesTable = `
CREATE TABLE dependency_edges (
    edge_id TEXT PRIMARY KEY,                    -- UUID
    run_id TEXT NOT NULL,
    source_type TEXT NOT NULL,
    source_signature TEXT NOT NULL,
    source_declaration TEXT NOT NULL,
    source_file TEXT NOT NULL,
    target_type TEXT NOT NULL,
    target_signature TEXT NOT NULL,
    target_declaration TEXT NOT NULL,
    target_file TEXT NOT NULL,
    edge_type TEXT NOT NULL,                     -- CALL_DEP or a statement dependency type
    source_kind TEXT,                            -- NULL for call edges
    destination_kind TEXT,
    weight INTEGER NOT NULL,
    FOREIGN KEY (run_id) REFERENCES analysis_runs(run_id) ON DELETE CASCADE
)
`

const createStoreMetadataTable = `
CREATE TABLE store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_runs_created_at ON analysis_runs(created_at)",

		"CREATE INDEX idx_units_run ON compilation_units(run_id)",

		"CREATE INDEX idx_types_unit ON types(unit_id)",
		"CREATE INDEX idx_types_run_name ON types(run_id, name)",

		"CREATE INDEX idx_callables_type ON callables(type_id)",
		"CREATE INDEX idx_callables_run_type ON callables(run_id, type_name)",
		"CREATE INDEX idx_callables_entrypoint ON callables(is_entrypoint)",

		"CREATE INDEX idx_call_sites_callable ON call_sites(callable_id)",
		"CREATE INDEX idx_call_sites_run_crud ON call_sites(run_id, crud_operation)",

		"CREATE INDEX idx_edges_run ON dependency_edges(run_id)",
		"CREATE INDEX idx_edges_source ON dependency_edges(run_id, source_type, source_signature)",
		"CREATE INDEX idx_edges_target ON dependency_edges(run_id, target_type, target_signature)",
	}
}
