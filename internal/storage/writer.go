package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/codeanalyzer/internal/graph"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// Run describes one analysis run.
type Run struct {
	ID          string
	Root        string
	Level       int
	ToolVersion string
	CreatedAt   time.Time
}

// Writer stores analysis runs.
type Writer struct {
	db     *sql.DB
	ownsDB bool
}

// NewWriter opens the database at path and returns a writer that closes it.
func NewWriter(path string) (*Writer, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Writer{db: db, ownsDB: true}, nil
}

// NewWriterWithDB creates a writer over an existing database.
// The caller is responsible for closing the database connection.
func NewWriterWithDB(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// WriteAnalysis stores the symbol table and dependency edges of one run in
// a single transaction. Missing run fields are filled in: a new ID and the
// current time. edges may be nil for symbol-table-only runs.
func (w *Writer) WriteAnalysis(ctx context.Context, run *Run, table symtab.SymbolTable, edges []graph.Edge) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = sq.Insert("analysis_runs").
		Columns("run_id", "root", "analysis_level", "tool_version", "created_at").
		Values(run.ID, run.Root, run.Level, run.ToolVersion, run.CreatedAt.UTC().Format(timeLayout)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, path := range sortedKeys(table) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeUnit(ctx, tx, run.ID, table[path]); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	for _, e := range edges {
		_, err := sq.Insert("dependency_edges").
			Columns(
				"edge_id", "run_id",
				"source_type", "source_signature", "source_declaration", "source_file",
				"target_type", "target_signature", "target_declaration", "target_file",
				"edge_type", "source_kind", "destination_kind", "weight",
			).
			Values(
				uuid.NewString(), run.ID,
				e.Source.TypeDeclaration, e.Source.Signature, e.Source.CallableDeclaration, e.Source.FilePath,
				e.Target.TypeDeclaration, e.Target.Signature, e.Target.CallableDeclaration, e.Target.FilePath,
				e.Type, nullString(e.SourceKind), nullString(e.DestinationKind), e.Weight,
			).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (w *Writer) writeUnit(ctx context.Context, tx *sql.Tx, runID string, unit *symtab.CompilationUnit) error {
	unitID := uuid.NewString()
	_, err := sq.Insert("compilation_units").
		Columns("unit_id", "run_id", "file_path", "package_name", "import_count", "is_modified").
		Values(unitID, runID, unit.FilePath, unit.PackageName, len(unit.Imports), unit.IsModified).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert compilation unit: %w", err)
	}

	for _, typeName := range sortedKeys(unit.TypeDeclarations) {
		t := unit.TypeDeclarations[typeName]
		typeID := uuid.NewString()
		_, err := sq.Insert("types").
			Columns("type_id", "unit_id", "run_id", "name", "kind", "parent_type",
				"modifiers", "is_entrypoint", "field_count", "callable_count").
			Values(typeID, unitID, runID, typeName, TypeKind(t), nullString(t.ParentType),
				strings.Join(t.Modifiers, " "), t.IsEntrypointClass, len(t.FieldDeclarations), len(t.CallableDeclarations)).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert type %s: %w", typeName, err)
		}

		for _, sig := range sortedKeys(t.CallableDeclarations) {
			if err := w.writeCallable(ctx, tx, runID, typeID, typeName, t.CallableDeclarations[sig]); err != nil {
				return fmt.Errorf("failed to insert callable %s.%s: %w", typeName, sig, err)
			}
		}
	}
	return nil
}

func (w *Writer) writeCallable(ctx context.Context, tx *sql.Tx, runID, typeID, typeName string, c *symtab.Callable) error {
	callableID := uuid.NewString()
	var ret any
	if c.ReturnType != nil {
		ret = *c.ReturnType
	}
	_, err := sq.Insert("callables").
		Columns("callable_id", "type_id", "run_id", "type_name", "signature", "declaration", "file_path",
			"return_type", "is_constructor", "is_implicit", "is_entrypoint",
			"start_line", "end_line", "cyclomatic_complexity").
		Values(callableID, typeID, runID, typeName, c.Signature, c.Declaration, c.FilePath,
			ret, c.IsConstructor, c.IsImplicit, c.IsEntrypoint,
			c.StartLine, c.EndLine, c.CyclomaticComplexity).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return err
	}

	for _, site := range c.CallSites {
		var op, query any
		if site.CRUDOperation != nil {
			op = string(site.CRUDOperation.OperationType)
		}
		if site.CRUDQuery != nil {
			query = string(site.CRUDQuery.QueryType)
		}
		_, err := sq.Insert("call_sites").
			Columns("call_site_id", "callable_id", "run_id", "method_name", "receiver_type", "callee_signature",
				"is_static_call", "is_constructor_call", "crud_operation", "crud_query",
				"start_line", "start_column").
			Values(uuid.NewString(), callableID, runID, site.MethodName, site.ReceiverType, site.CalleeSignature,
				site.IsStaticCall, site.IsConstructorCall, op, query,
				site.StartLine, site.StartColumn).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert call site %s: %w", site.MethodName, err)
		}
	}
	return nil
}

// DeleteRun removes a run and everything stored for it.
func (w *Writer) DeleteRun(ctx context.Context, runID string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// types, callables and call_sites cascade from compilation_units.
	for _, table := range []string{"compilation_units", "dependency_edges", "analysis_runs"} {
		if _, err := sq.Delete(table).Where(sq.Eq{"run_id": runID}).RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Close closes the database if the writer opened it.
func (w *Writer) Close() error {
	if w.ownsDB {
		return w.db.Close()
	}
	return nil
}

// TypeKind names the declaration kind of a type.
func TypeKind(t *symtab.Type) string {
	switch {
	case t.IsAnnotationDeclaration:
		return "annotation"
	case t.IsRecordDeclaration:
		return "record"
	case t.IsEnumDeclaration:
		return "enum"
	case t.IsInterface:
		return "interface"
	default:
		return "class"
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
