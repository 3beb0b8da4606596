package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/codeanalyzer/internal/graph"
)

// ErrNoRuns is returned when the database holds no analysis run.
var ErrNoRuns = errors.New("no analysis runs stored")

// Counts summarizes what one run stored.
type Counts struct {
	Units     int
	Types     int
	Callables int
	CallSites int
	Edges     int
}

// CallableRow is a stored callable.
type CallableRow struct {
	TypeName             string
	Signature            string
	Declaration          string
	FilePath             string
	IsConstructor        bool
	IsImplicit           bool
	IsEntrypoint         bool
	CyclomaticComplexity int
}

// CallableFilter narrows Callables. Zero values match everything.
type CallableFilter struct {
	TypeName        string
	EntrypointsOnly bool
	MinComplexity   int
}

// Reader queries stored analysis runs.
type Reader struct {
	db     *sql.DB
	ownsDB bool
}

// NewReader opens the database at path and returns a reader that closes it.
func NewReader(path string) (*Reader, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db, ownsDB: true}, nil
}

// NewReaderWithDB creates a reader over an existing database.
// The caller is responsible for closing the database connection.
func NewReaderWithDB(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Runs returns every stored run, newest first.
func (r *Reader) Runs(ctx context.Context) ([]Run, error) {
	rows, err := sq.Select("run_id", "root", "analysis_level", "tool_version", "created_at").
		From("analysis_runs").
		OrderBy("created_at DESC").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the newest run, or ErrNoRuns.
func (r *Reader) LatestRun(ctx context.Context) (Run, error) {
	row := sq.Select("run_id", "root", "analysis_level", "tool_version", "created_at").
		From("analysis_runs").
		OrderBy("created_at DESC").
		Limit(1).
		RunWith(r.db).
		QueryRowContext(ctx)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var created string
	if err := s.Scan(&run.ID, &run.Root, &run.Level, &run.ToolVersion, &created); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("failed to parse run timestamp %q: %w", created, err)
	}
	run.CreatedAt = t
	return run, nil
}

// Counts returns the number of rows one run stored per table.
func (r *Reader) Counts(ctx context.Context, runID string) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dest  *int
	}{
		{"compilation_units", &c.Units},
		{"types", &c.Types},
		{"callables", &c.Callables},
		{"call_sites", &c.CallSites},
		{"dependency_edges", &c.Edges},
	}
	for _, t := range targets {
		err := sq.Select("COUNT(*)").
			From(t.table).
			Where(sq.Eq{"run_id": runID}).
			RunWith(r.db).
			QueryRowContext(ctx).
			Scan(t.dest)
		if err != nil {
			return Counts{}, fmt.Errorf("failed to count %s: %w", t.table, err)
		}
	}
	return c, nil
}

// Callables returns the callables of a run matching filter, ordered by type
// and signature.
func (r *Reader) Callables(ctx context.Context, runID string, filter CallableFilter) ([]CallableRow, error) {
	query := sq.Select("type_name", "signature", "declaration", "file_path",
		"is_constructor", "is_implicit", "is_entrypoint", "cyclomatic_complexity").
		From("callables").
		Where(sq.Eq{"run_id": runID})
	if filter.TypeName != "" {
		query = query.Where(sq.Eq{"type_name": filter.TypeName})
	}
	if filter.EntrypointsOnly {
		query = query.Where(sq.Eq{"is_entrypoint": true})
	}
	if filter.MinComplexity > 0 {
		query = query.Where(sq.GtOrEq{"cyclomatic_complexity": filter.MinComplexity})
	}

	rows, err := query.OrderBy("type_name", "signature").RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query callables: %w", err)
	}
	defer rows.Close()

	var out []CallableRow
	for rows.Next() {
		var c CallableRow
		if err := rows.Scan(&c.TypeName, &c.Signature, &c.Declaration, &c.FilePath,
			&c.IsConstructor, &c.IsImplicit, &c.IsEntrypoint, &c.CyclomaticComplexity); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Edges returns the dependency edges of a run. When typeName is not empty only
// edges leaving that type are returned.
func (r *Reader) Edges(ctx context.Context, runID, typeName string) ([]graph.Edge, error) {
	query := sq.Select(
		"source_type", "source_signature", "source_declaration", "source_file",
		"target_type", "target_signature", "target_declaration", "target_file",
		"edge_type", "COALESCE(source_kind, '')", "COALESCE(destination_kind, '')", "weight",
	).
		From("dependency_edges").
		Where(sq.Eq{"run_id": runID})
	if typeName != "" {
		query = query.Where(sq.Eq{"source_type": typeName})
	}

	rows, err := query.
		OrderBy("source_type", "source_signature", "target_type", "target_signature", "edge_type").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var out []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(
			&e.Source.TypeDeclaration, &e.Source.Signature, &e.Source.CallableDeclaration, &e.Source.FilePath,
			&e.Target.TypeDeclaration, &e.Target.Signature, &e.Target.CallableDeclaration, &e.Target.FilePath,
			&e.Type, &e.SourceKind, &e.DestinationKind, &e.Weight,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database if the reader opened it.
func (r *Reader) Close() error {
	if r.ownsDB {
		return r.db.Close()
	}
	return nil
}
