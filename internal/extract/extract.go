// Package extract builds the symbol table of a set of Java sources: types,
// fields, callables, initializer blocks and the facts derived from their bodies.
package extract

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/codeanalyzer/internal/crud"
	"github.com/mvp-joe/codeanalyzer/internal/entrypoint"
	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/registry"
	"github.com/mvp-joe/codeanalyzer/internal/resolve"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// SingleRoot is the problems key used for source analyzed from a string.
const SingleRoot = "code"

// Source is one Java file to analyze.
type Source struct {
	Path string
	Root string // Source root the file belongs to; parse problems are keyed by it
	Code []byte // Read from Path when nil
}

// UnitCache stores extracted units by file content so that unchanged files
// are not extracted again.
type UnitCache interface {
	Get(path string, hash uint64) (*symtab.CompilationUnit, bool)
	Put(path string, hash uint64, unit *symtab.CompilationUnit) error
}

// Extractor turns parsed sources into compilation units and records every
// callable it extracts in the shared registry.
type Extractor struct {
	registry    *registry.Registry
	entrypoints *entrypoint.Classifier
	crud        *crud.Classifier
	logger      *logrus.Logger
	progress    ProgressReporter
	cache       UnitCache
	classpath   []string
	targets     map[string]bool
	workers     int
	cacheSize   int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithWorkers limits the number of units processed concurrently.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithEntrypoints sets the entrypoint classifier.
func WithEntrypoints(c *entrypoint.Classifier) Option {
	return func(e *Extractor) { e.entrypoints = c }
}

// WithCRUD sets the CRUD classifier.
func WithCRUD(c *crud.Classifier) Option {
	return func(e *Extractor) { e.crud = c }
}

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(e *Extractor) { e.progress = p }
}

// WithCache reuses units whose source has not changed since they were cached.
func WithCache(c UnitCache) Option {
	return func(e *Extractor) { e.cache = c }
}

// WithClasspath adds the classes of the given jars to type resolution.
func WithClasspath(jars []string) Option {
	return func(e *Extractor) { e.classpath = jars }
}

// WithTargets restricts extraction to the given files. Every source is still
// parsed and indexed so that references into the rest of the project resolve.
func WithTargets(paths []string) Option {
	return func(e *Extractor) {
		if len(paths) == 0 {
			return
		}
		e.targets = make(map[string]bool, len(paths))
		for _, p := range paths {
			e.targets[p] = true
		}
	}
}

// WithResolverCacheSize sets the capacity of the resolver's lookup cache.
func WithResolverCacheSize(n int) Option {
	return func(e *Extractor) { e.cacheSize = n }
}

// New creates an extractor that records callables in reg.
func New(reg *registry.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		registry: reg,
		progress: NoOpProgressReporter{},
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetLevel(logrus.WarnLevel)
	}
	if e.entrypoints == nil {
		e.entrypoints = entrypoint.Default(e.logger)
	}
	if e.crud == nil {
		e.crud = crud.Default()
	}
	return e
}

// Registry returns the registry callables are recorded in.
func (e *Extractor) Registry() *registry.Registry {
	return e.registry
}

// Project is a set of parsed and indexed sources. Close releases the syntax trees.
type Project struct {
	Units    []*parser.Unit // Sorted by path
	Index    *resolve.Index
	Resolver *resolve.Resolver
	Problems symtab.Problems

	scopes      map[string]*resolve.Scope
	hashes      map[string]uint64
	fingerprint uint64 // Content of every unit and the classpath
}

// Scope returns the resolution scope of a unit.
func (p *Project) Scope(u *parser.Unit) *resolve.Scope {
	return p.scopes[u.Path]
}

// Close releases the resolver and every syntax tree.
func (p *Project) Close() {
	if p.Resolver != nil {
		p.Resolver.Close()
	}
	for _, u := range p.Units {
		u.Close()
	}
}

// Load parses every source, declares its types and resolves the members of
// the whole project. Files that cannot be read or parsed are reported as
// problems and skipped.
func (e *Extractor) Load(ctx context.Context, sources []Source) (*Project, error) {
	p := &Project{
		Index:    resolve.NewIndex(),
		Problems: symtab.Problems{},
		scopes:   make(map[string]*resolve.Scope),
		hashes:   make(map[string]uint64),
	}

	e.progress.OnParseStart(len(sources))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, src := range sources {
		g.Go(func() error {
			u, problems := e.parse(gctx, src)
			if err := gctx.Err(); err != nil {
				if u != nil {
					u.Close()
				}
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			key := src.Root
			if key == "" {
				key = src.Path
			}
			if len(problems) > 0 {
				p.Problems[key] = append(p.Problems[key], problems...)
			}
			if u != nil {
				p.Units = append(p.Units, u)
				p.hashes[u.Path] = xxhash.Sum64(u.Source)
			}
			e.progress.OnFileParsed(src.Path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.Close()
		return nil, err
	}

	sort.Slice(p.Units, func(i, j int) bool { return p.Units[i].Path < p.Units[j].Path })
	for _, problems := range p.Problems {
		sort.SliceStable(problems, func(i, j int) bool {
			if problems[i].FilePath != problems[j].FilePath {
				return problems[i].FilePath < problems[j].FilePath
			}
			return problems[i].Line < problems[j].Line
		})
	}

	for _, u := range p.Units {
		p.Index.Declare(u)
	}
	p.fingerprint = fingerprint(p.Units, p.hashes, e.classpath)
	if len(e.classpath) > 0 {
		if err := p.Index.LoadClasspath(e.classpath); err != nil {
			e.logger.WithError(err).Warn("failed to read classpath, continuing with the classes read so far")
		}
	}

	resolver, err := resolve.New(p.Index, resolve.WithLogger(e.logger), resolve.WithCacheSize(e.cacheSizeOrDefault()))
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Resolver = resolver

	scopes := make([]*resolve.Scope, 0, len(p.Units))
	for _, u := range p.Units {
		s := resolve.NewScope(u)
		p.scopes[u.Path] = s
		scopes = append(scopes, s)
	}
	resolver.Populate(scopes...)

	e.logger.WithFields(logrus.Fields{
		"files": len(p.Units),
		"types": p.Index.Len(),
	}).Debug("project indexed")
	return p, nil
}

func (e *Extractor) cacheSizeOrDefault() int {
	if e.cacheSize > 0 {
		return e.cacheSize
	}
	return 10_000
}

func (e *Extractor) parse(ctx context.Context, src Source) (*parser.Unit, []symtab.Problem) {
	code := src.Code
	if code == nil {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			e.logger.WithField("file", src.Path).WithError(err).Warn("failed to read source")
			return nil, []symtab.Problem{unreadable(src.Path, err)}
		}
		code = data
	}

	u, err := parser.Parse(ctx, src.Path, code)
	if err != nil {
		e.logger.WithField("file", src.Path).WithError(err).Warn("failed to parse source")
		return nil, []symtab.Problem{unreadable(src.Path, err)}
	}
	problems := u.Problems()
	if len(problems) > 0 {
		e.logger.WithFields(logrus.Fields{
			"file":     src.Path,
			"problems": len(problems),
		}).Warn("source has syntax errors")
	}
	return u, problems
}

func unreadable(path string, err error) symtab.Problem {
	return symtab.Problem{
		Message:  err.Error(),
		FilePath: path,
		Line:     symtab.Unknown,
		Column:   symtab.Unknown,
	}
}

// Extract builds the compilation unit of every unit of the project, or of
// the target files when targets are set. Units run concurrently; the
// registry is the only state they share.
func (e *Extractor) Extract(ctx context.Context, p *Project) (symtab.SymbolTable, error) {
	var units []*parser.Unit
	for _, u := range p.Units {
		if e.targets == nil || e.targets[u.Path] {
			units = append(units, u)
		}
	}

	table := symtab.SymbolTable{}
	var mu sync.Mutex
	e.progress.OnExtractStart(len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cu := e.unit(p, u)
			mu.Lock()
			table[u.Path] = cu
			e.progress.OnFileExtracted(u.Path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}

// fingerprint hashes the path and content hash of every unit, sorted by path,
// and the path, size and modification time of every classpath jar.
func fingerprint(units []*parser.Unit, hashes map[string]uint64, classpath []string) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	for _, u := range units {
		_, _ = d.WriteString(u.Path)
		writeUint(hashes[u.Path])
	}

	jars := append([]string(nil), classpath...)
	sort.Strings(jars)
	for _, jar := range jars {
		_, _ = d.WriteString(jar)
		if info, err := os.Stat(jar); err == nil {
			writeUint(uint64(info.Size()))
			writeUint(uint64(info.ModTime().UnixNano()))
		}
	}
	return d.Sum64()
}

// cacheKey combines the content hash of a unit with the project fingerprint.
// Resolved types and callee signatures depend on every other file, so an edit
// anywhere invalidates every cached unit.
func (p *Project) cacheKey(u *parser.Unit) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], p.hashes[u.Path])
	binary.LittleEndian.PutUint64(buf[8:], p.fingerprint)
	return xxhash.Sum64(buf[:])
}

// unit extracts one unit, or reuses the cached extraction made from the same
// source in the same project.
func (e *Extractor) unit(p *Project, u *parser.Unit) *symtab.CompilationUnit {
	hash := p.cacheKey(u)
	if e.cache != nil {
		if cu, ok := e.cache.Get(u.Path, hash); ok {
			cu.IsModified = false
			e.register(cu)
			return cu
		}
	}

	cu := newUnitExtractor(e, p, u).extract()
	if e.cache != nil {
		if err := e.cache.Put(u.Path, hash, cu); err != nil {
			e.logger.WithField("file", u.Path).WithError(err).Warn("failed to cache unit")
		}
	}
	return cu
}

// register records the callables of a reused unit.
func (e *Extractor) register(cu *symtab.CompilationUnit) {
	for typeName, t := range cu.TypeDeclarations {
		for sig, c := range t.CallableDeclarations {
			e.registry.Put(typeName, sig, c)
		}
	}
}

// Run loads and extracts the sources in one step.
func (e *Extractor) Run(ctx context.Context, sources []Source) (symtab.SymbolTable, symtab.Problems, error) {
	p, err := e.Load(ctx, sources)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sources: %w", err)
	}
	defer p.Close()

	table, err := e.Extract(ctx, p)
	if err != nil {
		return nil, p.Problems, fmt.Errorf("failed to extract symbols: %w", err)
	}
	return table, p.Problems, nil
}

// ExtractSingle analyzes Java source held in memory. The unit is reported
// under the pseudo path and its problems under SingleRoot.
func (e *Extractor) ExtractSingle(ctx context.Context, code string) (symtab.SymbolTable, symtab.Problems, error) {
	return e.Run(ctx, []Source{{
		Path: parser.PseudoPath,
		Root: SingleRoot,
		Code: []byte(code),
	}})
}
