// Package discovery finds the Java sources of a project and the source root
// each belongs to.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/codeanalyzer/internal/extract"
)

// skipDirs are never descended into, whatever the patterns say.
var skipDirs = map[string]bool{
	".git":          true,
	".codeanalyzer": true,
	"target":        true,
	"build":         true,
}

// SkipDirs returns the directory names discovery never descends into.
func SkipDirs() []string {
	names := make([]string, 0, len(skipDirs))
	for name := range skipDirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery walks a project directory for source files.
type Discovery struct {
	rootDir string
	include []compiledPattern
	exclude []compiledPattern
}

// New creates a discovery over rootDir. Patterns are matched against slash
// separated paths relative to rootDir.
func New(rootDir string, include, exclude []string) (*Discovery, error) {
	d := &Discovery{rootDir: filepath.Clean(rootDir)}

	var err error
	if d.include, err = compile(include); err != nil {
		return nil, err
	}
	if d.exclude, err = compile(exclude); err != nil {
		return nil, err
	}
	return d, nil
}

func compile(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// Files returns the sorted paths of every included file under the root.
func (d *Discovery) Files() ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(d.rootDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if path != d.rootDir && (skipDirs[entry.Name()] || d.excluded(relPath)) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.excluded(relPath) || !matchesAny(relPath, d.include) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", d.rootDir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Sources returns every discovered file as an extraction source tagged with
// its source root. Parse problems of target files are keyed by the file
// itself.
func (d *Discovery) Sources(targets []string) ([]extract.Source, error) {
	files, err := d.Files()
	if err != nil {
		return nil, err
	}
	targeted := make(map[string]bool, len(targets))
	for _, t := range d.Targets(targets) {
		targeted[t] = true
	}

	sources := make([]extract.Source, 0, len(files))
	for _, path := range files {
		root := d.SourceRoot(path)
		if targeted[path] {
			root = path
		}
		sources = append(sources, extract.Source{Path: path, Root: root})
	}
	return sources, nil
}

// Targets resolves target file arguments against the root.
func (d *Discovery) Targets(targets []string) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if !filepath.IsAbs(t) {
			t = filepath.Join(d.rootDir, t)
		}
		out = append(out, filepath.Clean(t))
	}
	return out
}

// SourceRoot returns the conventional source root (src/<set>/java) that
// contains path, or the project root when there is none.
func (d *Discovery) SourceRoot(path string) string {
	rel, err := filepath.Rel(d.rootDir, filepath.Dir(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return d.rootDir
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i := len(parts) - 3; i >= 0; i-- {
		if parts[i] == "src" && parts[i+2] == "java" {
			return filepath.Join(d.rootDir, filepath.FromSlash(strings.Join(parts[:i+3], "/")))
		}
	}
	return d.rootDir
}

// Matches reports whether a path relative to the root would be discovered.
func (d *Discovery) Matches(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, part := range strings.Split(relPath, "/") {
		if skipDirs[part] {
			return false
		}
	}
	return !d.excluded(relPath) && matchesAny(relPath, d.include)
}

// excluded checks a path, and a directory as if followed by /**.
func (d *Discovery) excluded(relPath string) bool {
	return matchesAny(relPath, d.exclude) || matchesAny(relPath+"/**", d.exclude)
}

// matchesAny checks if a path matches any of the given patterns.
func matchesAny(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Files at the root also match patterns with a leading **/, so that
	// "**/*.java" covers "Main.java".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			simplified, ok := strings.CutPrefix(cp.pattern, "**/")
			if !ok {
				continue
			}
			if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}
	return false
}
