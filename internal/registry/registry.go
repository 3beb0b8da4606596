// Package registry holds every callable of an analysis keyed by declaring
// type and signature. Extraction fills it; the dependency graph builder reads
// it and adds stubs for callables only the call graph knows about.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

const defaultShardCount = 16

// shard holds the declaring types whose name hashes to it, each with its own lock.
type shard struct {
	mu    sync.RWMutex
	types map[string]map[string]*symtab.Callable
}

// Registry is a concurrent two-level table: declaring type -> signature -> callable.
// Entries are never replaced or removed.
type Registry struct {
	shards []*shard
	mask   uint64
}

// New creates a registry with the default shard count.
func New() *Registry {
	return NewWithShards(defaultShardCount)
}

// NewWithShards creates a registry with n shards, rounded up to a power of two.
func NewWithShards(n int) *Registry {
	count := 1
	for count < n {
		count <<= 1
	}
	shards := make([]*shard, count)
	for i := range shards {
		shards[i] = &shard{types: make(map[string]map[string]*symtab.Callable)}
	}
	return &Registry{
		shards: shards,
		mask:   uint64(count - 1),
	}
}

func (r *Registry) shardFor(declaringType string) *shard {
	return r.shards[xxhash.Sum64String(declaringType)&r.mask]
}

// Put inserts a callable. The first writer of a key wins: Put returns false and
// leaves the existing entry untouched when the key is already present.
func (r *Registry) Put(declaringType, signature string, c *symtab.Callable) bool {
	s := r.shardFor(declaringType)
	s.mu.Lock()
	defer s.mu.Unlock()

	sigs, ok := s.types[declaringType]
	if !ok {
		sigs = make(map[string]*symtab.Callable)
		s.types[declaringType] = sigs
	}
	if _, exists := sigs[signature]; exists {
		return false
	}
	sigs[signature] = c
	return true
}

// Get looks a callable up by exact signature and falls back to a fuzzy match.
func (r *Registry) Get(declaringType, signature string) (*symtab.Callable, bool) {
	c, _, ok := r.Lookup(declaringType, signature)
	return c, ok
}

// Lookup is Get that also returns the key the callable is stored under.
//
// The fuzzy match accepts an entry with the same method name and arity whose
// parameter types each end with the queried parameter type, once type
// arguments are erased on both sides. Candidates are scanned in sorted key
// order; overloads that differ only in type arguments are indistinguishable
// and the first one wins.
func (r *Registry) Lookup(declaringType, signature string) (*symtab.Callable, string, bool) {
	s := r.shardFor(declaringType)
	s.mu.RLock()
	defer s.mu.RUnlock()

	sigs, ok := s.types[declaringType]
	if !ok {
		return nil, "", false
	}
	if c, ok := sigs[signature]; ok {
		return c, signature, true
	}

	name, params := symtab.SplitSignature(signature)
	for _, key := range sortedKeys(sigs) {
		if fuzzyMatch(key, name, params) {
			return sigs[key], key, true
		}
	}
	return nil, "", false
}

func fuzzyMatch(key, name string, params []string) bool {
	keyName, keyParams := symtab.SplitSignature(key)
	if keyName != name || len(keyParams) != len(params) {
		return false
	}
	for i, p := range keyParams {
		if !strings.HasSuffix(symtab.EraseTypeArguments(p), symtab.EraseTypeArguments(params[i])) {
			return false
		}
	}
	return true
}

// Signatures returns the signature keys registered for a type, sorted.
func (r *Registry) Signatures(declaringType string) []string {
	s := r.shardFor(declaringType)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.types[declaringType])
}

// Len returns the total number of registered callables.
func (r *Registry) Len() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		for _, sigs := range s.types {
			total += len(sigs)
		}
		s.mu.RUnlock()
	}
	return total
}

func sortedKeys(m map[string]*symtab.Callable) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
