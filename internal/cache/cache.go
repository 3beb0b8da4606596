// Package cache keeps extracted compilation units across runs, keyed by
// file path and invalidated by a hash the caller derives from the file's
// content and the project around it.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

const bucketName = "units"

var errMiss = errors.New("cache miss")

// entry is the stored value of one file.
type entry struct {
	Hash uint64                  `json:"hash"`
	Unit *symtab.CompilationUnit `json:"unit"`
}

// Stats counts cache traffic since the cache was opened.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// UnitCache is a bbolt backed store of compilation units. It is safe for
// concurrent use.
type UnitCache struct {
	db     *bolt.DB
	logger *logrus.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens or creates the cache file at path.
func Open(path string, logger *logrus.Logger) (*UnitCache, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return &UnitCache{db: db, logger: logger}, nil
}

// Hash returns the content hash the cache compares.
func Hash(source []byte) uint64 {
	return xxhash.Sum64(source)
}

// Get returns the unit cached for path when it was extracted from content
// with the given hash.
func (c *UnitCache) Get(path string, hash uint64) (*symtab.CompilationUnit, bool) {
	var e entry
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(path))
		if data == nil {
			return errMiss
		}
		return json.Unmarshal(data, &e)
	})
	if err != nil || e.Hash != hash || e.Unit == nil {
		if err != nil && !errors.Is(err, errMiss) {
			c.logger.WithField("file", path).WithError(err).Warn("discarding unreadable cache entry")
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.Unit, true
}

// Put stores the unit extracted from content with the given hash.
func (c *UnitCache) Put(path string, hash uint64, unit *symtab.CompilationUnit) error {
	data, err := json.Marshal(entry{Hash: hash, Unit: unit})
	if err != nil {
		return fmt.Errorf("failed to encode unit %s: %w", path, err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(path), data)
	})
}

// Prune removes the entries of every file not in keep and returns how many
// it removed.
func (c *UnitCache) Prune(keep []string) (int, error) {
	live := make(map[string]bool, len(keep))
	for _, path := range keep {
		live[path] = true
	}

	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, _ []byte) error {
			if !live[string(k)] {
				stale = append(stale, append([]byte{}, k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	if removed > 0 {
		c.logger.WithField("removed", removed).Debug("pruned cache entries")
	}
	return removed, nil
}

// Stats returns hit and miss counts and the number of stored entries.
func (c *UnitCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	_ = c.db.View(func(tx *bolt.Tx) error {
		s.Entries = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return s
}

// Close closes the cache file.
func (c *UnitCache) Close() error {
	return c.db.Close()
}
