package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"freightcli/internal/errors"
	"freightcli/pkg/contracts"
	"freightcli/pkg/contracts/domain"
)

const indexFile = "index.json"

// Entry describes one cached table
type Entry struct {
	Key         string    `json:"key"`
	SourcePath  string    `json:"source_path"`
	SourceMtime int64     `json:"source_mtime"`
	Sheets      []string  `json:"sheets"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
	HitCount    int       `json:"hit_count"`
}

type payload struct {
	Format string           `json:"format"`
	Table  *domain.RawTable `json:"table"`
}

// Store is the on-disk table cache
type Store struct {
	dir    string
	maxAge time.Duration
	logger *slog.Logger

	mu        sync.Mutex
	index     map[string]Entry
	hitCount  int64
	missCount int64
}

// Open loads the cache index under dir and prunes stale entries. A
// corrupt index is discarded.
func Open(dir string, maxAge time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewStorageError("failed to create cache directory", err)
	}

	s := &Store{
		dir:    dir,
		maxAge: maxAge,
		logger: logger.With(slog.String("component", "cache")),
		index:  make(map[string]Entry),
	}
	s.loadIndex()

	if removed := s.Cleanup(); removed > 0 {
		s.logger.Info("pruned stale cache entries", slog.Int("removed", removed))
	}
	return s, nil
}

// Key derives the cache key for a workbook and sheet selection
func Key(path string, mtime time.Time, sheets []string) string {
	sorted := append([]string(nil), sheets...)
	sort.Strings(sorted)
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%s", path, mtime.UnixNano(), strings.Join(sorted, ","))))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached table for path and sheets. Any mismatch or read
// failure is a miss.
func (s *Store) Get(path string, sheets []string) (*domain.RawTable, bool) {
	info, err := os.Stat(path)
	if err != nil {
		s.miss()
		return nil, false
	}
	key := Key(absPath(path), info.ModTime(), sheets)

	s.mu.Lock()
	entry, ok := s.index[key]
	s.mu.Unlock()

	if !ok || entry.SourceMtime != info.ModTime().UnixNano() || s.expired(entry, time.Now()) {
		s.miss()
		return nil, false
	}

	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		s.logger.Warn("cache entry unreadable", slog.String("key", key), slog.String("error", err.Error()))
		s.drop(key)
		s.miss()
		return nil, false
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil || p.Format != contracts.CacheFormatVersion || p.Table == nil {
		s.drop(key)
		s.miss()
		return nil, false
	}

	s.mu.Lock()
	entry.HitCount++
	s.index[key] = entry
	s.hitCount++
	s.mu.Unlock()

	return p.Table, true
}

// Put stores table for path and sheets
func (s *Store) Put(path string, sheets []string, table *domain.RawTable) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewStorageError("failed to stat source workbook", err)
	}
	source := absPath(path)
	key := Key(source, info.ModTime(), sheets)

	data, err := json.Marshal(payload{Format: contracts.CacheFormatVersion, Table: table})
	if err != nil {
		return errors.NewStorageError("failed to encode cache entry", err)
	}
	if err := writeFileAtomic(s.entryPath(key), data); err != nil {
		return errors.NewStorageError("failed to write cache entry", err)
	}

	s.mu.Lock()
	s.index[key] = Entry{
		Key:         key,
		SourcePath:  source,
		SourceMtime: info.ModTime().UnixNano(),
		Sheets:      append([]string(nil), sheets...),
		Rows:        table.Len(),
		CreatedAt:   time.Now(),
	}
	err = s.saveIndexLocked()
	s.mu.Unlock()

	if err != nil {
		return errors.NewStorageError("failed to save cache index", err)
	}
	s.logger.Debug("cached table", slog.String("key", key), slog.Int("rows", table.Len()))
	return nil
}

// Cleanup removes entries older than the maximum age and returns how many
// were removed
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range s.index {
		if !s.expired(entry, now) {
			continue
		}
		if err := os.Remove(s.entryPath(key)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove cache file", slog.String("key", key), slog.String("error", err.Error()))
		}
		delete(s.index, key)
		removed++
	}

	if removed > 0 {
		if err := s.saveIndexLocked(); err != nil {
			s.logger.Warn("failed to save cache index", slog.String("error", err.Error()))
		}
	}
	return removed
}

// Clear removes every entry
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.index {
		_ = os.Remove(s.entryPath(key))
	}
	s.index = make(map[string]Entry)
	return s.saveIndexLocked()
}

// Entries returns the index sorted newest first
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.index))
	for _, e := range s.index {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// GetStats returns cache statistics
func (s *Store) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hitCount + s.missCount
	hitRatio := float64(0)
	if total > 0 {
		hitRatio = float64(s.hitCount) / float64(total)
	}

	return map[string]interface{}{
		"entries":      len(s.index),
		"hit_count":    s.hitCount,
		"miss_count":   s.missCount,
		"hit_ratio":    hitRatio,
		"max_age_days": s.maxAge.Hours() / 24,
	}
}

func (s *Store) expired(e Entry, now time.Time) bool {
	return s.maxAge > 0 && now.Sub(e.CreatedAt) > s.maxAge
}

func (s *Store) miss() {
	s.mu.Lock()
	s.missCount++
	s.mu.Unlock()
}

func (s *Store) drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index, key)
	if err := os.Remove(s.entryPath(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove cache file", slog.String("key", key), slog.String("error", err.Error()))
	}
	if err := s.saveIndexLocked(); err != nil {
		s.logger.Warn("failed to save cache index", slog.String("error", err.Error()))
	}
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) loadIndex() {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		return
	}
	index := make(map[string]Entry)
	if err := json.Unmarshal(data, &index); err != nil {
		s.logger.Warn("discarding corrupt cache index", slog.String("error", err.Error()))
		return
	}
	s.index = index
}

func (s *Store) saveIndexLocked() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, indexFile), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
