package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"mira/internal/media"
)

// DefaultTTL is how long a cached analysis stays valid.
const DefaultTTL = 24 * time.Hour

const entryFileExt = ".json"

var entryFilePattern = regexp.MustCompile(`^[a-f0-9]{64}\.json$`)

// Entry is one memoized analysis result. Entries are immutable once written;
// they expire by aging past the TTL, never by mutation.
type Entry struct {
	Text      string         `json:"text"`
	Metadata  media.Metadata `json:"metadata"`
	Analysis  map[string]any `json:"analysis,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Store is a disk-backed, time-expiring map of analysis results keyed by
// content address. One Store is constructed per process and passed by
// reference; there is no package-level instance.
//
// Every in-memory entry corresponds to exactly one file on disk. Set writes
// the file before updating the index so the index never points at a missing
// file; a crash between the two is recovered by the next Initialize scan.
type Store struct {
	dir      string
	ttl      time.Duration
	logger   *slog.Logger
	observer Observer

	// Now is the clock used for expiry decisions. Tests override it.
	Now func() time.Time

	mu    sync.Mutex
	index map[string]Entry
}

// New prepares a store rooted at dir. The directory is created if absent.
// Initialize must be called before the first Get or Set.
func New(dir string, ttl time.Duration, logger *slog.Logger, observer Observer) (*Store, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = NopObserver()
	}
	trimmed = filepath.Clean(trimmed)
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{
		dir:      trimmed,
		ttl:      ttl,
		logger:   logger,
		observer: observer,
		Now:      time.Now,
		index:    make(map[string]Entry),
	}, nil
}

// TTL returns the configured validity window.
func (s *Store) TTL() time.Duration { return s.ttl }

// Initialize scans the cache directory once, prunes entries that aged past
// the TTL, and loads the rest into the in-memory index. Corrupt files are
// logged, removed, and skipped; they never fail startup.
func (s *Store) Initialize() error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scan cache dir: %w", err)
	}

	now := s.Now()
	loaded, pruned := 0, 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, de := range dirEntries {
		if de.IsDir() || !entryFilePattern.MatchString(de.Name()) {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable cache entry",
				slog.String("file", de.Name()), slog.String("error", err.Error()))
			s.observer.RecordLoadError()
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			s.logger.Warn("removing corrupt cache entry",
				slog.String("file", de.Name()), slog.String("error", err.Error()))
			s.observer.RecordLoadError()
			_ = os.Remove(path)
			continue
		}
		if now.Sub(entry.Timestamp) >= s.ttl {
			_ = os.Remove(path)
			pruned++
			continue
		}
		key := strings.TrimSuffix(de.Name(), entryFileExt)
		s.index[key] = entry
		loaded++
	}

	s.observer.RecordPrune(pruned)
	s.logger.Info("media cache initialized",
		slog.String("dir", s.dir), slog.Int("loaded", loaded), slog.Int("pruned", pruned))
	return nil
}

// Get returns the entry for key if it is still within its validity window at
// the moment of the call. Entries loaded long ago by a long-lived process are
// re-checked here, not only at startup.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[key]
	if !ok {
		s.observer.RecordMiss()
		return Entry{}, false
	}
	if s.Now().Sub(entry.Timestamp) >= s.ttl {
		delete(s.index, key)
		_ = os.Remove(s.fileFor(key))
		s.observer.RecordMiss()
		return Entry{}, false
	}
	s.observer.RecordHit()
	return entry, true
}

// Set persists entry under key, file first, index second. A write failure
// leaves the index untouched and is returned for the caller to treat as
// best-effort.
func (s *Store) Set(key string, entry Entry) (err error) {
	defer func() { s.observer.RecordWrite(err) }()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	path := s.fileFor(key)
	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpPath := tmp.Name()
	writeErr := func() error {
		if _, err := tmp.Write(data); err != nil {
			return err
		}
		return tmp.Close()
	}()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write cache entry: %w", writeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize cache entry: %w", err)
	}

	s.mu.Lock()
	s.index[key] = entry
	s.mu.Unlock()
	return nil
}

// Len reports the number of indexed entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *Store) fileFor(key string) string {
	return filepath.Join(s.dir, key+entryFileExt)
}
