// Package staging writes inbound payloads to uniquely named temporary files
// so downstream analysis can work on a path instead of an in-memory buffer.
package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Stager stages byte buffers under a temp root. Every Stage call picks a
// fresh uuid-based name, so concurrent invocations can never collide.
type Stager struct {
	dir    string
	logger *slog.Logger
}

// New prepares a stager rooted at dir, creating it if absent.
func New(dir string, logger *slog.Logger) (*Stager, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("staging dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	trimmed = filepath.Clean(trimmed)
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Stager{dir: trimmed, logger: logger}, nil
}

// Stage writes data to a freshly named file and returns its path. The caller
// owns the file and must Release it on every exit path.
func (s *Stager) Stage(data []byte, extHint string) (string, error) {
	name := uuid.NewString() + sanitizeExt(extHint)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("stage payload: %w", err)
	}
	s.logger.Debug("staged payload",
		slog.String("path", path), slog.Int("bytes", len(data)))
	return path, nil
}

// Release deletes a previously staged file. A file that is already gone is
// not an error, so Release is safe to call more than once.
func (s *Stager) Release(path string) error {
	if filepath.Dir(filepath.Clean(path)) != s.dir {
		return fmt.Errorf("refusing to release file outside staging dir: %s", path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release staged file: %w", err)
	}
	return nil
}

// Dir returns the staging root.
func (s *Stager) Dir() string { return s.dir }

func sanitizeExt(hint string) string {
	ext := strings.ToLower(strings.TrimSpace(hint))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
