// Package idgen issues monotonically increasing ids backed by a counter file,
// so message ids stay unique across restarts.
package idgen

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Sequence is a persistent monotonic counter. Each Next call returns a value
// strictly greater than every value returned before it in this install.
// Serialization is in-process only; the application is single-process.
type Sequence struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	last   int64
	loaded bool
}

// NewSequence creates a sequence backed by the counter file at path.
func NewSequence(fs afero.Fs, path string, logger *slog.Logger) *Sequence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequence{
		fs:     fs,
		path:   path,
		logger: logger.With("component", "idgen"),
	}
}

// Next returns the next id and persists it. Persistence failures are logged
// and swallowed; the in-memory counter remains authoritative for the session.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.last = s.read()
		s.loaded = true
	}

	s.last++
	if err := s.write(s.last); err != nil {
		s.logger.Warn("failed to persist id counter", "path", s.path, "error", err)
	}
	return s.last
}

// Last returns the most recently issued id without advancing the counter.
func (s *Sequence) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.last = s.read()
		s.loaded = true
	}
	return s.last
}

func (s *Sequence) read() int64 {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		s.logger.Warn("id counter unreadable, starting at 0", "path", s.path, "error", err)
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		s.logger.Warn("id counter corrupt, starting at 0", "path", s.path, "error", err)
		return 0
	}
	return n
}

func (s *Sequence) write(n int64) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create counter directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(strconv.FormatInt(n, 10)), 0o644); err != nil {
		return fmt.Errorf("failed to write counter temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace counter file: %w", err)
	}
	return nil
}
