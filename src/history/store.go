package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corvid-labs/quill/src/aisdk"
	"github.com/corvid-labs/quill/src/idgen"
	"github.com/spf13/afero"
)

// Options controls persistence behavior.
type Options struct {
	// Autosave enables the throttled background flush from Log.
	Autosave bool
	// AutosaveEveryN is the dirty-record threshold before an autosave fires.
	AutosaveEveryN int
	// AutosaveMinInterval is the minimum time between autosaves.
	AutosaveMinInterval time.Duration
	// DisableFlush is a hard kill switch for all persistence.
	DisableFlush bool
	// MaxContentChars clamps projected message content. Zero means the
	// default of 20000.
	MaxContentChars int
}

// DefaultOptions returns the persistence defaults.
func DefaultOptions() Options {
	return Options{
		Autosave:            true,
		AutosaveEveryN:      8,
		AutosaveMinInterval: 3 * time.Second,
		MaxContentChars:     20000,
	}
}

// Store is the process-wide message log. The in-memory list is authoritative
// for the session; every persistence failure is logged and swallowed.
type Store struct {
	fs          afero.Fs
	path        string
	legacyPaths []string
	seq         *idgen.Sequence
	logger      *slog.Logger
	opts        Options

	mu           sync.Mutex
	records      []*Record
	threadID     int64
	dirty        int
	lastSave     time.Time
	lastReadPath string
	flushing     bool
}

// New creates a store persisting to path. Legacy paths are read-only sources
// for a one-time migration on Load.
func New(fs afero.Fs, path string, legacyPaths []string, seq *idgen.Sequence, logger *slog.Logger, opts Options) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AutosaveEveryN <= 0 {
		opts.AutosaveEveryN = 8
	}
	if opts.AutosaveMinInterval <= 0 {
		opts.AutosaveMinInterval = 3 * time.Second
	}
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = 20000
	}
	return &Store{
		fs:          fs,
		path:        path,
		legacyPaths: legacyPaths,
		seq:         seq,
		logger:      logger.With("component", "history"),
		opts:        opts,
		threadID:    1,
		lastSave:    time.Now(),
	}
}

// CurrentThread returns the active thread id.
func (s *Store) CurrentThread() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// SetThread switches the active thread id.
func (s *Store) SetThread(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = id
}

// NewThread allocates a fresh thread id from the sequence and makes it
// current.
func (s *Store) NewThread() int64 {
	id := s.seq.Next()
	s.mu.Lock()
	s.threadID = id
	s.mu.Unlock()
	return id
}

// Len returns the number of records in memory.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of the in-memory list.
func (s *Store) Records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// Load reads the persisted list, preferring the canonical path and falling
// back to legacy paths. A load from a legacy path when the canonical file is
// absent writes the canonical file and renames the legacy source aside. Load
// never fails: a missing, unreadable, or invalid file yields an empty list
// with a warning.
func (s *Store) Load() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, readPath, ok := s.readAny()
	if !ok {
		s.records = nil
		return nil
	}
	s.records = records
	s.lastReadPath = readPath

	if readPath != s.path {
		if exists, _ := afero.Exists(s.fs, s.path); !exists {
			if err := s.writeLocked(); err != nil {
				s.logger.Warn("failed to migrate history to canonical path", "path", s.path, "error", err)
			} else {
				s.logger.Info("migrated history", "from", readPath, "to", s.path)
				if err := s.fs.Rename(readPath, readPath+".bak"); err != nil {
					s.logger.Warn("failed to retire legacy history file", "path", readPath, "error", err)
				}
			}
		}
	}

	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) readAny() ([]*Record, string, bool) {
	paths := append([]string{s.path}, s.legacyPaths...)
	for _, p := range paths {
		data, err := afero.ReadFile(s.fs, p)
		if err != nil {
			if !os.IsNotExist(err) {
				s.logger.Warn("history file unreadable", "path", p, "error", err)
			}
			continue
		}
		var records []*Record
		if err := json.Unmarshal(data, &records); err != nil {
			s.logger.Warn("history file invalid, ignoring", "path", p, "error", err)
			continue
		}
		return records, p, true
	}
	return nil, "", false
}

// Log appends a new record with a fresh message id, wall-clock stamps, and
// the current thread id, then triggers the throttled autosave.
func (s *Store) Log(role string, content aisdk.MessageContent, fields Fields) *Record {
	rec := &Record{
		ID:            s.seq.Next(),
		Role:          role,
		Content:       content,
		AssistantName: fields.AssistantName,
		AssistantID:   fields.AssistantID,
		ToolCalls:     fields.ToolCalls,
		ToolCallID:    fields.ToolCallID,
		Name:          fields.Name,
		Object:        fields.Object,
		Dev:           fields.Dev,
		Sys:           fields.Sys,
	}
	rec.normalize()
	rec.stamp(time.Now())

	s.mu.Lock()
	rec.ThreadID = s.threadID
	s.records = append(s.records, rec)
	s.dirty++
	shouldSave := s.opts.Autosave && !s.opts.DisableFlush &&
		s.dirty >= s.opts.AutosaveEveryN &&
		time.Since(s.lastSave) >= s.opts.AutosaveMinInterval
	s.mu.Unlock()

	if shouldSave {
		if err := s.Flush(); err != nil {
			s.logger.Warn("autosave failed", "error", err)
		}
	}
	return rec
}

// LogText appends a plain text record with no extra fields.
func (s *Store) LogText(role, text string) *Record {
	return s.Log(role, aisdk.Text(text), Fields{})
}

// Flush atomically writes the in-memory list to the canonical path. A
// single-entry guard keeps the shutdown flush from racing an autosave.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.flushing || s.opts.DisableFlush {
		s.mu.Unlock()
		return nil
	}
	s.flushing = true
	err := s.writeLocked()
	if err == nil {
		s.dirty = 0
		s.lastSave = time.Now()
	}
	s.flushing = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to flush history", "path", s.path, "error", err)
	}
	return err
}

// writeLocked serializes and writes the records. Callers hold s.mu.
func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	// Temp file in the same directory so the rename stays atomic.
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
