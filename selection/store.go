// Package selection persists the set of enabled strategy names.
//
// An empty set means every strategy is enabled. The file is re-read when its
// modification time moves past the last one seen, so edits made by another
// process are picked up without a restart.
package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/swingtrader/internal/atomicfile"
)

// DefaultFile is the selection file name inside the log directory.
const DefaultFile = "strategy_selection.json"

type file struct {
	Strategies []string `json:"strategies"`
}

type Store struct {
	mu      sync.Mutex
	path    string
	enabled map[string]struct{}
	mtime   time.Time
	log     zerolog.Logger
}

// Open creates the parent directory and loads path if it exists.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}
	s := &Store{
		path:    path,
		enabled: map[string]struct{}{},
		log:     log,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(path); err == nil {
		s.loadLocked()
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Refresh reloads the file when its mtime is newer than the cached one.
func (s *Store) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
}

func (s *Store) refreshLocked() {
	fi, err := os.Stat(s.path)
	var mtime time.Time
	if err == nil {
		mtime = fi.ModTime()
	}
	if !mtime.After(s.mtime) {
		return
	}
	s.loadLocked()
}

// loadLocked never fails: an unreadable or malformed file means "nothing
// selected", which enables everything.
func (s *Store) loadLocked() {
	enabled := map[string]struct{}{}

	data, err := os.ReadFile(s.path)
	if err == nil {
		var f file
		if jerr := json.Unmarshal(data, &f); jerr != nil {
			s.log.Warn().Err(jerr).Str("path", s.path).Msg("selection file unreadable, enabling all strategies")
		} else {
			for _, n := range f.Strategies {
				enabled[n] = struct{}{}
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", s.path).Msg("selection file unreadable, enabling all strategies")
	}
	s.enabled = enabled

	s.mtime = time.Time{}
	if fi, err := os.Stat(s.path); err == nil {
		s.mtime = fi.ModTime()
	}
}

// IsEnabled refreshes and reports whether name may run.
func (s *Store) IsEnabled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	if len(s.enabled) == 0 {
		return true
	}
	_, ok := s.enabled[name]
	return ok
}

// All returns the explicitly selected names, sorted. Empty means all.
func (s *Store) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Store) sortedLocked() []string {
	out := make([]string, 0, len(s.enabled))
	for n := range s.enabled {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Set replaces the selection and persists it.
func (s *Store) Set(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			enabled[n] = struct{}{}
		}
	}

	prev := s.enabled
	s.enabled = enabled

	data, err := json.MarshalIndent(file{Strategies: s.sortedLocked()}, "", "  ")
	if err != nil {
		s.enabled = prev
		return err
	}
	if err := atomicfile.Write(s.path, data, 0o644); err != nil {
		s.enabled = prev
		return fmt.Errorf("selection: %w", err)
	}

	if fi, err := os.Stat(s.path); err == nil {
		s.mtime = fi.ModTime()
	}
	return nil
}
