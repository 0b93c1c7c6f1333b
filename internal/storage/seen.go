package storage

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// DefaultMaxTitles bounds the rolling title window.
const DefaultMaxTitles = 10000

type seenDocument struct {
	Hashes []string `json:"hashes"`
	Titles []string `json:"titles"`
}

// SeenStore is the durable record of accepted content fingerprints: a set of
// content hashes and a bounded window of the most recent titles.
type SeenStore struct {
	path      string
	maxTitles int
	logger    *slog.Logger

	mu     sync.RWMutex
	hashes map[string]struct{}
	titles []string
}

// NewSeenStore creates a store backed by path. Call Load before use.
func NewSeenStore(path string, maxTitles int, logger *slog.Logger) *SeenStore {
	if maxTitles <= 0 {
		maxTitles = DefaultMaxTitles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SeenStore{
		path:      path,
		maxTitles: maxTitles,
		logger:    logger.With("component", "seen_store"),
		hashes:    make(map[string]struct{}),
	}
}

// Load replaces in-memory state with the file contents. A missing file
// leaves the store empty; a corrupt one is discarded with a warning.
func (s *SeenStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hashes = make(map[string]struct{})
	s.titles = nil

	data, err := ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var doc seenDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("seen store is corrupt, starting empty", "path", s.path, "error", err)
		return nil
	}

	for _, h := range doc.Hashes {
		s.hashes[h] = struct{}{}
	}
	s.titles = doc.Titles
	if over := len(s.titles) - s.maxTitles; over > 0 {
		s.titles = s.titles[over:]
	}

	s.logger.Debug("seen store loaded", "hashes", len(s.hashes), "titles", len(s.titles))
	return nil
}

// Contains reports whether hash was accepted before.
func (s *SeenStore) Contains(hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[hash]
	return ok
}

// Titles returns a copy of the title window, oldest first.
func (s *SeenStore) Titles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.titles))
	copy(out, s.titles)
	return out
}

// Len is the number of stored hashes.
func (s *SeenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashes)
}

// Add records hash and title and persists the full state. Adding a known
// hash is a no-op.
func (s *SeenStore) Add(hash, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hashes[hash]; ok {
		return nil
	}
	s.hashes[hash] = struct{}{}
	if title != "" {
		s.titles = append(s.titles, title)
		if over := len(s.titles) - s.maxTitles; over > 0 {
			s.titles = append([]string(nil), s.titles[over:]...)
		}
	}
	return s.flushLocked()
}

// Flush writes the current state to disk.
func (s *SeenStore) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushLocked()
}

func (s *SeenStore) flushLocked() error {
	doc := seenDocument{
		Hashes: make([]string, 0, len(s.hashes)),
		Titles: s.titles,
	}
	for h := range s.hashes {
		doc.Hashes = append(doc.Hashes, h)
	}
	sort.Strings(doc.Hashes)
	if doc.Titles == nil {
		doc.Titles = []string{}
	}
	return WriteJSON(s.path, doc)
}
