package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/deusflow/curator/internal/article"
)

// IssueRecord is one created ticket. IssueNumber is nil when the tracker
// returned no identifier.
type IssueRecord struct {
	TitleHash   string   `json:"title_hash"`
	URLHashes   []string `json:"url_hashes"`
	IssueNumber *int     `json:"issue_number"`
}

// IssueHistory remembers which titles and URLs were already filed so a
// later run does not open the same ticket twice.
type IssueHistory struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	records []IssueRecord
	titles  map[string]struct{}
	urls    map[string]struct{}
}

func NewIssueHistory(path string, logger *slog.Logger) *IssueHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueHistory{
		path:   path,
		logger: logger.With("component", "issue_history"),
		titles: make(map[string]struct{}),
		urls:   make(map[string]struct{}),
	}
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Load reads the history file. Missing or corrupt files yield an empty
// history.
func (h *IssueHistory) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = nil
	h.titles = make(map[string]struct{})
	h.urls = make(map[string]struct{})

	data, err := ReadFile(h.path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var records []IssueRecord
	if err := json.Unmarshal(data, &records); err != nil {
		h.logger.Warn("issue history is corrupt, starting empty", "path", h.path, "error", err)
		return nil
	}
	for _, rec := range records {
		h.index(rec)
	}
	return nil
}

func (h *IssueHistory) index(rec IssueRecord) {
	h.records = append(h.records, rec)
	h.titles[rec.TitleHash] = struct{}{}
	for _, u := range rec.URLHashes {
		h.urls[u] = struct{}{}
	}
}

// HasSeen reports whether any item's title or URL belongs to an issue that
// was already created.
func (h *IssueHistory) HasSeen(items []article.Item) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, it := range items {
		if _, ok := h.titles[hashText(it.Title)]; ok {
			return true
		}
		if _, ok := h.urls[hashText(it.URL)]; ok {
			return true
		}
	}
	return false
}

// Record appends an issue created for items under title and persists the
// history.
func (h *IssueHistory) Record(title string, items []article.Item, number *int) error {
	rec := IssueRecord{
		TitleHash: hashText(title),
		URLHashes: make([]string, 0, len(items)),
	}
	for _, it := range items {
		rec.URLHashes = append(rec.URLHashes, hashText(it.URL))
	}
	if number != nil {
		n := *number
		rec.IssueNumber = &n
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.index(rec)
	return WriteJSON(h.path, h.records)
}

// Records returns a copy of all records in creation order.
func (h *IssueHistory) Records() []IssueRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]IssueRecord, len(h.records))
	copy(out, h.records)
	return out
}
