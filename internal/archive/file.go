package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/storage"
)

type document struct {
	Month    string         `json:"month"`
	Count    int            `json:"count"`
	Articles []article.Item `json:"articles"`
}

type FileOptions struct {
	Logger *slog.Logger
}

// File is an Archive of one YYYY-MM.json document per month.
type File struct {
	dir    string
	logger *slog.Logger
}

var _ Archive = (*File)(nil)

func NewFile(dir string, opts FileOptions) *File {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &File{dir: dir, logger: logger.With("component", "archive")}
}

func (f *File) path(month string) string {
	return filepath.Join(f.dir, month+".json")
}

// read returns the month document. A corrupt file is treated as empty and
// overwritten on the next Store.
func (f *File) read(month string) (document, error) {
	doc := document{Month: month}
	data, err := storage.ReadFile(f.path(month))
	if err != nil || len(data) == 0 {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		f.logger.Warn("archive file corrupted, recreating", "path", f.path(month), "error", err)
		return document{Month: month}, nil
	}
	return doc, nil
}

func (f *File) Store(_ context.Context, month string, items []article.Item) (int, error) {
	if err := validMonth(month); err != nil {
		return 0, err
	}
	doc, err := f.read(month)
	if err != nil {
		return 0, err
	}

	index := make(map[string]int, len(doc.Articles))
	merged := make([]article.Item, 0, len(doc.Articles)+len(items))
	for _, it := range doc.Articles {
		if it.URL == "" {
			continue
		}
		index[it.URL] = len(merged)
		merged = append(merged, it)
	}
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		if i, ok := index[it.URL]; ok {
			merged[i] = it
			continue
		}
		index[it.URL] = len(merged)
		merged = append(merged, it)
	}

	out := document{Month: month, Count: len(merged), Articles: merged}
	if err := storage.WriteJSON(f.path(month), out); err != nil {
		return 0, err
	}
	f.logger.Info("stored articles", "month", month, "count", out.Count)
	return out.Count, nil
}

func (f *File) Load(_ context.Context, month string) ([]article.Item, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	doc, err := f.read(month)
	if err != nil {
		return nil, err
	}
	return doc.Articles, nil
}

func (f *File) Months(context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var months []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if m := strings.TrimSuffix(name, ".json"); validMonth(m) == nil {
			months = append(months, m)
		}
	}
	sort.Strings(months)
	return months, nil
}

func (f *File) Close() error { return nil }
