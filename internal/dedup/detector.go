// Package dedup decides whether an incoming item was already seen. Checks
// escalate from an exact content hash to a fuzzy title ratio and finally to
// run-local semantic similarity; the first match wins.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/normalize"
)

// ErrEmbeddingUnavailable is returned by an Embedder that cannot serve
// requests. Any embedder error disables the semantic stage for the rest of
// the run.
var ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the durable fingerprint state consulted and updated by the
// detector.
type Store interface {
	Contains(hash string) bool
	Titles() []string
	Add(hash, title string) error
}

type Reason string

const (
	ReasonNone     Reason = ""
	ReasonHash     Reason = "hash"
	ReasonTitle    Reason = "title"
	ReasonSemantic Reason = "semantic"
)

// Decision explains a duplicate check. Match is the title that triggered a
// title match; Similarity is the ratio or cosine that crossed the threshold.
type Decision struct {
	Duplicate  bool
	Reason     Reason
	Similarity float64
	Match      string
}

// Detector is not safe for concurrent use. Per-item state mutation must be
// linearized by the caller.
type Detector struct {
	cfg      Config
	store    Store
	embedder Embedder
	logger   *slog.Logger

	semanticOff bool
	embeddings  [][]float32

	// embedding memo between Check and MarkSeen of the same item
	memoHash string
	memoVec  []float32
}

// New builds a detector. embedder may be nil, which leaves only the hash and
// title stages active.
func New(cfg Config, store Store, embedder Embedder, logger *slog.Logger) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dedup config: %w", err)
	}
	if store == nil {
		return nil, errors.New("dedup: store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dedup")
	if cfg.EnableSemantic && embedder == nil {
		logger.Warn("no embedding backend, semantic duplicate detection disabled")
	}
	return &Detector{
		cfg:         cfg,
		store:       store,
		embedder:    embedder,
		logger:      logger,
		semanticOff: !cfg.EnableSemantic || embedder == nil,
	}, nil
}

// SemanticEnabled reports whether the embedding stage is still active.
func (d *Detector) SemanticEnabled() bool {
	return !d.semanticOff
}

// Check classifies it against the store and priorTitles, which are titles
// accepted earlier in this run but possibly not yet persisted. Check does
// not record anything; call MarkSeen to accept the item.
func (d *Detector) Check(ctx context.Context, it article.Item, priorTitles []string) Decision {
	hash := normalize.ContentHash(it.Title, it.RawText)
	if d.store.Contains(hash) {
		return Decision{Duplicate: true, Reason: ReasonHash, Similarity: 1}
	}

	if strings.TrimSpace(it.Title) != "" {
		tm := newTitleMatcher(it.Title, d.cfg.TitleThreshold)
		for _, titles := range [][]string{priorTitles, d.store.Titles()} {
			for _, t := range titles {
				if strings.TrimSpace(t) == "" {
					continue
				}
				if r, ok := tm.match(t); ok {
					return Decision{Duplicate: true, Reason: ReasonTitle, Similarity: r, Match: t}
				}
			}
		}
	}

	vec := d.embed(ctx, hash, it.RawText)
	if vec != nil {
		best := 0.0
		for _, prev := range d.embeddings {
			if s := cosine(vec, prev); s > best {
				best = s
			}
		}
		if len(d.embeddings) > 0 && best >= d.cfg.SemanticThreshold {
			return Decision{Duplicate: true, Reason: ReasonSemantic, Similarity: best}
		}
	}

	return Decision{}
}

// MarkSeen accepts it: records its hash and title in the store, which
// persists immediately, and keeps its embedding for the rest of the run.
// Marking an already known item is a no-op.
func (d *Detector) MarkSeen(ctx context.Context, it article.Item) error {
	hash := normalize.ContentHash(it.Title, it.RawText)
	if d.store.Contains(hash) {
		return nil
	}

	if vec := d.embed(ctx, hash, it.RawText); vec != nil {
		d.embeddings = append(d.embeddings, vec)
		if over := len(d.embeddings) - d.cfg.MaxEmbeddings; over > 0 {
			d.embeddings = append([][]float32(nil), d.embeddings[over:]...)
		}
	}
	d.memoHash, d.memoVec = "", nil

	if err := d.store.Add(hash, strings.TrimSpace(it.Title)); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

func (d *Detector) embed(ctx context.Context, hash, text string) []float32 {
	if d.semanticOff || strings.TrimSpace(text) == "" {
		return nil
	}
	if d.memoHash == hash && d.memoVec != nil {
		return d.memoVec
	}

	vec, err := d.embedder.Embed(ctx, truncateRunes(text, d.cfg.EmbedCharBudget))
	if err == nil && len(vec) == 0 {
		err = ErrEmbeddingUnavailable
	}
	if err != nil {
		d.semanticOff = true
		d.embeddings = nil
		d.logger.Warn("semantic duplicate detection disabled for this run", "error", err)
		return nil
	}

	d.memoHash, d.memoVec = hash, vec
	return vec
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
