package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/curator/internal/ai"
	"github.com/deusflow/curator/internal/archive"
	"github.com/deusflow/curator/internal/config"
	"github.com/deusflow/curator/internal/dedup"
	"github.com/deusflow/curator/internal/enrich"
	"github.com/deusflow/curator/internal/fetch"
	"github.com/deusflow/curator/internal/issues"
	"github.com/deusflow/curator/internal/metrics"
	"github.com/deusflow/curator/internal/ratelimit"
	"github.com/deusflow/curator/internal/retry"
	"github.com/deusflow/curator/internal/storage"
)

// Mode selects which collaborators Build constructs.
type Mode int

const (
	// ModeRun builds everything: fetch, dedup, AI, archive and tracker.
	ModeRun Mode = iota
	// ModeAnalyze only needs sources and the fetcher.
	ModeAnalyze
	// ModeIssues reads the archive and talks to the tracker.
	ModeIssues
)

// Build constructs an App from configuration. The returned close function
// releases backends and must be called even when the run fails.
func Build(ctx context.Context, cfg *config.Config, mode Mode, logger *slog.Logger, m *metrics.Metrics) (*App, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	d := Deps{Config: cfg, Metrics: m, Logger: logger}

	if mode != ModeIssues {
		sources, err := config.LoadSources(cfg.SourcesPath)
		if err != nil {
			return fail(err)
		}
		d.Sources = sources
		d.Fetcher = fetch.New(fetch.Options{
			Concurrency: cfg.FetchConcurrency,
			Timeout:     cfg.FetchTimeout,
			Logger:      logger,
		})
	}

	if mode == ModeRun {
		svc, err := ai.New(ctx, cfg)
		if err != nil {
			return fail(fmt.Errorf("ai backend: %w", err))
		}
		var client ai.Client
		var embedder dedup.Embedder
		if svc != nil {
			closers = append(closers, svc.Close)
			client, embedder = svc, svc
		}

		seen := storage.NewSeenStore(cfg.SeenStorePath, cfg.MaxTitles, logger)
		if err := seen.Load(); err != nil {
			return fail(fmt.Errorf("load seen store: %w", err))
		}
		det, err := dedup.New(dedup.Config{
			TitleThreshold:    cfg.TitleThreshold,
			SemanticThreshold: cfg.SemanticThreshold,
			EnableSemantic:    cfg.EnableSemantic,
			MaxEmbeddings:     cfg.MaxEmbeddings,
			EmbedCharBudget:   cfg.EmbedCharBudget,
		}, seen, embedder, logger)
		if err != nil {
			return fail(err)
		}
		d.Detector = det

		budget := ratelimit.NewBudget(nil, cfg.AIRequestBudget, 24*time.Hour, logger)
		enricher := enrich.New(client, enrich.Options{
			TruncateWords: cfg.TruncateWords,
			ChunkWords:    cfg.SummaryChunkWords,
			Retry:         retry.Config{MaxAttempts: cfg.AIRetries + 1, Delay: time.Second, Multiplier: 1.5},
			CacheTTL:      cfg.CacheTTL,
			Budget:        budget,
			Metrics:       m,
			Logger:        logger,
		})
		closers = append(closers, func() error { enricher.Close(); return nil })
		d.Enricher = enricher
	}

	if mode == ModeRun || mode == ModeIssues {
		if err := cfg.RequireTracker(); err != nil {
			return fail(err)
		}
		arc, err := archive.Open(ctx, cfg.DatabaseURL, cfg.ArchiveDir, archive.FileOptions{Logger: logger})
		if err != nil {
			return fail(fmt.Errorf("open archive: %w", err))
		}
		closers = append(closers, arc.Close)
		d.Archive = arc

		tracker, err := issues.NewGitHubClient(ctx, issues.GitHubOptions{
			Token:      cfg.GitHubToken,
			Repository: cfg.GitHubRepository,
			BaseURL:    cfg.GitHubAPIURL,
			DryRun:     cfg.DryRun,
			Logger:     logger,
		})
		if err != nil {
			return fail(err)
		}
		d.Tracker = tracker

		history := storage.NewIssueHistory(cfg.IssueHistoryPath, logger)
		if err := history.Load(); err != nil {
			return fail(fmt.Errorf("load issue history: %w", err))
		}
		d.History = history
	}

	if mode == ModeIssues && d.Enricher == nil {
		// roundups still get heuristic impact bullets
		d.Enricher = enrich.New(nil, enrich.Options{Metrics: m, Logger: logger})
	}
	return New(d), cleanup, nil
}
