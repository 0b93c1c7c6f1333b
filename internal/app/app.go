// Package app wires the curation stages into runnable workflows.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/curator/internal/archive"
	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/config"
	"github.com/deusflow/curator/internal/dedup"
	"github.com/deusflow/curator/internal/fetch"
	"github.com/deusflow/curator/internal/issues"
	"github.com/deusflow/curator/internal/metrics"
	"github.com/deusflow/curator/internal/normalize"
	"github.com/deusflow/curator/internal/report"
	"github.com/deusflow/curator/internal/score"
	"github.com/deusflow/curator/internal/selection"
)

// Fetcher returns one result per source, in source order.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []config.Source) []fetch.Result
}

// Enricher fills AI-derived fields and drafts impact notes.
type Enricher interface {
	Item(ctx context.Context, it article.Item) article.Item
	ImpactPoints(ctx context.Context, text string) []string
}

// Deps are the collaborators of an App. Archive, Tracker and History may
// be nil for workflows that do not need them.
type Deps struct {
	Config   *config.Config
	Sources  []config.Source
	Fetcher  Fetcher
	Detector *dedup.Detector
	Enricher Enricher
	Archive  archive.Archive
	Tracker  issues.Tracker
	History  issues.History
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

type App struct {
	Deps
	RunID  string
	logger *slog.Logger
}

func New(d Deps) *App {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	return &App{
		Deps:   d,
		RunID:  runID,
		logger: logger.With("component", "app", "run_id", runID),
	}
}

// IngestResult is what one ingestion pass accepted.
type IngestResult struct {
	Items        []article.Item
	Fetched      int
	Duplicates   int
	SourceErrors int
}

// Ingest fetches every source and pushes each item, one at a time, through
// normalization, duplicate detection and enrichment.
func (a *App) Ingest(ctx context.Context) (IngestResult, error) {
	var res IngestResult
	if a.Detector == nil || a.Enricher == nil || a.Fetcher == nil {
		return res, errors.New("ingest requires a fetcher, a detector and an enricher")
	}
	cfg := a.Config
	var prior []string

	for _, fr := range a.Fetcher.FetchAll(ctx, a.Sources) {
		if fr.Err != nil {
			res.SourceErrors++
			a.Metrics.IncSourceError()
			continue
		}
		items := fr.Items
		res.Fetched += len(items)
		a.Metrics.AddFetched(len(items))
		if cfg.MaxItemsPerSource >= 0 && len(items) > cfg.MaxItemsPerSource {
			items = items[:cfg.MaxItemsPerSource]
		}

		for _, it := range items {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			it = normalize.Item(it)

			d := a.Detector.Check(ctx, it, prior)
			if d.Duplicate {
				res.Duplicates++
				a.Metrics.IncDuplicate(string(d.Reason))
				a.logger.Info("skipping duplicate", "reason", d.Reason, "title", it.Title, "match", d.Match)
				continue
			}
			if err := a.Detector.MarkSeen(ctx, it); err != nil {
				return res, fmt.Errorf("mark seen: %w", err)
			}
			prior = append(prior, it.Title)

			it = a.Enricher.Item(ctx, it)
			a.logger.Debug("accepted item", "title", it.Title, "category", it.Category.String(), "confidence", it.Confidence)
			res.Items = append(res.Items, it)
			a.Metrics.IncAccepted()

			if cfg.MaxTotalItems >= 0 && len(res.Items) >= cfg.MaxTotalItems {
				a.logger.Info("reached max total items, stopping early", "max_total_items", cfg.MaxTotalItems)
				return res, nil
			}
		}
	}
	return res, nil
}

func (a *App) scorer() *score.Scorer {
	s := score.New(a.Config.HorizonWeeks)
	s.Now = a.Now
	return s
}

func (a *App) selectionConfig() selection.Config {
	return selection.Config{
		PerCategoryLimit: a.Config.PerCategoryLimit,
		CategoryCap:      a.Config.CategoryCap,
		TargetTotal:      a.Config.TargetTotal,
	}
}

// Prioritize ranks items and keeps the category-balanced selection, best
// first.
func (a *App) Prioritize(items []article.Item) []score.Scored {
	chosen := selection.Select(a.scorer().Rank(items, a.Config.TopN), a.selectionConfig()).Flatten()
	score.Sort(chosen)
	return chosen
}

func (a *App) issuePipeline() (*issues.Pipeline, error) {
	if a.Tracker == nil || a.History == nil {
		return nil, errors.New("issue creation requires a tracker and an issue history")
	}
	return issues.NewPipeline(a.Tracker, a.History, a.Enricher, issues.PipelineConfig{
		MinScore:      a.Config.MinScore,
		GroupMaxItems: a.Config.GroupMaxItems,
		Delay:         a.Config.IssueDelay,
		Assignees:     a.Config.Assignees,
	}, a.logger), nil
}

// Run is the full pipeline: ingest, archive, prioritize, open issues and
// write the run report.
func (a *App) Run(ctx context.Context) (rep report.Pipeline, err error) {
	start := a.Now()
	rep = report.Pipeline{RunID: a.RunID, StartedAt: start}
	defer func() {
		rep.Duration = a.Now().Sub(start)
		a.Metrics.RecordProcessingTime(rep.Duration)
		a.Metrics.SetLastRun()
		if err != nil {
			a.Metrics.SetError(err)
		}
	}()

	pipeline, err := a.issuePipeline()
	if err != nil {
		return rep, err
	}

	ing, err := a.Ingest(ctx)
	rep.Fetched, rep.Processed, rep.Duplicates = ing.Fetched, len(ing.Items), ing.Duplicates
	rep.Errors = ing.SourceErrors
	if err != nil {
		return rep, err
	}

	if a.Archive != nil && len(ing.Items) > 0 {
		if _, err := a.Archive.Store(ctx, archive.Month(start), ing.Items); err != nil {
			rep.Errors++
			a.logger.Error("failed to archive items", "error", err)
		}
	}

	ir, err := pipeline.Run(ctx, a.Prioritize(ing.Items))
	rep.Groups, rep.Created, rep.Skipped = ir.Groups, ir.Created, ir.Skipped
	rep.Errors += ir.Failed
	a.Metrics.AddIssues(ir.Created, ir.Skipped)
	if err != nil {
		return rep, err
	}

	if path := a.Config.ReportPath; path != "" {
		rep.Duration = a.Now().Sub(start)
		if err := rep.Write(path); err != nil {
			return rep, fmt.Errorf("write report: %w", err)
		}
	}
	a.logger.Info("pipeline finished",
		"fetched", rep.Fetched, "processed", rep.Processed, "duplicates", rep.Duplicates,
		"groups", rep.Groups, "created", rep.Created, "errors", rep.Errors)
	return rep, nil
}

// IssuesFromArchive opens issues for an already archived month.
func (a *App) IssuesFromArchive(ctx context.Context, month string) (issues.Report, error) {
	if a.Archive == nil {
		return issues.Report{}, errors.New("no archive configured")
	}
	pipeline, err := a.issuePipeline()
	if err != nil {
		return issues.Report{}, err
	}
	if err := archive.Require(ctx, a.Archive, month); err != nil {
		return issues.Report{}, err
	}
	items, err := a.Archive.Load(ctx, month)
	if err != nil {
		return issues.Report{}, fmt.Errorf("load archive %s: %w", month, err)
	}
	rep, err := pipeline.Run(ctx, a.Prioritize(items))
	a.Metrics.AddIssues(rep.Created, rep.Skipped)
	return rep, err
}

// AnalysisResult lists the files an analysis wrote.
type AnalysisResult struct {
	Ranked       []score.Scored
	AnalysisPath string
	SummaryPath  string
}

// Analyze fetches and ranks items without touching duplicate or issue
// state, then writes the monthly situational analysis and summary.
func (a *App) Analyze(ctx context.Context) (AnalysisResult, error) {
	var res AnalysisResult
	if a.Fetcher == nil {
		return res, errors.New("analysis requires a fetcher")
	}
	var items []article.Item
	for _, fr := range a.Fetcher.FetchAll(ctx, a.Sources) {
		if fr.Err != nil {
			a.Metrics.IncSourceError()
			continue
		}
		a.Metrics.AddFetched(len(fr.Items))
		items = append(items, normalize.Batch(fr.Items)...)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	now := a.Now()
	res.Ranked = a.scorer().Rank(items, a.Config.TopN)
	path, err := report.WriteAnalysis(a.Config.AnalysisDir, res.Ranked, a.Config.HorizonWeeks, now)
	if err != nil {
		return res, err
	}
	res.AnalysisPath = path

	summary, err := report.WriteMonthly(a.Config.AnalysisDir, report.Monthly(res.Ranked, now))
	if err != nil {
		return res, err
	}
	res.SummaryPath = summary
	a.logger.Info("analysis written", "path", res.AnalysisPath, "items", len(res.Ranked))
	return res, nil
}
