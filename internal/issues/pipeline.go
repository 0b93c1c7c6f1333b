package issues

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/curator/internal/article"
	"github.com/deusflow/curator/internal/group"
	"github.com/deusflow/curator/internal/score"
)

// History remembers which items already have an issue.
type History interface {
	HasSeen(items []article.Item) bool
	Record(title string, items []article.Item, number *int) error
}

// ImpactWriter drafts the "Impact to teams" bullets for a roundup.
type ImpactWriter interface {
	ImpactPoints(ctx context.Context, text string) []string
}

type PipelineConfig struct {
	MinScore      float64
	GroupMaxItems int
	Delay         time.Duration
	Assignees     []string
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{MinScore: 0.7, GroupMaxItems: 4, Delay: time.Second}
}

// Report summarizes one pipeline pass.
type Report struct {
	Candidates int // items at or above the score threshold
	Groups     int
	Skipped    int // groups already covered by an earlier issue
	Created    int
	Failed     int
	Numbers    []*int
}

type Pipeline struct {
	tracker Tracker
	history History
	impact  ImpactWriter
	cfg     PipelineConfig
	logger  *slog.Logger
}

// NewPipeline accepts a nil impact writer; roundups then carry a TBD
// impact section.
func NewPipeline(t Tracker, h History, impact ImpactWriter, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GroupMaxItems < 1 {
		cfg.GroupMaxItems = 1
	}
	return &Pipeline{
		tracker: t,
		history: h,
		impact:  impact,
		cfg:     cfg,
		logger:  logger.With("component", "issue_pipeline"),
	}
}

// Run filters ranked items by score, groups related ones and opens one
// issue per group not already covered by history. History is updated only
// for issues that were actually created.
func (p *Pipeline) Run(ctx context.Context, ranked []score.Scored) (Report, error) {
	var rep Report
	candidates := score.Articles(score.FilterHighPriority(ranked, p.cfg.MinScore))
	rep.Candidates = len(candidates)

	groups := group.Related(candidates, p.cfg.GroupMaxItems)
	rep.Groups = len(groups)
	if len(groups) == 0 {
		p.logger.Info("no candidate groups for issue creation")
		return rep, nil
	}

	var pending []group.Group
	var requests []Issue
	for _, g := range groups {
		if p.history.HasSeen(g.Items) {
			p.logger.Info("skipping group covered by an earlier issue", "first_title", g.Items[0].Title)
			rep.Skipped++
			continue
		}
		pending = append(pending, g)
		requests = append(requests, Issue{
			Title:     GroupTitle(g.Items),
			Body:      GroupBody(g.Items, p.impactFor(ctx, g.Items)),
			Labels:    GroupLabels(g.Items),
			Assignees: p.cfg.Assignees,
		})
	}

	results := CreateBatch(ctx, p.tracker, requests, p.cfg.Delay, p.logger)
	for i, res := range results {
		rep.Numbers = append(rep.Numbers, res.Number)
		if res.Err != nil {
			rep.Failed++
			continue
		}
		rep.Created++
		if res.Number == nil {
			continue
		}
		g := pending[i]
		if err := p.history.Record(g.Items[0].Title, g.Items, res.Number); err != nil {
			return rep, err
		}
	}
	return rep, ctx.Err()
}

func (p *Pipeline) impactFor(ctx context.Context, items []article.Item) []string {
	if p.impact == nil {
		return nil
	}
	var texts []string
	for _, it := range items {
		text := it.Summary
		if text == "" {
			text = it.RawText
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	return p.impact.ImpactPoints(ctx, strings.Join(texts, "\n\n"))
}
