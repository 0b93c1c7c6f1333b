package issues

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// BatchResult pairs a requested issue with its outcome.
type BatchResult struct {
	Number *int
	Err    error
}

// CreateBatch creates issues one by one, at most one per delay. Results line
// up with issues; a failure does not stop the batch unless ctx is done.
func CreateBatch(ctx context.Context, t Tracker, issues []Issue, delay time.Duration, logger *slog.Logger) []BatchResult {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]BatchResult, len(issues))
	for i, issue := range issues {
		if err := limiter.Wait(ctx); err != nil {
			for j := i; j < len(issues); j++ {
				results[j].Err = err
			}
			break
		}
		num, err := t.CreateIssue(ctx, issue)
		if err != nil {
			logger.Error("failed to create issue", "title", issue.Title, "error", err)
		}
		results[i] = BatchResult{Number: num, Err: err}
	}
	return results
}
