// Package metrics keeps in-process counters for a curation run and exposes
// them to the monitoring endpoint.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	fetched        int64
	accepted       int64
	duplicates     map[string]int64
	classifyFailed int64
	summaryFailed  int64
	issuesCreated  int64
	issuesSkipped  int64
	sourceErrors   int64

	lastProcessing  time.Duration
	totalProcessing time.Duration
	runs            int64

	lastRun       time.Time
	lastErrorTime time.Time
	lastError     string
	healthy       bool
}

func New() *Metrics {
	return &Metrics{duplicates: make(map[string]int64), healthy: true}
}

func (m *Metrics) AddFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched += int64(n)
}

func (m *Metrics) IncAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

// IncDuplicate counts a rejected item under its detection reason.
func (m *Metrics) IncDuplicate(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicates[reason]++
}

func (m *Metrics) IncClassifyFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifyFailed++
}

func (m *Metrics) IncSummaryFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryFailed++
}

func (m *Metrics) IncSourceError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceErrors++
}

func (m *Metrics) AddIssues(created, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuesCreated += int64(created)
	m.issuesSkipped += int64(skipped)
}

func (m *Metrics) RecordProcessingTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastProcessing = d
	m.totalProcessing += d
	m.runs++
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = time.Now()
	m.healthy = true
}

func (m *Metrics) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err.Error()
	m.lastErrorTime = time.Now()
	m.healthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// Duplicates returns the number of rejected items across all reasons.
func (m *Metrics) Duplicates() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, v := range m.duplicates {
		n += v
	}
	return n
}

func (m *Metrics) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var avg time.Duration
	if m.runs > 0 {
		avg = m.totalProcessing / time.Duration(m.runs)
	}
	dups := make(map[string]int64, len(m.duplicates))
	for k, v := range m.duplicates {
		dups[k] = v
	}

	stats := map[string]any{
		"items_fetched":              m.fetched,
		"items_accepted":             m.accepted,
		"duplicates":                 dups,
		"classification_fallbacks":   m.classifyFailed,
		"summary_fallbacks":          m.summaryFailed,
		"source_errors":              m.sourceErrors,
		"issues_created":             m.issuesCreated,
		"issues_skipped":             m.issuesSkipped,
		"last_processing_time_ms":    m.lastProcessing.Milliseconds(),
		"average_processing_time_ms": avg.Milliseconds(),
		"last_error":                 m.lastError,
		"is_healthy":                 m.healthy,
	}
	if !m.lastRun.IsZero() {
		stats["last_run_time"] = m.lastRun.Format(time.RFC3339)
	}
	if !m.lastErrorTime.IsZero() {
		stats["last_error_time"] = m.lastErrorTime.Format(time.RFC3339)
	}
	return stats
}
