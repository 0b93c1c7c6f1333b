package enrich

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/deusflow/curator/internal/cache"
)

// Summarize returns at most three sentences and SummaryWords words. Long
// texts are summarized chunk by chunk and the partial summaries condensed
// again. Without a working backend the leading sentences of text are used.
func (e *Enricher) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	maxWords := e.opts.SummaryWords
	if e.client == nil {
		return LeadSentences(text, maxWords)
	}

	key := cache.Key("summary", text)
	if s, ok := e.summaries.Get(key); ok {
		e.cacheHit()
		return s
	}

	raw, err := e.summarizeChunked(ctx, text, maxWords)
	if err != nil || strings.TrimSpace(raw) == "" {
		e.opts.Metrics.IncSummaryFallback()
		if err != nil {
			e.logger.Warn("summary failed, using leading sentences", "backend", e.client.Name(), "error", err)
		}
		return LeadSentences(text, maxWords)
	}

	out := ShapeSummary(raw, maxWords)
	e.summaries.Set(key, out)
	return out
}

func (e *Enricher) summarizeChunked(ctx context.Context, text string, maxWords int) (string, error) {
	chunkWords := e.opts.ChunkWords
	if len(strings.Fields(text)) <= 2*chunkWords {
		return e.summarizeOnce(ctx, text, maxWords)
	}

	var partial []string
	for _, chunk := range ChunkWords(text, chunkWords) {
		s, err := e.summarizeOnce(ctx, chunk, min(100, maxWords))
		if err != nil {
			return "", err
		}
		partial = append(partial, strings.TrimSpace(s))
	}
	return e.summarizeOnce(ctx, strings.Join(partial, "\n"), maxWords)
}

func (e *Enricher) summarizeOnce(ctx context.Context, text string, maxWords int) (string, error) {
	return call(ctx, e, func() (string, error) {
		return e.client.Summarize(ctx, text, maxWords)
	})
}

// ShapeSummary keeps the first three sentences of s within maxWords. A
// single run-on sentence is split at clause punctuation first.
func ShapeSummary(s string, maxWords int) string {
	sentences := SplitSentences(s)
	if len(sentences) == 1 {
		sentences = splitClauses(sentences[0])
	}
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	return TruncateWords(strings.Join(sentences, " "), maxWords)
}

// LeadSentences is the no-backend summary.
func LeadSentences(text string, maxWords int) string {
	sentences := SplitSentences(text)
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	return TruncateWords(strings.Join(sentences, " "), maxWords)
}

// SplitSentences breaks s after '.', '!' or '?' followed by whitespace.
func SplitSentences(s string) []string {
	var out []string
	runes := []rune(s)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				if part := strings.TrimSpace(string(runes[start : i+1])); part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(string(runes[start:])); part != "" {
		out = append(out, part)
	}
	return out
}

var clauseBreak = regexp.MustCompile(`[;:,]\s+`)

func splitClauses(s string) []string {
	var out []string
	for _, p := range clauseBreak.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TruncateWords keeps the first n whitespace-separated words. n <= 0 keeps
// everything.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if n <= 0 || len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}

// ChunkWords splits s into pieces of at most n words.
func ChunkWords(s string, n int) []string {
	words := strings.Fields(s)
	if n <= 0 || len(words) <= n {
		return []string{s}
	}
	var chunks []string
	for i := 0; i < len(words); i += n {
		chunks = append(chunks, strings.Join(words[i:min(i+n, len(words))], " "))
	}
	return chunks
}
