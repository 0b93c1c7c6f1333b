package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const (
	MaxImpactPoints   = 3
	MaxImpactWords    = 50
	DefaultImpactNote = "Discuss how this affects current initiatives."
)

var bulletMarker = regexp.MustCompile(`^[-•*]\s*`)

func impactPrompt(content string) string {
	return "You are an assistant that writes actionable team impact bullet points.\n" +
		fmt.Sprintf("Task: Produce %d bullet points titled 'Impact to teams' based on the article below.\n", MaxImpactPoints) +
		fmt.Sprintf("Each bullet must be <= %d words, start with '- ', be concise and actionable, and preserve the original language.\n", MaxImpactWords) +
		"Return only the bullets, each on its own line, no extra text.\n\n" +
		"Article:\n" + content
}

// ImpactPoints returns up to three short bullets on what text means for
// the teams. It always returns at least one point.
func (e *Enricher) ImpactPoints(ctx context.Context, text string) []string {
	if e.client != nil && strings.TrimSpace(text) != "" {
		raw, err := call(ctx, e, func() (string, error) {
			return e.client.Summarize(ctx, impactPrompt(TruncateWords(text, e.opts.TruncateWords)), MaxImpactPoints*MaxImpactWords)
		})
		if err == nil {
			if points := parseBullets(raw); len(points) > 0 {
				return points
			}
		} else {
			e.logger.Debug("impact points failed, using heuristic", "error", err)
		}
	}
	return HeuristicImpact(text)
}

func parseBullets(raw string) []string {
	var points []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(bulletMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		points = append(points, TruncateWords(line, MaxImpactWords))
		if len(points) == MaxImpactPoints {
			break
		}
	}
	return points
}

// HeuristicImpact picks the first sentences of at least six words.
func HeuristicImpact(text string) []string {
	var points []string
	for _, s := range SplitSentences(text) {
		if len(points) == MaxImpactPoints {
			break
		}
		if len(strings.Fields(s)) >= 6 {
			points = append(points, TruncateWords(s, MaxImpactWords))
		}
	}
	if len(points) == 0 {
		return []string{DefaultImpactNote}
	}
	return points
}
