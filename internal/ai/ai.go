// Package ai talks to the text-understanding backends used for
// classification, summaries and embeddings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deusflow/curator/internal/article"
)

// ErrMalformedResponse wraps classification output that is not a valid
// {category, confidence} object.
var ErrMalformedResponse = errors.New("malformed ai response")

// Classification is a backend's category decision.
type Classification struct {
	Category   article.Category
	Confidence float64
}

// Client classifies and summarizes text.
type Client interface {
	Name() string
	Classify(ctx context.Context, text string) (Classification, error)
	Summarize(ctx context.Context, text string, maxWords int) (string, error)
}

// Generator is a raw prompt-in text-out backend that can also embed text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// Service builds classification and summarization on top of a Generator.
type Service struct {
	gen Generator
}

var _ Client = (*Service)(nil)

func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

func (s *Service) Name() string { return s.gen.Name() }

func classifyPrompt(text string) string {
	return "Classify the following text into exactly one of: Agile, DevOps, " +
		"Architecture/Infra, Leadership. Respond ONLY as JSON object with keys " +
		"category and confidence (0-1).\n\nTEXT:\n" + text
}

func summarizePrompt(text string, maxWords int) string {
	return fmt.Sprintf("Summarize the following text in at most %d words. "+
		"Preserve the original language. Provide 2-3 concise sentences.\n\nTEXT:\n", maxWords) + text
}

// Classify returns ErrMalformedResponse when the backend answer cannot be
// parsed or falls outside the category set.
func (s *Service) Classify(ctx context.Context, text string) (Classification, error) {
	raw, err := s.gen.Generate(ctx, classifyPrompt(text))
	if err != nil {
		return Classification{}, fmt.Errorf("%s classify: %w", s.gen.Name(), err)
	}
	return ParseClassification(raw)
}

func (s *Service) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	raw, err := s.gen.Generate(ctx, summarizePrompt(text, maxWords))
	if err != nil {
		return "", fmt.Errorf("%s summarize: %w", s.gen.Name(), err)
	}
	return strings.TrimSpace(raw), nil
}

// Embed satisfies dedup.Embedder.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.gen.Embed(ctx, text)
}

func (s *Service) Close() error { return s.gen.Close() }
