package ai

import (
	"context"
	"fmt"

	"github.com/deusflow/curator/internal/config"
)

// New builds the configured backend. The "none" backend yields a nil
// Service and no error: callers fall back to their local heuristics.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	switch cfg.Backend {
	case "none", "":
		return nil, nil
	case "ollama":
		return NewService(NewOllama(cfg.OllamaHost, cfg.OllamaModel, cfg.OllamaEmbedModel, cfg.AITimeout)), nil
	case "gemini":
		g, err := NewGemini(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, cfg.GeminiEmbedModel)
		if err != nil {
			return nil, err
		}
		return NewService(g), nil
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.Backend)
	}
}
