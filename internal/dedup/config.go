package dedup

import "fmt"

// Config tunes the duplicate detector.
type Config struct {
	// TitleThreshold is the inclusive fuzzy title ratio at which two titles
	// are considered the same story.
	TitleThreshold float64

	// SemanticThreshold is the inclusive cosine similarity at which two
	// bodies are considered the same story.
	SemanticThreshold float64

	// EnableSemantic turns on the embedding stage when an embedder is set.
	EnableSemantic bool

	// MaxEmbeddings caps the run-local embedding ring. Oldest are dropped.
	MaxEmbeddings int

	// EmbedCharBudget truncates bodies before embedding.
	EmbedCharBudget int
}

func DefaultConfig() Config {
	return Config{
		TitleThreshold:    0.85,
		SemanticThreshold: 0.85,
		EnableSemantic:    true,
		MaxEmbeddings:     1000,
		EmbedCharBudget:   8000,
	}
}

func (c Config) Validate() error {
	if c.TitleThreshold < 0 || c.TitleThreshold > 1 {
		return fmt.Errorf("title threshold must be in [0,1], got %.3f", c.TitleThreshold)
	}
	if c.SemanticThreshold < 0 || c.SemanticThreshold > 1 {
		return fmt.Errorf("semantic threshold must be in [0,1], got %.3f", c.SemanticThreshold)
	}
	if c.MaxEmbeddings < 1 {
		return fmt.Errorf("max embeddings must be positive, got %d", c.MaxEmbeddings)
	}
	if c.EmbedCharBudget < 1 {
		return fmt.Errorf("embed char budget must be positive, got %d", c.EmbedCharBudget)
	}
	return nil
}
