// Package config loads curator settings from a config file, CURATOR_*
// environment variables and the legacy variable names, in that order of
// increasing precedence after flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel  string
	LogFormat string

	SourcesPath      string
	SeenStorePath    string
	IssueHistoryPath string
	ArchiveDir       string
	AnalysisDir      string
	ReportPath       string
	DatabaseURL      string

	// duplicate detection
	TitleThreshold    float64
	SemanticThreshold float64
	EnableSemantic    bool
	MaxTitles         int
	MaxEmbeddings     int
	EmbedCharBudget   int

	// scoring and selection
	HorizonWeeks     int
	TopN             int
	MinScore         float64
	PerCategoryLimit int
	CategoryCap      int
	TargetTotal      int
	GroupMaxItems    int

	// fetching
	FetchConcurrency  int
	FetchTimeout      time.Duration
	MaxItemsPerSource int
	MaxTotalItems     int

	// AI enrichment
	Backend           string
	GoogleAPIKey      string
	GeminiModel       string
	GeminiEmbedModel  string
	OllamaHost        string
	OllamaModel       string
	OllamaEmbedModel  string
	AIRequestBudget   int
	AIRetries         int
	AITimeout         time.Duration
	TruncateWords     int
	SummaryChunkWords int
	CacheTTL          time.Duration

	// issue tracker
	GitHubToken      string
	GitHubRepository string
	GitHubAPIURL     string
	Assignees        []string
	IssueDelay       time.Duration
	DryRun           bool

	MonitorAddr string
}

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "text",

	"paths.sources":       "config/sources.yaml",
	"paths.seen_store":    ".cache/seen.json",
	"paths.issue_history": ".cache/issue-history.json",
	"paths.archive_dir":   "data/archive",
	"paths.analysis_dir":  "docs/analysis",
	"paths.report":        "",
	"database.url":        "",

	"dedup.title_threshold":    0.85,
	"dedup.semantic_threshold": 0.85,
	"dedup.enable_semantic":    true,
	"dedup.max_titles":         10000,
	"dedup.max_embeddings":     1000,
	"dedup.embed_char_budget":  8000,

	"pipeline.horizon_weeks":      4,
	"pipeline.top_n":              0,
	"pipeline.min_score":          0.7,
	"pipeline.per_category_limit": 16,
	"pipeline.category_cap":       0,
	"pipeline.target_total":       64,
	"pipeline.group_max_items":    4,

	"fetch.concurrency":           4,
	"fetch.timeout":               30 * time.Second,
	"fetch.max_items_per_source":  -1,
	"fetch.max_total_items":       -1,

	"ai.backend":             "ollama",
	"ai.google_api_key":      "",
	"ai.gemini_model":        "gemini-1.5-flash",
	"ai.gemini_embed_model":  "text-embedding-004",
	"ai.ollama_host":         "http://localhost:11434",
	"ai.ollama_model":        "llama3.1",
	"ai.ollama_embed_model":  "nomic-embed-text",
	"ai.request_budget":      0,
	"ai.retries":             2,
	"ai.timeout":             60 * time.Second,
	"ai.truncate_words":      600,
	"ai.summary_chunk_words": 300,
	"ai.cache_ttl":           24 * time.Hour,

	"github.token":       "",
	"github.repository":  "",
	"github.api_url":     "https://api.github.com",
	"github.assignees":   "",
	"github.issue_delay": time.Second,
	"github.dry_run":     false,

	"monitor.addr": "",
}

// legacyEnv maps keys to the unprefixed variable names older deployments use.
var legacyEnv = map[string]string{
	"pipeline.horizon_weeks":   "PIPELINE_HORIZON_WEEKS",
	"pipeline.min_score":       "PIPELINE_MIN_SCORE",
	"pipeline.group_max_items": "PIPELINE_GROUP_MAX_ITEMS",
	"github.assignees":         "PIPELINE_DEFAULT_ASSIGNEES",
	"ai.backend":               "PROCESSING_BACKEND",
	"ai.google_api_key":        "GOOGLE_API_KEY",
	"ai.gemini_model":          "GEMINI_MODEL",
	"ai.ollama_host":           "OLLAMA_HOST",
	"ai.ollama_model":          "OLLAMA_MODEL",
	"ai.truncate_words":        "AI_INPUT_TRUNCATE_WORDS",
	"ai.summary_chunk_words":   "AI_SUMMARY_CHUNK_WORDS",
	"github.token":             "GITHUB_TOKEN",
	"github.repository":        "GITHUB_REPOSITORY",
	"database.url":             "DATABASE_URL",
	"log.level":                "LOG_LEVEL",
}

// Setup installs defaults and environment bindings on v.
func Setup(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, env := range legacyEnv {
		_ = v.BindEnv(k, env)
	}
}

// Load reads the config file when one is configured or found, then decodes
// and validates the settings.
func Load(v *viper.Viper) (*Config, error) {
	Setup(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper decodes v without validating.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),

		SourcesPath:      v.GetString("paths.sources"),
		SeenStorePath:    v.GetString("paths.seen_store"),
		IssueHistoryPath: v.GetString("paths.issue_history"),
		ArchiveDir:       v.GetString("paths.archive_dir"),
		AnalysisDir:      v.GetString("paths.analysis_dir"),
		ReportPath:       v.GetString("paths.report"),
		DatabaseURL:      v.GetString("database.url"),

		TitleThreshold:    v.GetFloat64("dedup.title_threshold"),
		SemanticThreshold: v.GetFloat64("dedup.semantic_threshold"),
		EnableSemantic:    v.GetBool("dedup.enable_semantic"),
		MaxTitles:         v.GetInt("dedup.max_titles"),
		MaxEmbeddings:     v.GetInt("dedup.max_embeddings"),
		EmbedCharBudget:   v.GetInt("dedup.embed_char_budget"),

		HorizonWeeks:     v.GetInt("pipeline.horizon_weeks"),
		TopN:             v.GetInt("pipeline.top_n"),
		MinScore:         v.GetFloat64("pipeline.min_score"),
		PerCategoryLimit: v.GetInt("pipeline.per_category_limit"),
		CategoryCap:      v.GetInt("pipeline.category_cap"),
		TargetTotal:      v.GetInt("pipeline.target_total"),
		GroupMaxItems:    v.GetInt("pipeline.group_max_items"),

		FetchConcurrency:  v.GetInt("fetch.concurrency"),
		FetchTimeout:      v.GetDuration("fetch.timeout"),
		MaxItemsPerSource: v.GetInt("fetch.max_items_per_source"),
		MaxTotalItems:     v.GetInt("fetch.max_total_items"),

		Backend:           strings.ToLower(strings.TrimSpace(v.GetString("ai.backend"))),
		GoogleAPIKey:      v.GetString("ai.google_api_key"),
		GeminiModel:       v.GetString("ai.gemini_model"),
		GeminiEmbedModel:  v.GetString("ai.gemini_embed_model"),
		OllamaHost:        v.GetString("ai.ollama_host"),
		OllamaModel:       v.GetString("ai.ollama_model"),
		OllamaEmbedModel:  v.GetString("ai.ollama_embed_model"),
		AIRequestBudget:   v.GetInt("ai.request_budget"),
		AIRetries:         v.GetInt("ai.retries"),
		AITimeout:         v.GetDuration("ai.timeout"),
		TruncateWords:     v.GetInt("ai.truncate_words"),
		SummaryChunkWords: v.GetInt("ai.summary_chunk_words"),
		CacheTTL:          v.GetDuration("ai.cache_ttl"),

		GitHubToken:      v.GetString("github.token"),
		GitHubRepository: v.GetString("github.repository"),
		GitHubAPIURL:     v.GetString("github.api_url"),
		Assignees:        splitCSV(v.GetString("github.assignees")),
		IssueDelay:       v.GetDuration("github.issue_delay"),
		DryRun:           v.GetBool("github.dry_run"),

		MonitorAddr: v.GetString("monitor.addr"),
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks ranges and enums. Issue creation without dry-run needs a
// token and repository.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"dedup.title_threshold":    c.TitleThreshold,
		"dedup.semantic_threshold": c.SemanticThreshold,
	} {
		if v < 0 || v > 1 {
			return invalid("%s must be in [0,1], got %.3f", name, v)
		}
	}
	if c.MaxTitles < 1 || c.MaxEmbeddings < 1 || c.EmbedCharBudget < 1 {
		return invalid("dedup window sizes must be positive")
	}
	if c.HorizonWeeks < 0 {
		return invalid("pipeline.horizon_weeks must not be negative")
	}
	if c.PerCategoryLimit < 0 || c.TargetTotal < 0 {
		return invalid("selection limits must not be negative")
	}
	if c.CategoryCap != 0 && c.CategoryCap < c.PerCategoryLimit {
		return invalid("pipeline.category_cap %d is below per_category_limit %d", c.CategoryCap, c.PerCategoryLimit)
	}
	if c.GroupMaxItems < 1 {
		return invalid("pipeline.group_max_items must be at least 1")
	}
	if c.FetchConcurrency < 1 {
		return invalid("fetch.concurrency must be at least 1")
	}
	switch c.Backend {
	case "ollama", "none":
	case "gemini":
		if c.GoogleAPIKey == "" {
			return invalid("GOOGLE_API_KEY is required for the gemini backend")
		}
	default:
		return invalid("ai.backend must be ollama, gemini or none, got %q", c.Backend)
	}
	if c.TruncateWords < 1 || c.SummaryChunkWords < 1 {
		return invalid("ai word limits must be positive")
	}
	if c.AIRetries < 0 {
		return invalid("ai.retries must not be negative")
	}
	if c.GitHubRepository != "" && !strings.Contains(c.GitHubRepository, "/") {
		return invalid("github.repository must look like owner/name, got %q", c.GitHubRepository)
	}
	return nil
}

// RequireTracker checks the settings needed to create issues for real.
func (c *Config) RequireTracker() error {
	if c.DryRun {
		return nil
	}
	if c.GitHubToken == "" {
		return invalid("GITHUB_TOKEN is required unless running in dry-run mode")
	}
	if c.GitHubRepository == "" {
		return invalid("GITHUB_REPOSITORY is required unless running in dry-run mode")
	}
	return nil
}
