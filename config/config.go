// Package config loads and validates process configuration. Secrets and
// tunables come from the environment, with optional YAML file overrides for
// non-secret settings. The resulting Config is passed explicitly into the
// components that need it; nothing reads the environment after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all process configuration, validated at startup.
type Config struct {
	// ListenAddr is the address the HTTP API binds to.
	ListenAddr string

	// DatabasePath is the SQLite database file for posts and crawl progress.
	DatabasePath string

	// IndexPath is the bleve full-text index directory.
	IndexPath string

	// RSSAPIKey gates the feed endpoints.
	RSSAPIKey string

	// GenerateAPIKey gates the scrape and generation endpoints.
	GenerateAPIKey string

	// OpenAIAPIKey enables the generation feature. Empty disables it.
	OpenAIAPIKey string

	// OpenAIBaseURL points at an OpenAI-compatible API.
	OpenAIBaseURL string

	// ChatModel and ImageModel select the generation models.
	ChatModel  string
	ImageModel string

	// BatchSize caps how many new articles one crawl batch processes per
	// source.
	BatchSize int

	// MaxPages caps how many listing pages a single run walks per source.
	MaxPages int

	// PageDelay is the minimum pause between article fetches within one
	// source. SiteDelay is the stagger between starting one source's crawl
	// and the next.
	PageDelay time.Duration
	SiteDelay time.Duration

	// FetchTimeout bounds every navigation; FetchRetries bounds attempts per
	// URL.
	FetchTimeout time.Duration
	FetchRetries int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Load builds a Config from the environment, applies file overrides if a
// config file exists, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     envOr("LAWFEED_ADDR", ":8080"),
		DatabasePath:   envOr("LAWFEED_DB", "lawfeed.db"),
		IndexPath:      envOr("LAWFEED_INDEX", "lawfeed.bleve"),
		RSSAPIKey:      os.Getenv("RSS_API_KEY"),
		GenerateAPIKey: os.Getenv("GENERATE_API_KEY"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  envOr("OPENAI_BASE_URL", "https://api.openai.com"),
		ChatModel:      envOr("LAWFEED_CHAT_MODEL", "gpt-4"),
		ImageModel:     envOr("LAWFEED_IMAGE_MODEL", "dall-e-3"),
		BatchSize:      envIntOr("LAWFEED_BATCH_SIZE", 5),
		MaxPages:       envIntOr("LAWFEED_MAX_PAGES", 5),
		PageDelay:      envDurationOr("LAWFEED_PAGE_DELAY", time.Second),
		SiteDelay:      envDurationOr("LAWFEED_SITE_DELAY", 2*time.Second),
		FetchTimeout:   envDurationOr("LAWFEED_FETCH_TIMEOUT", 30*time.Second),
		FetchRetries:   envIntOr("LAWFEED_FETCH_RETRIES", 3),
		LogLevel:       envOr("LAWFEED_LOG_LEVEL", "info"),
	}

	fileCfg, err := LoadFile(os.Getenv("LAWFEED_CONFIG"))
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		fileCfg.apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields. Missing secrets are fatal at startup
// rather than surfacing later as 401s against an unset comparison value.
func (c *Config) Validate() error {
	if c.RSSAPIKey == "" {
		return fmt.Errorf("RSS_API_KEY is required")
	}
	if c.GenerateAPIKey == "" {
		return fmt.Errorf("GENERATE_API_KEY is required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max pages must be at least 1, got %d", c.MaxPages)
	}
	if c.FetchRetries < 1 {
		return fmt.Errorf("fetch retries must be at least 1, got %d", c.FetchRetries)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	return nil
}

// GenerationEnabled reports whether the LLM generation feature is configured.
func (c *Config) GenerationEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
