package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the structure of the optional config file. Only
// non-secret settings may be overridden here; secrets stay in the
// environment.
type FileConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Storage    struct {
		Database string `yaml:"database"`
		Index    string `yaml:"index"`
	} `yaml:"storage"`
	Scraping struct {
		BatchSize int    `yaml:"batch_size"`
		MaxPages  int    `yaml:"max_pages"`
		PageDelay string `yaml:"page_delay"`
		SiteDelay string `yaml:"site_delay"`
	} `yaml:"scraping"`
	LogLevel string `yaml:"log_level"`
}

// LoadFile loads configuration overrides from the given path, falling back
// to ~/.lawfeed/config.yaml when path is empty. Returns nil if the file
// doesn't exist (not an error). Returns an error if the file exists but
// cannot be parsed.
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".lawfeed", "config.yaml")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// apply copies any set override into cfg.
func (f *FileConfig) apply(cfg *Config) {
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if f.Storage.Database != "" {
		cfg.DatabasePath = f.Storage.Database
	}
	if f.Storage.Index != "" {
		cfg.IndexPath = f.Storage.Index
	}
	if f.Scraping.BatchSize > 0 {
		cfg.BatchSize = f.Scraping.BatchSize
	}
	if f.Scraping.MaxPages > 0 {
		cfg.MaxPages = f.Scraping.MaxPages
	}
	if f.Scraping.PageDelay != "" {
		if d, err := time.ParseDuration(f.Scraping.PageDelay); err == nil {
			cfg.PageDelay = d
		}
	}
	if f.Scraping.SiteDelay != "" {
		if d, err := time.ParseDuration(f.Scraping.SiteDelay); err == nil {
			cfg.SiteDelay = d
		}
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
}
