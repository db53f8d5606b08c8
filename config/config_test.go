package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RSS_API_KEY", "rss-secret")
	t.Setenv("GENERATE_API_KEY", "gen-secret")
	t.Setenv("LAWFEED_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "lawfeed.db", cfg.DatabasePath)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 5, cfg.MaxPages)
	assert.Equal(t, time.Second, cfg.PageDelay)
	assert.Equal(t, 2*time.Second, cfg.SiteDelay)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.False(t, cfg.GenerationEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RSS_API_KEY", "rss-secret")
	t.Setenv("GENERATE_API_KEY", "gen-secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LAWFEED_BATCH_SIZE", "10")
	t.Setenv("LAWFEED_PAGE_DELAY", "250ms")
	t.Setenv("LAWFEED_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.PageDelay)
	assert.True(t, cfg.GenerationEnabled())
}

func TestLoad_MissingKeys(t *testing.T) {
	t.Setenv("RSS_API_KEY", "")
	t.Setenv("GENERATE_API_KEY", "")
	t.Setenv("LAWFEED_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RSS_API_KEY")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		RSSAPIKey:      "a",
		GenerateAPIKey: "b",
		BatchSize:      5,
		MaxPages:       5,
		FetchRetries:   3,
		FetchTimeout:   time.Second,
	}
	assert.NoError(t, cfg.Validate())

	bad := *cfg
	bad.BatchSize = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.FetchTimeout = 0
	assert.Error(t, bad.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
listen_addr: ":9090"
storage:
  database: /tmp/other.db
scraping:
  batch_size: 3
  page_delay: 500ms
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	fileCfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, fileCfg)

	cfg := &Config{ListenAddr: ":8080", BatchSize: 5, PageDelay: time.Second}
	fileCfg.apply(cfg)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.PageDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFile_Missing(t *testing.T) {
	fileCfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, fileCfg)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [unclosed"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
