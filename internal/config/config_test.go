package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8787", cfg.Addr)
	assert.Equal(t, 90*24*time.Hour, cfg.StateTTL)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, "append", cfg.NoteMode)
	assert.Equal(t, "latest-issued", cfg.RefreshPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("STATE_TTL_DAYS", "7")
	t.Setenv("PAGE_SIZE", "10")
	t.Setenv("SEARCH_DEBOUNCE_MS", "50")
	t.Setenv("NOTE_MODE", "REPLACE")
	t.Setenv("WALEG_YEAR", "2024")
	t.Setenv("COLLECTOR_GIT", "true")
	t.Setenv("COLLECTOR_INTERVAL", "6h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 7*24*time.Hour, cfg.StateTTL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 50*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, "replace", cfg.NoteMode)
	assert.Equal(t, 2024, cfg.Collector.Year)
	assert.Equal(t, "2023-24", cfg.Collector.Biennium)
	assert.True(t, cfg.Collector.Git)
	assert.Equal(t, 6*time.Hour, cfg.Collector.Interval)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
addr: ":7000"
pageSize: 40
searchDebounce: 1s
refreshPolicy: latest-resolved
collector:
  biennium: "2025-26"
  retries: 5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv(ConfigPathEnv, path)
	t.Setenv("PAGE_SIZE", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, 12, cfg.PageSize, "env wins over file")
	assert.Equal(t, time.Second, cfg.SearchDebounce)
	assert.Equal(t, "latest-resolved", cfg.RefreshPolicy)
	assert.Equal(t, "2025-26", cfg.Collector.Biennium)
	assert.Equal(t, 5, cfg.Collector.Retries)
	assert.Equal(t, "./data/state", cfg.StateDir, "unset file fields keep defaults")
}

func TestDefaultDataURLFollowsCollectorOutput(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	dir := t.TempDir()
	t.Setenv("COLLECTOR_DATA_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := "file://" + filepath.ToSlash(filepath.Join(dir, "bills.json"))
	if cfg.DataURL != want {
		t.Fatalf("DataURL = %q, want %q", cfg.DataURL, want)
	}
	if strings.Contains(cfg.DataURL, cfg.Addr) {
		t.Fatalf("DataURL %q points back at the API", cfg.DataURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestExplicitDataURLWins(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("COLLECTOR_DATA_DIR", t.TempDir())
	t.Setenv("DATA_URL", "https://example.org/data/bills.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataURL != "https://example.org/data/bills.json" {
		t.Fatalf("DataURL = %q", cfg.DataURL)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o644))
	t.Setenv(ConfigPathEnv, path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"note mode":      func(c *Config) { c.NoteMode = "merge" },
		"refresh policy": func(c *Config) { c.RefreshPolicy = "whatever" },
		"page size":      func(c *Config) { c.PageSize = 0 },
		"session end":    func(c *Config) { c.SessionEnd = "April 1" },
		"minio bucket":   func(c *Config) { c.Collector.MinioEndpoint = "localhost:9000" },
		"log level":      func(c *Config) { c.LogLevel = "loud" },
		"data url":       func(c *Config) { c.DataURL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBiennium(t *testing.T) {
	assert.Equal(t, "2025-26", Biennium(2025))
	assert.Equal(t, "2025-26", Biennium(2026))
	assert.Equal(t, "1999-00", Biennium(2000))
}
