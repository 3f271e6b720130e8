package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "English", cfg.SourceLang)
	assert.Equal(t, "Italian", cfg.TargetLang)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, cfg.AllOrNothing)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, []string{"script", "style"}, cfg.SkipTags)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers["openai"].Model)

	rc := cfg.RunOptions()
	require.NoError(t, rc.Validate())
	assert.Equal(t, 500*time.Millisecond, rc.InitialDelay)
	assert.Equal(t, 30*time.Second, rc.MaxDelay)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_lang: French
target_lang: German
batch_size: 3
all_or_nothing: false
provider: compat
requests_per_minute: 30
cache:
  enabled: true
  path: /tmp/cache.db
providers:
  compat:
    model: qwen2.5
    base_url: http://gpu:8000/v1
    timeout_seconds: 10
    per_item: true
    headers:
      x-team: books
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "French", cfg.SourceLang)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.False(t, cfg.AllOrNothing)
	assert.Equal(t, 3, cfg.MaxRetries)

	opts := cfg.ProviderOptions()
	assert.Equal(t, "compat", opts.Provider)
	assert.Equal(t, "qwen2.5", opts.Config.Model)
	assert.Equal(t, "http://gpu:8000/v1", opts.Config.BaseURL)
	assert.Equal(t, 10*time.Second, opts.Config.Timeout)
	assert.True(t, opts.Config.PerItem)
	assert.Equal(t, "books", opts.Config.Headers["x-team"])
	assert.Equal(t, 30, opts.RequestsPerMinute)
	assert.True(t, opts.CacheEnabled)
	assert.Equal(t, "/tmp/cache.db", opts.CachePath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EPUB_TRANSLATOR_TARGET_LANG", "Spanish")
	t.Setenv("EPUB_TRANSLATOR_BATCH_SIZE", "16")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: openai\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Spanish", cfg.TargetLang)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, "sk-env", cfg.ProviderOptions().Config.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EPUB_TRANSLATOR_DOTENV_PROBE=loaded\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("EPUB_TRANSLATOR_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "loaded", os.Getenv("EPUB_TRANSLATOR_DOTENV_PROBE"))
}
