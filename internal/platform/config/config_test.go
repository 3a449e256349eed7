package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimension)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.LLMModel)
	assert.Equal(t, 0.7, cfg.Chat.Temperature)
	assert.Equal(t, 500, cfg.Chat.MaxTokens)
	assert.Equal(t, 0.5, cfg.Chat.MatchThreshold)
	assert.Equal(t, 5, cfg.Chat.MatchCount)
	assert.Equal(t, 8000, cfg.Crawl.MaxEmbeddingChars)
	assert.Equal(t, 30*time.Second, cfg.Crawl.Timeout)
	assert.Equal(t, StoreBackendPostgres, cfg.Server.Store)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "FAQRAG_TEST_UNUSED=1\nCHAT_MATCH_COUNT=3\nSTORE_BACKEND=Memory\nCRAWL_TIMEOUT=5s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, key := range []string{"FAQRAG_TEST_UNUSED", "CHAT_MATCH_COUNT", "STORE_BACKEND", "CRAWL_TIMEOUT"} {
			_ = os.Unsetenv(key)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Chat.MatchCount)
	assert.Equal(t, StoreBackendMemory, cfg.Server.Store)
	assert.Equal(t, 5*time.Second, cfg.Crawl.Timeout)
}

func TestLoadKeepsZeroMatchThreshold(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHAT_MATCH_THRESHOLD", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Chat.MatchThreshold)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CHAT_MATCH_THRESHOLD", "1.5")
	t.Setenv("STORE_BACKEND", "redis")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
	assert.Contains(t, err.Error(), "CHAT_MATCH_THRESHOLD")
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestLogConfigSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "verbose"}.SlogLevel())
}
