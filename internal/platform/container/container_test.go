package container

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreask "github.com/jinford/faq-rag/internal/core/ask"
	"github.com/jinford/faq-rag/internal/core/knowledge/knowledgetest"
	"github.com/jinford/faq-rag/internal/platform/config"
)

type stubLLM struct{}

func (stubLLM) GenerateCompletion(ctx context.Context, req coreask.CompletionRequest) (string, error) {
	return "ok", nil
}

func TestNewContainer_MemoryStoreWithDoubles(t *testing.T) {
	cfg := &config.Config{
		OpenAI: config.OpenAIConfig{EmbeddingDimension: 4},
		Chat:   config.ChatConfig{Temperature: 0.7, MaxTokens: 500, MatchThreshold: 0.5, MatchCount: 5},
		Crawl:  config.CrawlConfig{MaxEmbeddingChars: 8000},
		Server: config.ServerConfig{Store: config.StoreBackendMemory},
	}

	c, err := NewContainer(context.Background(), cfg,
		WithContainerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithContainerEmbedder(&knowledgetest.StubEmbedder{Vector: knowledgetest.UnitVector(4, 0)}),
		WithContainerLLMClient(stubLLM{}),
		WithContainerTokenCounter(stubCounter{}),
	)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.CrawlService)
	assert.NotNil(t, c.SearchService)
	assert.NotNil(t, c.AskService)
	assert.NotNil(t, c.Store)

	result, err := c.AskService.Answer(context.Background(), coreask.AnswerParams{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Message)
	assert.Empty(t, result.Sources)
}

func TestNewContainer_RequiresAPIKeyWithoutDoubles(t *testing.T) {
	cfg := &config.Config{
		OpenAI: config.OpenAIConfig{EmbeddingDimension: 4},
		Server: config.ServerConfig{Store: config.StoreBackendMemory},
	}

	_, err := NewContainer(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewContainer_LogsOpenAIModels(t *testing.T) {
	cfg := &config.Config{
		OpenAI: config.OpenAIConfig{
			APIKey:             "dummy-key",
			EmbeddingModel:     "text-embedding-3-large",
			EmbeddingDimension: 3072,
			LLMModel:           "gpt-4o",
		},
		Server: config.ServerConfig{Store: config.StoreBackendMemory},
	}

	var buf bytes.Buffer
	c, err := NewContainer(context.Background(), cfg,
		WithContainerLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithContainerTokenCounter(stubCounter{}),
	)
	require.NoError(t, err)
	defer c.Close()

	logs := buf.String()
	assert.Contains(t, logs, "model=text-embedding-3-large")
	assert.Contains(t, logs, "dimension=3072")
	assert.Contains(t, logs, "model=gpt-4o")
}

type stubCounter struct{}

func (stubCounter) CountTokens(text string) int { return len(text) }
