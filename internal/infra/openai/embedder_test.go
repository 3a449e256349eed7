package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/faq-rag/internal/core/ask"
	"github.com/jinford/faq-rag/internal/core/knowledge"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder, err := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)
	require.NoError(t, err)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestNewEmbedderRequiresAPIKey(t *testing.T) {
	_, err := NewEmbedder("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)

	_, err = NewClient("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

// embeddingServer は index を逆順にしたレスポンスを返すテストサーバー
func embeddingServer(t *testing.T, dim int, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}

		var body struct {
			Input json.RawMessage `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		var inputs []string
		if err := json.Unmarshal(body.Input, &inputs); err != nil {
			var single string
			require.NoError(t, json.Unmarshal(body.Input, &single))
			inputs = []string{single}
		}

		data := make([]map[string]any, 0, len(inputs))
		for i := len(inputs) - 1; i >= 0; i-- {
			vec := make([]float64, dim)
			vec[i%dim] = 1
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  DefaultEmbeddingModel,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestEmbedder_EmbedBatchKeepsInputOrder(t *testing.T) {
	server := embeddingServer(t, 3, http.StatusOK)
	defer server.Close()

	embedder, err := NewEmbedder("dummy-key", WithEmbeddingDimension(3), WithEmbeddingBaseURL(server.URL))
	require.NoError(t, err)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1, 0}, vectors[1])
	assert.Equal(t, []float32{0, 0, 1}, vectors[2])

	single, err := embedder.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, single)
}

func TestEmbedder_Errors(t *testing.T) {
	t.Run("dimension mismatch", func(t *testing.T) {
		server := embeddingServer(t, 2, http.StatusOK)
		defer server.Close()

		embedder, err := NewEmbedder("dummy-key", WithEmbeddingDimension(3), WithEmbeddingBaseURL(server.URL))
		require.NoError(t, err)

		_, err = embedder.Embed(context.Background(), "a")
		require.Error(t, err)
		assert.True(t, knowledge.IsKind(err, knowledge.KindEmbeddingService))
		assert.ErrorIs(t, err, knowledge.ErrDimensionMismatch)
	})

	t.Run("upstream failure", func(t *testing.T) {
		server := embeddingServer(t, 3, http.StatusInternalServerError)
		defer server.Close()

		embedder, err := NewEmbedder("dummy-key", WithEmbeddingDimension(3), WithEmbeddingBaseURL(server.URL))
		require.NoError(t, err)

		_, err = embedder.Embed(context.Background(), "a")
		require.Error(t, err)
		assert.True(t, knowledge.IsKind(err, knowledge.KindEmbeddingService))
	})

	t.Run("batch bounds", func(t *testing.T) {
		embedder, err := NewEmbedder("dummy-key")
		require.NoError(t, err)

		_, err = embedder.EmbedBatch(context.Background(), nil)
		assert.True(t, knowledge.IsKind(err, knowledge.KindValidation))

		_, err = embedder.EmbedBatch(context.Background(), make([]string, MaxBatchSize+1))
		assert.True(t, knowledge.IsKind(err, knowledge.KindValidation))
	})
}

func TestClient_GenerateCompletion(t *testing.T) {
	var received struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Email help@example.com."}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client, err := NewClient("dummy-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	answer, err := client.GenerateCompletion(context.Background(), ask.CompletionRequest{
		System:      "system prompt",
		User:        "How do I contact support?",
		Temperature: 0.7,
		MaxTokens:   500,
	})
	require.NoError(t, err)
	assert.Equal(t, "Email help@example.com.", answer)

	assert.Equal(t, DefaultModel, received.Model)
	assert.Equal(t, 0.7, received.Temperature)
	assert.Equal(t, 500, received.MaxTokens)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, "system prompt", received.Messages[0].Content)
	assert.Equal(t, "user", received.Messages[1].Role)
}

func TestClient_GenerateCompletionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	client, err := NewClient("dummy-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.GenerateCompletion(context.Background(), ask.CompletionRequest{User: "q"})
	require.Error(t, err)
	assert.True(t, knowledge.IsKind(err, knowledge.KindCompletionService))
}

func TestClient_GenerateCompletionWithoutChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`))
	}))
	defer server.Close()

	client, err := NewClient("dummy-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	answer, err := client.GenerateCompletion(context.Background(), ask.CompletionRequest{User: "q"})
	require.Error(t, err)
	assert.Empty(t, answer)
	assert.True(t, knowledge.IsKind(err, knowledge.KindCompletionService))
	assert.ErrorIs(t, err, ErrInvalidResponseFormat)
}

func TestClient_GenerateCompletionEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-3","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":""}}]}`))
	}))
	defer server.Close()

	client, err := NewClient("dummy-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	answer, err := client.GenerateCompletion(context.Background(), ask.CompletionRequest{User: "q"})
	require.NoError(t, err)
	assert.Empty(t, answer)
}
