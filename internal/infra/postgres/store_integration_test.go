//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/faq-rag/internal/core/knowledge"
	"github.com/jinford/faq-rag/internal/platform/database"
)

const testDimension = 3

var testDSN string

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not construct docker pool: %v\n", err)
		os.Exit(1)
	}
	if err := pool.Client.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "could not connect to docker: %v\n", err)
		os.Exit(1)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=faq",
			"POSTGRES_PASSWORD=faq",
			"POSTGRES_DB=faq_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start postgres: %v\n", err)
		os.Exit(1)
	}
	_ = resource.Expire(300)

	testDSN = fmt.Sprintf("postgres://faq:faq@%s/faq_test?sslmode=disable", resource.GetHostPort("5432/tcp"))

	pool.MaxWait = 2 * time.Minute
	if err := pool.Retry(func() error {
		p, err := database.Open(context.Background(), testDSN, database.ConnectionParams{})
		if err != nil {
			return err
		}
		p.Close()
		return nil
	}); err != nil {
		_ = pool.Purge(resource)
		fmt.Fprintf(os.Stderr, "postgres did not become ready: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = pool.Purge(resource)
	os.Exit(code)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	pool, err := database.Open(ctx, testDSN, database.ConnectionParams{})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewStore(pool, WithDimension(testDimension))
	require.NoError(t, store.Migrate(ctx))
	truncateAll(t, pool)
	return store
}

func truncateAll(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE documents, crawl_jobs, messages, conversations`)
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func TestStore_MigrateIsIdempotentAndVerifies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Migrate(ctx))

	missing, err := store.VerifyTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestStore_SearchSimilar(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	docs := []struct {
		title string
		vec   []float32
	}{
		{"exact", []float32{1, 0, 0}},
		{"close", []float32{0.9, 0.1, 0}},
		{"orthogonal", []float32{0, 1, 0}},
	}
	for _, d := range docs {
		_, err := store.InsertDocument(ctx, knowledge.NewDocument{
			Content:   d.title + " content",
			Title:     strPtr(d.title),
			URL:       strPtr("https://example.com/" + d.title),
			Embedding: d.vec,
			Metadata:  map[string]any{"crawled_at": "2026-01-01T00:00:00Z"},
		})
		require.NoError(t, err)
	}

	results, err := store.SearchSimilar(ctx, []float32{1, 0, 0}, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", *results[0].Title)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "close", *results[1].Title)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.Equal(t, "2026-01-01T00:00:00Z", results[0].Metadata["crawled_at"])

	limited, err := store.SearchSimilar(ctx, []float32{1, 0, 0}, 0.5, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := store.SearchSimilar(ctx, []float32{0, 0, 1}, 0.5, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_InsertDocumentRejectsWrongDimension(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertDocument(context.Background(), knowledge.NewDocument{Content: "x", Embedding: []float32{1, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, knowledge.ErrDimensionMismatch)
	assert.True(t, knowledge.IsKind(err, knowledge.KindStore))
}

func TestStore_CrawlJobLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	job, err := store.CreateCrawlJob(ctx, "https://example.com/faq", knowledge.CrawlJobMetadata{MaxPages: 10, Selector: strPtr("main")})
	require.NoError(t, err)
	assert.Equal(t, knowledge.JobStatusProcessing, job.Status)

	require.NoError(t, store.UpdateCrawlJob(ctx, job.ID, knowledge.Completed(1)))

	got, err := store.GetCrawlJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, knowledge.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, got.PagesCrawled)
	assert.Nil(t, got.Error)
	assert.Equal(t, 10, got.Metadata.MaxPages)
	assert.Equal(t, "main", *got.Metadata.Selector)

	err = store.UpdateCrawlJob(ctx, job.ID, knowledge.Failed("late"))
	assert.ErrorIs(t, err, knowledge.ErrJobTerminal)

	err = store.UpdateCrawlJob(ctx, uuid.New(), knowledge.Failed("missing"))
	assert.ErrorIs(t, err, knowledge.ErrNotFound)

	failed, err := store.CreateCrawlJob(ctx, "https://example.com/404", knowledge.CrawlJobMetadata{MaxPages: 10})
	require.NoError(t, err)
	require.NoError(t, store.UpdateCrawlJob(ctx, failed.ID, knowledge.Failed("Failed to fetch URL: Not Found")))

	got, err = store.GetCrawlJob(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, knowledge.JobStatusFailed, got.Status)
	assert.Equal(t, "Failed to fetch URL: Not Found", *got.Error)
	assert.Zero(t, got.PagesCrawled)
}

func TestStore_ConversationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	convID, err := store.GetOrCreateConversation(ctx, "user-1", mo.None[uuid.UUID]())
	require.NoError(t, err)

	same, err := store.GetOrCreateConversation(ctx, "user-1", mo.Some(convID))
	require.NoError(t, err)
	assert.Equal(t, convID, same)

	pair, err := store.AppendMessagePair(ctx, convID, "Hi", "Hello")
	require.NoError(t, err)
	assert.False(t, pair.Partial())

	_, err = store.AppendMessagePair(ctx, convID, "Again", "Sure")
	require.NoError(t, err)

	messages, err := store.ListMessages(ctx, convID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, knowledge.RoleUser, messages[0].Role)
	assert.Equal(t, "Hi", messages[0].Content)
	assert.Equal(t, knowledge.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Hello", messages[1].Content)
	assert.Equal(t, "Again", messages[2].Content)
	assert.Equal(t, "Sure", messages[3].Content)

	_, err = store.AppendMessagePair(ctx, uuid.New(), "Hi", "Hello")
	assert.ErrorIs(t, err, knowledge.ErrNotFound)
}
