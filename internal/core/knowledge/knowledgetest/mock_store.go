package knowledgetest

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

// MockStore はテスト用のモック Store です
type MockStore struct {
	InsertDocumentFunc          func(ctx context.Context, doc knowledge.NewDocument) (uuid.UUID, error)
	SearchSimilarFunc           func(ctx context.Context, embedding []float32, threshold float64, limit int) ([]*knowledge.SearchResult, error)
	CreateCrawlJobFunc          func(ctx context.Context, url string, meta knowledge.CrawlJobMetadata) (*knowledge.CrawlJob, error)
	UpdateCrawlJobFunc          func(ctx context.Context, id uuid.UUID, update knowledge.JobUpdate) error
	GetCrawlJobFunc             func(ctx context.Context, id uuid.UUID) (*knowledge.CrawlJob, error)
	GetOrCreateConversationFunc func(ctx context.Context, userID string, existingID mo.Option[uuid.UUID]) (uuid.UUID, error)
	AppendMessagePairFunc       func(ctx context.Context, conversationID uuid.UUID, userText, assistantText string) (knowledge.PairResult, error)
	ListMessagesFunc            func(ctx context.Context, conversationID uuid.UUID) ([]*knowledge.Message, error)
}

var _ knowledge.Store = (*MockStore)(nil)

func (m *MockStore) InsertDocument(ctx context.Context, doc knowledge.NewDocument) (uuid.UUID, error) {
	if m.InsertDocumentFunc != nil {
		return m.InsertDocumentFunc(ctx, doc)
	}
	return uuid.New(), nil
}

func (m *MockStore) SearchSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]*knowledge.SearchResult, error) {
	if m.SearchSimilarFunc != nil {
		return m.SearchSimilarFunc(ctx, embedding, threshold, limit)
	}
	return nil, nil
}

func (m *MockStore) CreateCrawlJob(ctx context.Context, url string, meta knowledge.CrawlJobMetadata) (*knowledge.CrawlJob, error) {
	if m.CreateCrawlJobFunc != nil {
		return m.CreateCrawlJobFunc(ctx, url, meta)
	}
	return &knowledge.CrawlJob{ID: uuid.New(), URL: url, Status: knowledge.JobStatusProcessing, Metadata: meta}, nil
}

func (m *MockStore) UpdateCrawlJob(ctx context.Context, id uuid.UUID, update knowledge.JobUpdate) error {
	if m.UpdateCrawlJobFunc != nil {
		return m.UpdateCrawlJobFunc(ctx, id, update)
	}
	return nil
}

func (m *MockStore) GetCrawlJob(ctx context.Context, id uuid.UUID) (*knowledge.CrawlJob, error) {
	if m.GetCrawlJobFunc != nil {
		return m.GetCrawlJobFunc(ctx, id)
	}
	return nil, knowledge.ErrNotFound
}

func (m *MockStore) GetOrCreateConversation(ctx context.Context, userID string, existingID mo.Option[uuid.UUID]) (uuid.UUID, error) {
	if m.GetOrCreateConversationFunc != nil {
		return m.GetOrCreateConversationFunc(ctx, userID, existingID)
	}
	return existingID.OrElse(uuid.New()), nil
}

func (m *MockStore) AppendMessagePair(ctx context.Context, conversationID uuid.UUID, userText, assistantText string) (knowledge.PairResult, error) {
	if m.AppendMessagePairFunc != nil {
		return m.AppendMessagePairFunc(ctx, conversationID, userText, assistantText)
	}
	return knowledge.PairResult{UserMessageID: uuid.New(), AssistantMessageID: uuid.New()}, nil
}

func (m *MockStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*knowledge.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, conversationID)
	}
	return nil, nil
}

func (m *MockStore) Close() {}

// StubEmbedder は固定のベクトルを返す Embedder です
type StubEmbedder struct {
	Vector []float32
	Err    error
	Inputs []string
}

func (e *StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.Inputs = append(e.Inputs, text)
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Vector, nil
}

func (e *StubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// UnitVector は dim 次元で axis 番目のみ 1 のベクトルを返す
func UnitVector(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis%dim] = 1
	return v
}
