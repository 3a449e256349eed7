// Package memory はプロセス内で完結する knowledge.Store 実装を提供する。
// テストとローカル実行用で、再起動するとデータは失われる。
package memory

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

// Store はメモリ上の knowledge.Store 実装
type Store struct {
	mu            sync.RWMutex
	dimension     int
	documents     []*knowledge.Document
	jobs          map[uuid.UUID]*knowledge.CrawlJob
	conversations map[uuid.UUID]*knowledge.Conversation
	messages      map[uuid.UUID][]*knowledge.Message
	now           func() time.Time
}

// Option は Store のオプション設定
type Option func(*Store)

// WithDimension は受け付ける Embedding 次元を設定する（0 で検証しない）
func WithDimension(dim int) Option {
	return func(s *Store) {
		s.dimension = dim
	}
}

// WithClock は時刻取得関数を差し替える
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New は空の Store を作成する
func New(opts ...Option) *Store {
	s := &Store{
		dimension:     knowledge.DefaultEmbeddingDimension,
		jobs:          make(map[uuid.UUID]*knowledge.CrawlJob),
		conversations: make(map[uuid.UUID]*knowledge.Conversation),
		messages:      make(map[uuid.UUID][]*knowledge.Message),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ knowledge.Store = (*Store)(nil)

// === Document ===

func (s *Store) InsertDocument(_ context.Context, doc knowledge.NewDocument) (uuid.UUID, error) {
	if s.dimension > 0 && len(doc.Embedding) != s.dimension {
		return uuid.Nil, knowledge.StoreError("insert document",
			fmt.Errorf("%w: got %d, want %d", knowledge.ErrDimensionMismatch, len(doc.Embedding), s.dimension))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := &knowledge.Document{
		ID:        uuid.New(),
		Content:   doc.Content,
		URL:       cloneString(doc.URL),
		Title:     cloneString(doc.Title),
		Embedding: append([]float32(nil), doc.Embedding...),
		Metadata:  maps.Clone(doc.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.documents = append(s.documents, stored)
	return stored.ID, nil
}

// SearchSimilar はコサイン類似度で全件走査する
func (s *Store) SearchSimilar(_ context.Context, embedding []float32, threshold float64, limit int) ([]*knowledge.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*knowledge.SearchResult, 0)
	if limit <= 0 {
		return results, nil
	}

	for _, doc := range s.documents {
		if len(doc.Embedding) == 0 || len(doc.Embedding) != len(embedding) {
			continue
		}
		if s.dimension > 0 && len(doc.Embedding) != s.dimension {
			continue
		}
		score := CosineSimilarity(embedding, doc.Embedding)
		if math.IsNaN(score) || score < threshold {
			continue
		}
		results = append(results, &knowledge.SearchResult{
			ID:         doc.ID,
			Content:    doc.Content,
			Metadata:   maps.Clone(doc.Metadata),
			URL:        cloneString(doc.URL),
			Title:      cloneString(doc.Title),
			Similarity: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Documents は保存済みドキュメントのスナップショットを返す
func (s *Store) Documents() []knowledge.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]knowledge.Document, 0, len(s.documents))
	for _, d := range s.documents {
		out = append(out, *d)
	}
	return out
}

// === CrawlJob ===

func (s *Store) CreateCrawlJob(_ context.Context, url string, meta knowledge.CrawlJobMetadata) (*knowledge.CrawlJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job := &knowledge.CrawlJob{
		ID:        uuid.New(),
		URL:       url,
		Status:    knowledge.JobStatusProcessing,
		Metadata:  knowledge.CrawlJobMetadata{MaxPages: meta.MaxPages, Selector: cloneString(meta.Selector)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job

	copied := *job
	return &copied, nil
}

func (s *Store) UpdateCrawlJob(_ context.Context, id uuid.UUID, update knowledge.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return knowledge.StoreError("update crawl job", fmt.Errorf("%w: crawl job %s", knowledge.ErrNotFound, id))
	}
	if err := update.Apply(job, s.now()); err != nil {
		return knowledge.StoreError("update crawl job", fmt.Errorf("%w: %s is %s", err, id, job.Status))
	}
	return nil
}

func (s *Store) GetCrawlJob(_ context.Context, id uuid.UUID) (*knowledge.CrawlJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, knowledge.StoreError("get crawl job", fmt.Errorf("%w: crawl job %s", knowledge.ErrNotFound, id))
	}
	copied := *job
	return &copied, nil
}

// JobCount は作成済みジョブ数を返す
func (s *Store) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// === Conversation ===

func (s *Store) GetOrCreateConversation(_ context.Context, userID string, existingID mo.Option[uuid.UUID]) (uuid.UUID, error) {
	if id, ok := existingID.Get(); ok {
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := &knowledge.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv
	return conv.ID, nil
}

func (s *Store) AppendMessagePair(_ context.Context, conversationID uuid.UUID, userText, assistantText string) (knowledge.PairResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return knowledge.PairResult{}, knowledge.StoreError("append messages",
			fmt.Errorf("%w: conversation %s", knowledge.ErrNotFound, conversationID))
	}

	now := s.now()
	user := &knowledge.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           knowledge.RoleUser,
		Content:        userText,
		CreatedAt:      now,
	}
	assistant := &knowledge.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           knowledge.RoleAssistant,
		Content:        assistantText,
		CreatedAt:      now,
	}
	s.messages[conversationID] = append(s.messages[conversationID], user, assistant)
	conv.UpdatedAt = now

	return knowledge.PairResult{UserMessageID: user.ID, AssistantMessageID: assistant.ID}, nil
}

func (s *Store) ListMessages(_ context.Context, conversationID uuid.UUID) ([]*knowledge.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	out := make([]*knowledge.Message, 0, len(msgs))
	for _, m := range msgs {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

// ConversationCount は作成済み会話数を返す
func (s *Store) ConversationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Close はメモリストアでは何もしない
func (s *Store) Close() {}

// CosineSimilarity は2つのベクトルのコサイン類似度を返す
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
