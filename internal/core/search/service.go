package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/mo"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchService は検索のビジネスロジックを提供する
type SearchService struct {
	repo             Repository
	embedder         Embedder
	defaultThreshold float64
	defaultLimit     int
	logger           *slog.Logger
}

// SearchServiceOption は SearchService のオプション設定
type SearchServiceOption func(*SearchService)

// WithSearchLogger は SearchService にロガーを設定する
func WithSearchLogger(logger *slog.Logger) SearchServiceOption {
	return func(s *SearchService) {
		s.logger = logger
	}
}

// WithSearchDefaults は閾値と件数のデフォルトを上書きする
func WithSearchDefaults(threshold float64, limit int) SearchServiceOption {
	return func(s *SearchService) {
		s.defaultThreshold = threshold
		s.defaultLimit = limit
	}
}

// NewSearchService は新しいSearchServiceを作成する
func NewSearchService(repo Repository, embedder Embedder, opts ...SearchServiceOption) *SearchService {
	svc := &SearchService{
		repo:             repo,
		embedder:         embedder,
		defaultThreshold: knowledge.DefaultMatchThreshold,
		defaultLimit:     knowledge.DefaultMatchCount,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Search はクエリをEmbeddingに変換してベクトル検索を実行する
func (s *SearchService) Search(ctx context.Context, params SearchParams) ([]*SearchResult, error) {
	// バリデーション
	if params.Query == "" {
		return nil, knowledge.ValidationError("search", "query is required")
	}

	// クエリをEmbeddingに変換（短い質問文は切り詰めない）
	queryVector, err := s.embedder.Embed(ctx, params.Query)
	if err != nil {
		if knowledge.IsKind(err, knowledge.KindEmbeddingService) {
			return nil, err
		}
		return nil, knowledge.EmbeddingServiceError("embed query", err)
	}

	return s.SearchByVector(ctx, queryVector, params.Threshold, params.Limit)
}

// SearchByVector は Embedding 済みのベクトルで検索する
func (s *SearchService) SearchByVector(ctx context.Context, queryVector []float32, thresholdOpt mo.Option[float64], limit int) ([]*SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, knowledge.ValidationError("search", "query vector is empty")
	}
	threshold := thresholdOpt.OrElse(s.defaultThreshold)
	if threshold < -1 || threshold > 1 {
		return nil, knowledge.ValidationError("search", fmt.Sprintf("threshold must be within [-1, 1]: %v", threshold))
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	results, err := s.repo.SearchSimilar(ctx, queryVector, threshold, limit)
	if err != nil {
		if knowledge.IsKind(err, knowledge.KindStore) {
			return nil, err
		}
		return nil, knowledge.StoreError("search similar", err)
	}

	s.logger.Debug("similarity search completed",
		"threshold", threshold,
		"limit", limit,
		"results", len(results),
	)

	if results == nil {
		results = []*SearchResult{}
	}
	return results, nil
}
