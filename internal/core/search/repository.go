package search

import (
	"context"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

// Repository は検索関連のデータアクセスを表すインターフェース
type Repository interface {
	// SearchSimilar は類似度が threshold 以上のドキュメントを降順で返す
	SearchSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]*knowledge.SearchResult, error)
}
