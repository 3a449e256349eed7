package search

import (
	"github.com/samber/mo"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

// SearchResult はベクトル検索の結果を表す
type SearchResult = knowledge.SearchResult

// SearchParams は検索パラメータを表す
type SearchParams struct {
	Query     string
	Threshold mo.Option[float64] // 未指定の場合はデフォルト値を使う
	Limit     int     // 0 以下の場合はデフォルト値を使う
}
