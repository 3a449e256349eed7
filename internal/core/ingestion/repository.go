package ingestion

import "github.com/jinford/faq-rag/internal/core/knowledge"

// Repository はクロールで利用するデータアクセスを統合するインターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	knowledge.DocumentStore
	knowledge.CrawlJobStore
}
