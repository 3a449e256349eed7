package ingestion

import (
	"context"

	"github.com/samber/mo"
)

// Page は取得したページのレスポンスを表す
type Page struct {
	URL         string
	StatusCode  int
	StatusText  string
	ContentType string
	Body        []byte
}

// OK は 2xx レスポンスかどうかを返す
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// PageFetcher は URL からページを取得するインターフェース
// HTTP ステータスに関わらずレスポンスを受け取れた場合は Page を返す
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Extraction は HTML から抽出した本文とタイトル
type Extraction struct {
	Content string
	Title   string
}

// ContentExtractor は HTML から正規化済みテキストを抽出するインターフェース
type ContentExtractor interface {
	// Extract は本文が空の場合 EmptyContentError を返す
	Extract(html string, selector mo.Option[string], sourceURL string) (*Extraction, error)

	// ValidateSelector はセレクタ構文が不正な場合 ValidationError を返す
	ValidateSelector(selector string) error
}

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TokenCounter はトークン数を数えるインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}
