package ingestion

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

const (
	// DefaultMaxPages は maxPages 未指定時の値
	DefaultMaxPages = 10

	// DefaultMaxEmbeddingChars は Embedding に渡す本文の上限文字数
	DefaultMaxEmbeddingChars = 8000

	// PagesPerCrawl は1回のクロールでインデックス化するページ数
	PagesPerCrawl = 1
)

const (
	msgCrawlSucceeded = "Page crawled successfully"
	msgFetchFailed    = "Failed to fetch URL"
	msgNoContent      = "No content extracted from page"
	msgEmbedFailed    = "Failed to generate embedding"
	msgStoreFailed    = "Failed to store document"
)

// TruncateForEmbedding は先頭 maxChars 文字（rune 単位）を残して切り詰める
func TruncateForEmbedding(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i], true
		}
		n++
	}
	return text, false
}

// validateURL は http(s) の絶対URLかを検証する
func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return knowledge.ValidationError("crawl", "URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return knowledge.ValidationError("crawl", "URL must be an absolute http(s) URL")
	}
	return nil
}

// documentMetadata はドキュメントに付与するメタデータを組み立てる
func documentMetadata(content string, crawledAt time.Time, truncated bool, counter TokenCounter) map[string]any {
	meta := map[string]any{
		"crawled_at":     crawledAt.UTC().Format(time.RFC3339),
		"content_length": utf8.RuneCountInString(content),
		"truncated":      truncated,
	}
	if counter != nil {
		meta["token_count"] = counter.CountTokens(content)
	}
	return meta
}
