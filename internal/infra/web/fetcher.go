package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jinford/faq-rag/internal/core/ingestion"
)

const (
	// DefaultTimeout はページ取得のデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent はリクエストに付与する User-Agent
	DefaultUserAgent = "faq-rag-crawler/1.0"

	// DefaultMaxBodyBytes はレスポンスボディの読み込み上限
	DefaultMaxBodyBytes = 10 << 20
)

// Fetcher は HTTP GET でページを取得する
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

type fetcherOptions struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	maxBodyBytes int64
}

// FetcherOption は Fetcher のオプション設定
type FetcherOption func(*fetcherOptions)

// WithHTTPClient は HTTP クライアントを差し替える
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(o *fetcherOptions) {
		o.client = client
	}
}

// WithTimeout はタイムアウトを上書きする
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(o *fetcherOptions) {
		o.timeout = timeout
	}
}

// WithUserAgent は User-Agent を上書きする
func WithUserAgent(ua string) FetcherOption {
	return func(o *fetcherOptions) {
		o.userAgent = ua
	}
}

// WithMaxBodyBytes はボディの読み込み上限を上書きする
func WithMaxBodyBytes(n int64) FetcherOption {
	return func(o *fetcherOptions) {
		o.maxBodyBytes = n
	}
}

// NewFetcher は新しい Fetcher を作成する
func NewFetcher(opts ...FetcherOption) *Fetcher {
	options := fetcherOptions{
		timeout:      DefaultTimeout,
		userAgent:    DefaultUserAgent,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.client == nil {
		options.client = &http.Client{Timeout: options.timeout}
	}

	return &Fetcher{
		client:       options.client,
		userAgent:    options.userAgent,
		maxBodyBytes: options.maxBodyBytes,
	}
}

// Fetch は URL を GET する。リトライは行わない
func (f *Fetcher) Fetch(ctx context.Context, url string) (*ingestion.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	page := &ingestion.Page{
		URL:         url,
		StatusCode:  resp.StatusCode,
		StatusText:  http.StatusText(resp.StatusCode),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if page.StatusText == "" {
		page.StatusText = resp.Status
	}
	if !page.OK() {
		return page, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	page.Body = body

	return page, nil
}

// インターフェース実装の確認
var _ ingestion.PageFetcher = (*Fetcher)(nil)
