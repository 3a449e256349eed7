package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

// CrawlParams はクロール要求のパラメータ
type CrawlParams struct {
	URL      string
	Selector mo.Option[string]
	MaxPages int // 記録のみ。1回のクロールは単一ページ
}

// CrawlResult はクロール処理の結果を表す
type CrawlResult struct {
	JobID        uuid.UUID
	DocumentID   uuid.UUID
	PagesCrawled int
	Message      string
}

// CrawlService はページ取り込みのユースケースを提供する
type CrawlService struct {
	repository   Repository
	fetcher      PageFetcher
	extractor    ContentExtractor
	embedder     Embedder
	tokenCounter TokenCounter
	maxChars     int
	dimension    int
	now          func() time.Time
	logger       *slog.Logger
}

type crawlServiceOptions struct {
	tokenCounter TokenCounter
	maxChars     int
	dimension    int
	now          func() time.Time
	logger       *slog.Logger
}

// CrawlServiceOption は CrawlService のオプション設定
type CrawlServiceOption func(*crawlServiceOptions)

// WithCrawlLogger は CrawlService にロガーを設定する
func WithCrawlLogger(logger *slog.Logger) CrawlServiceOption {
	return func(o *crawlServiceOptions) {
		o.logger = logger
	}
}

// WithCrawlTokenCounter はメタデータ用のトークンカウンタを設定する
func WithCrawlTokenCounter(counter TokenCounter) CrawlServiceOption {
	return func(o *crawlServiceOptions) {
		o.tokenCounter = counter
	}
}

// WithMaxEmbeddingChars は Embedding 入力の上限文字数を上書きする
func WithMaxEmbeddingChars(n int) CrawlServiceOption {
	return func(o *crawlServiceOptions) {
		o.maxChars = n
	}
}

// WithEmbeddingDimension は期待する Embedding 次元を設定する（0 で検証しない）
func WithEmbeddingDimension(dim int) CrawlServiceOption {
	return func(o *crawlServiceOptions) {
		o.dimension = dim
	}
}

// WithCrawlClock は時刻取得関数を差し替える
func WithCrawlClock(now func() time.Time) CrawlServiceOption {
	return func(o *crawlServiceOptions) {
		o.now = now
	}
}

// NewCrawlService は新しいCrawlServiceを作成する
func NewCrawlService(
	repo Repository,
	fetcher PageFetcher,
	extractor ContentExtractor,
	embedder Embedder,
	opts ...CrawlServiceOption,
) *CrawlService {
	options := crawlServiceOptions{
		maxChars:  DefaultMaxEmbeddingChars,
		dimension: knowledge.DefaultEmbeddingDimension,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.now == nil {
		options.now = time.Now
	}

	return &CrawlService{
		repository:   repo,
		fetcher:      fetcher,
		extractor:    extractor,
		embedder:     embedder,
		tokenCounter: options.tokenCounter,
		maxChars:     options.maxChars,
		dimension:    options.dimension,
		now:          options.now,
		logger:       options.logger,
	}
}

// Crawl は単一ページを取得・抽出・Embedding化して保存する
// ジョブは取得処理より前に必ず作成され、失敗時は failed として記録される
func (s *CrawlService) Crawl(ctx context.Context, params CrawlParams) (*CrawlResult, error) {
	// 1. バリデーション（ジョブ作成前）
	if err := validateURL(params.URL); err != nil {
		return nil, err
	}
	if sel, ok := params.Selector.Get(); ok && strings.TrimSpace(sel) == "" {
		params.Selector = mo.None[string]()
	}
	if sel, ok := params.Selector.Get(); ok {
		if err := s.extractor.ValidateSelector(sel); err != nil {
			return nil, err
		}
	}
	maxPages := params.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	// 2. ジョブ作成
	job, err := s.repository.CreateCrawlJob(ctx, params.URL, knowledge.CrawlJobMetadata{
		MaxPages: maxPages,
		Selector: params.Selector.ToPointer(),
	})
	if err != nil {
		return nil, asStoreError("create crawl job", err)
	}

	logger := s.logger.With("jobID", job.ID.String(), "url", params.URL)
	logger.Info("クロールを開始", "maxPages", maxPages, "selector", params.Selector.OrEmpty())

	// 3. ページ取得
	page, err := s.fetcher.Fetch(ctx, params.URL)
	if err != nil {
		s.failJob(ctx, logger, job.ID, fmt.Sprintf("%s: %v", msgFetchFailed, err))
		return nil, knowledge.FetchError("crawl", msgFetchFailed, err)
	}
	if !page.OK() {
		s.failJob(ctx, logger, job.ID, fmt.Sprintf("%s: %s", msgFetchFailed, page.StatusText))
		return nil, knowledge.FetchError("crawl", msgFetchFailed,
			fmt.Errorf("unexpected status %d %s", page.StatusCode, page.StatusText))
	}

	// 4. 本文抽出
	extraction, err := s.extractor.Extract(string(page.Body), params.Selector, params.URL)
	if err != nil {
		reason := err.Error()
		if knowledge.IsKind(err, knowledge.KindEmptyContent) {
			reason = msgNoContent
		}
		s.failJob(ctx, logger, job.ID, reason)
		return nil, err
	}

	// 5. Embedding 生成（入力は事前に切り詰める）
	input, truncated := TruncateForEmbedding(extraction.Content, s.maxChars)
	embedding, err := s.embedder.Embed(ctx, input)
	if err == nil && s.dimension > 0 && len(embedding) != s.dimension {
		err = fmt.Errorf("%w: got %d, want %d", knowledge.ErrDimensionMismatch, len(embedding), s.dimension)
	}
	if err != nil {
		s.failJob(ctx, logger, job.ID, fmt.Sprintf("%s: %v", msgEmbedFailed, err))
		if knowledge.IsKind(err, knowledge.KindEmbeddingService) {
			return nil, err
		}
		return nil, knowledge.EmbeddingServiceError("embed page", err)
	}

	// 6. ドキュメント保存
	url := params.URL
	title := extraction.Title
	docID, err := s.repository.InsertDocument(ctx, knowledge.NewDocument{
		Content:   extraction.Content,
		URL:       &url,
		Title:     &title,
		Embedding: embedding,
		Metadata:  documentMetadata(extraction.Content, s.now(), truncated, s.tokenCounter),
	})
	if err != nil {
		// 7. 保存失敗
		s.failJob(ctx, logger, job.ID, fmt.Sprintf("%s: %v", msgStoreFailed, err))
		return nil, asStoreError("insert document", err)
	}

	// 8. 完了
	if err := s.repository.UpdateCrawlJob(ctx, job.ID, knowledge.Completed(PagesPerCrawl)); err != nil {
		logger.Error("ジョブの完了記録に失敗", "documentID", docID.String(), "error", err)
		return nil, asStoreError("complete crawl job", err)
	}

	logger.Info("クロールが完了しました",
		"documentID", docID.String(),
		"contentLength", len(extraction.Content),
		"truncated", truncated,
	)

	return &CrawlResult{
		JobID:        job.ID,
		DocumentID:   docID,
		PagesCrawled: PagesPerCrawl,
		Message:      msgCrawlSucceeded,
	}, nil
}

// failJob はジョブを failed に更新する
// 更新自体の失敗は呼び出し元のエラーを置き換えずログにのみ残す
func (s *CrawlService) failJob(ctx context.Context, logger *slog.Logger, jobID uuid.UUID, reason string) {
	logger.Warn("クロールに失敗", "reason", reason)
	if err := s.repository.UpdateCrawlJob(ctx, jobID, knowledge.Failed(reason)); err != nil {
		logger.Error("ジョブの失敗記録に失敗", "error", err)
	}
}

func asStoreError(op string, err error) error {
	var kerr *knowledge.Error
	if errors.As(err, &kerr) {
		return err
	}
	return knowledge.StoreError(op, err)
}
