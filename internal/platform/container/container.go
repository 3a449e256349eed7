package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	coreask "github.com/jinford/faq-rag/internal/core/ask"
	coreingestion "github.com/jinford/faq-rag/internal/core/ingestion"
	"github.com/jinford/faq-rag/internal/core/knowledge"
	coresearch "github.com/jinford/faq-rag/internal/core/search"
	"github.com/jinford/faq-rag/internal/infra/memory"
	"github.com/jinford/faq-rag/internal/infra/openai"
	"github.com/jinford/faq-rag/internal/infra/postgres"
	"github.com/jinford/faq-rag/internal/infra/web"
	"github.com/jinford/faq-rag/internal/platform/config"
	"github.com/jinford/faq-rag/internal/platform/database"
)

// Embedder は取り込みと検索の両方で使う Embedding 生成器
type Embedder interface {
	coreingestion.Embedder
	coresearch.Embedder
}

// ServiceContainer はアプリケーションの依存関係を保持する。
type ServiceContainer struct {
	CrawlService  *coreingestion.CrawlService
	SearchService *coresearch.SearchService
	AskService    *coreask.AskService
	Store         knowledge.Store

	logger *slog.Logger
}

type containerOptions struct {
	logger       *slog.Logger
	store        knowledge.Store
	embedder     Embedder
	llmClient    coreask.LLMClient
	fetcher      coreingestion.PageFetcher
	extractor    coreingestion.ContentExtractor
	tokenCounter coreingestion.TokenCounter
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerStore は Store を差し替える
func WithContainerStore(store knowledge.Store) ContainerOption {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client coreask.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerFetcher はページ取得を差し替える
func WithContainerFetcher(fetcher coreingestion.PageFetcher) ContainerOption {
	return func(opts *containerOptions) {
		opts.fetcher = fetcher
	}
}

// WithContainerExtractor は本文抽出を差し替える
func WithContainerExtractor(extractor coreingestion.ContentExtractor) ContainerOption {
	return func(opts *containerOptions) {
		opts.extractor = extractor
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter coreingestion.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Store (PostgreSQL or in-memory)
	store := options.store
	if store == nil {
		var err error
		store, err = openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	c, err := newServices(cfg, store, options)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func newServices(cfg *config.Config, store knowledge.Store, options containerOptions) (*ServiceContainer, error) {
	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		openaiEmbedder, err := openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			openai.WithEmbeddingBaseURL(cfg.OpenAI.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI Embedder 初期化に失敗しました: %w", err)
		}
		options.logger.Info("OpenAI Embedder を初期化しました",
			"model", openaiEmbedder.ModelName(),
			"dimension", openaiEmbedder.Dimension(),
		)
		embedder = openaiEmbedder
	}

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		openaiClient, err := openai.NewClient(
			cfg.OpenAI.APIKey,
			openai.WithModel(cfg.OpenAI.LLMModel),
			openai.WithTimeout(cfg.OpenAI.Timeout),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
		options.logger.Info("OpenAI LLMクライアントを初期化しました", "model", openaiClient.ModelName())
		llmClient = openaiClient
	}

	// Fetcher / Extractor (web)
	fetcher := options.fetcher
	if fetcher == nil {
		fetcher = web.NewFetcher(
			web.WithTimeout(cfg.Crawl.Timeout),
			web.WithUserAgent(cfg.Crawl.UserAgent),
			web.WithMaxBodyBytes(cfg.Crawl.MaxBodyBytes),
		)
	}
	extractor := options.extractor
	if extractor == nil {
		extractor = web.NewExtractor()
	}

	// TokenCounter (tiktoken)
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		counter, err := newTokenCounter()
		if err != nil {
			return nil, fmt.Errorf("TokenCounter 初期化に失敗しました: %w", err)
		}
		tokenCounter = counter
	}

	// CrawlService
	crawlService := coreingestion.NewCrawlService(
		store,
		fetcher,
		extractor,
		embedder,
		coreingestion.WithCrawlLogger(options.logger),
		coreingestion.WithCrawlTokenCounter(tokenCounter),
		coreingestion.WithMaxEmbeddingChars(cfg.Crawl.MaxEmbeddingChars),
		coreingestion.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	// SearchService
	searchService := coresearch.NewSearchService(
		store,
		embedder,
		coresearch.WithSearchLogger(options.logger),
		coresearch.WithSearchDefaults(cfg.Chat.MatchThreshold, cfg.Chat.MatchCount),
	)

	// AskService
	askService := coreask.NewAskService(
		searchService,
		llmClient,
		store,
		coreask.WithAskLogger(options.logger),
		coreask.WithRetrieval(cfg.Chat.MatchThreshold, cfg.Chat.MatchCount),
		coreask.WithSampling(cfg.Chat.Temperature, cfg.Chat.MaxTokens),
	)

	return &ServiceContainer{
		CrawlService:  crawlService,
		SearchService: searchService,
		AskService:    askService,
		Store:         store,
		logger:        options.logger,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (knowledge.Store, error) {
	switch cfg.Server.Store {
	case config.StoreBackendMemory:
		return memory.New(memory.WithDimension(cfg.OpenAI.EmbeddingDimension)), nil
	default:
		return OpenPostgresStore(ctx, cfg)
	}
}

// OpenPostgresStore は設定から PostgreSQL ストアを開く。
func OpenPostgresStore(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}
	return postgres.NewStore(pool, postgres.WithDimension(cfg.OpenAI.EmbeddingDimension)), nil
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	return database.Open(ctx, cfg.URL, database.ConnectionParams{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
		MaxConns: int32(cfg.MaxConns),
	})
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.Store != nil {
		c.Store.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
