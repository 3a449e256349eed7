package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	coreask "github.com/jinford/faq-rag/internal/core/ask"
	coreingestion "github.com/jinford/faq-rag/internal/core/ingestion"
)

// Crawler はクロール要求を処理する
type Crawler interface {
	Crawl(ctx context.Context, params coreingestion.CrawlParams) (*coreingestion.CrawlResult, error)
}

// Answerer は質問応答を処理する
type Answerer interface {
	Answer(ctx context.Context, params coreask.AnswerParams) (*coreask.AnswerResult, error)
}

// Server は gin ベースの HTTP サーバー
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	crawler  Crawler
	answerer Answerer
	logger   *slog.Logger
}

// ServerOption は Server のオプション設定
type ServerOption func(*Server)

// WithLogger は Server にロガーを設定する
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer は新しい Server を作成する
func NewServer(crawler Crawler, answerer Answerer, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:   gin.New(),
		crawler:  crawler,
		answerer: answerer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.engine.HandleMethodNotAllowed = true
	s.registerMiddlewares()
	s.registerRoutes()

	return s
}

// Handler は http.Handler を返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerMiddlewares() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(loggingMiddleware(s.logger))
	s.engine.Use(corsMiddleware())
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/crawl", s.handleCrawl)
		api.POST("/chat", s.handleChat)
	}

	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// Start は HTTP サーバーを起動し、ctx がキャンセルされるとシャットダウンする
func (s *Server) Start(ctx context.Context, port int, shutdownTimeout time.Duration) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動します", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("HTTPサーバーを停止します")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}
