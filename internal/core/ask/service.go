package ask

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/faq-rag/internal/core/knowledge"
	"github.com/jinford/faq-rag/internal/core/search"
)

const (
	// DefaultTemperature は回答生成のデフォルト温度
	DefaultTemperature = 0.7

	// DefaultMaxTokens は回答生成のデフォルト最大トークン数
	DefaultMaxTokens = 500
)

// LLMClient はLLM通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (string, error)
}

// AskService は質問応答のビジネスロジックを提供する
type AskService struct {
	searchService *search.SearchService
	llm           LLMClient
	conversations knowledge.ConversationStore
	threshold     mo.Option[float64]
	limit         int
	temperature   float64
	maxTokens     int
	logger        *slog.Logger
}

type AskServiceOption func(*AskService)

// WithAskLogger は AskService にロガーを設定する
func WithAskLogger(logger *slog.Logger) AskServiceOption {
	return func(s *AskService) {
		s.logger = logger
	}
}

// WithRetrieval は検索の閾値と件数を上書きする
func WithRetrieval(threshold float64, limit int) AskServiceOption {
	return func(s *AskService) {
		s.threshold = mo.Some(threshold)
		s.limit = limit
	}
}

// WithSampling は生成時の温度と最大トークン数を上書きする
func WithSampling(temperature float64, maxTokens int) AskServiceOption {
	return func(s *AskService) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

// NewAskService は新しいAskServiceを作成する
func NewAskService(
	searchService *search.SearchService,
	llm LLMClient,
	conversations knowledge.ConversationStore,
	opts ...AskServiceOption,
) *AskService {
	svc := &AskService{
		searchService: searchService,
		llm:           llm,
		conversations: conversations,
		limit:         knowledge.DefaultMatchCount,
		temperature:   DefaultTemperature,
		maxTokens:     DefaultMaxTokens,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Answer は質問に対してRAGベースで回答を生成する
func (s *AskService) Answer(ctx context.Context, params AnswerParams) (*AnswerResult, error) {
	// 1. バリデーション
	if strings.TrimSpace(params.Message) == "" {
		return nil, knowledge.ValidationError("answer", "Message is required")
	}

	// 2-3. Embedding と類似検索
	results, err := s.searchService.Search(ctx, search.SearchParams{
		Query:     params.Message,
		Threshold: s.threshold,
		Limit:     s.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	s.logger.Info("similarity search completed", "results", len(results))

	// 4-5. プロンプト構築
	systemPrompt := BuildSystemPrompt(BuildContext(results))

	// 6. LLMで回答生成
	answer, err := s.llm.GenerateCompletion(ctx, CompletionRequest{
		System:      systemPrompt,
		User:        params.Message,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		if !knowledge.IsKind(err, knowledge.KindCompletionService) {
			err = knowledge.CompletionServiceError("generate answer", err)
		}
		return nil, err
	}
	if strings.TrimSpace(answer) == "" {
		answer = FallbackAnswer
	}

	result := &AnswerResult{
		Message:        answer,
		ConversationID: mo.None[uuid.UUID](),
		Sources:        toSources(results),
	}

	// 7. userID がある場合のみ会話を永続化（ベストエフォート）
	if userID, ok := params.UserID.Get(); ok && userID != "" {
		outcome := s.persistConversation(ctx, userID, params.ConversationID, params.Message, answer)
		switch {
		case outcome.Err != nil:
			s.logger.Warn("会話の保存に失敗しました", "userID", userID, "error", outcome.Err)
		case outcome.Warning != nil:
			s.logger.Warn("メッセージの一部のみ保存されました", "userID", userID, "warning", outcome.Warning)
		}
		result.ConversationID = outcome.ConversationID
	}

	s.logger.Info("answer completed",
		"answerLength", len(answer),
		"sources", len(result.Sources),
		"persisted", result.ConversationID.IsPresent(),
	)

	// 8. 回答とソースを返す
	return result, nil
}

// persistConversation は会話を解決しメッセージペアを追加する
// 結果は返すだけで、エラーとして伝播させない
func (s *AskService) persistConversation(
	ctx context.Context,
	userID string,
	existingID mo.Option[uuid.UUID],
	userText, assistantText string,
) PersistOutcome {
	if s.conversations == nil {
		return PersistOutcome{ConversationID: existingID, Err: fmt.Errorf("conversation store is not configured")}
	}

	conversationID, err := s.conversations.GetOrCreateConversation(ctx, userID, existingID)
	if err != nil {
		return PersistOutcome{ConversationID: existingID, Err: fmt.Errorf("failed to resolve conversation: %w", err)}
	}

	outcome := PersistOutcome{ConversationID: mo.Some(conversationID)}
	pair, err := s.conversations.AppendMessagePair(ctx, conversationID, userText, assistantText)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to append messages: %w", err)
		return outcome
	}
	outcome.Warning = pair.Warning
	return outcome
}

func toSources(results []*knowledge.SearchResult) []SourceReference {
	sources := make([]SourceReference, 0, len(results))
	for _, r := range results {
		sources = append(sources, SourceReference{
			Title:      r.Title,
			URL:        r.URL,
			Similarity: r.Similarity,
		})
	}
	return sources
}
