package knowledge

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// DocumentStore は Document の永続化と類似検索を担う
type DocumentStore interface {
	// InsertDocument は Document を挿入し採番された ID を返す
	InsertDocument(ctx context.Context, doc NewDocument) (uuid.UUID, error)

	// SearchSimilar はコサイン類似度が threshold 以上の Document を降順で最大 limit 件返す
	SearchSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]*SearchResult, error)
}

// CrawlJobStore はクロールジョブの永続化を担う
type CrawlJobStore interface {
	// CreateCrawlJob は processing 状態のジョブを作成する
	CreateCrawlJob(ctx context.Context, url string, meta CrawlJobMetadata) (*CrawlJob, error)

	// UpdateCrawlJob は非終端状態のジョブにのみ更新を適用する
	UpdateCrawlJob(ctx context.Context, id uuid.UUID, update JobUpdate) error

	// GetCrawlJob は ID でジョブを取得する
	GetCrawlJob(ctx context.Context, id uuid.UUID) (*CrawlJob, error)
}

// ConversationStore は会話とメッセージの永続化を担う
type ConversationStore interface {
	// GetOrCreateConversation は existingID があればそのまま返し、無ければ新規作成する
	GetOrCreateConversation(ctx context.Context, userID string, existingID mo.Option[uuid.UUID]) (uuid.UUID, error)

	// AppendMessagePair はユーザー発話とアシスタント応答を続けて追加する
	AppendMessagePair(ctx context.Context, conversationID uuid.UUID, userText, assistantText string) (PairResult, error)

	// ListMessages は会話のメッセージを作成順に返す
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
}

// Store は全データアクセスを統合するインターフェース
type Store interface {
	DocumentStore
	CrawlJobStore
	ConversationStore

	Close()
}
