package ask

import (
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// AnswerParams は質問応答のパラメータを表す
type AnswerParams struct {
	Message        string               // ユーザーの質問文
	ConversationID mo.Option[uuid.UUID] // 既存の会話ID
	UserID         mo.Option[string]    // 指定時のみ会話を永続化する
}

// AnswerResult は質問応答の結果を表す
type AnswerResult struct {
	Message        string               // LLMによる回答
	ConversationID mo.Option[uuid.UUID] // 永続化した会話ID
	Sources        []SourceReference    // 参照したソース情報（類似度降順）
}

// SourceReference は回答の根拠となったソース参照を表す
type SourceReference struct {
	Title      *string `json:"title"`
	URL        *string `json:"url"`
	Similarity float64 `json:"similarity"`
}

// CompletionRequest は LLM への生成リクエスト
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// PersistOutcome は会話永続化の結果
// 失敗してもエラーとして伝播させず、呼び出し元でログに残す
type PersistOutcome struct {
	ConversationID mo.Option[uuid.UUID]
	Err            error // 会話の解決またはメッセージ書き込みの失敗
	Warning        error // 片方のメッセージのみ書き込まれた場合
}

// OK は永続化が完全に成功したかを返す
func (o PersistOutcome) OK() bool {
	return o.Err == nil && o.Warning == nil
}
