package knowledge

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultEmbeddingDimension はシステム全体で固定の Embedding 次元
	DefaultEmbeddingDimension = 1536

	// DefaultMatchThreshold は類似検索のデフォルト閾値
	DefaultMatchThreshold = 0.5

	// DefaultMatchCount は類似検索のデフォルト取得件数
	DefaultMatchCount = 5
)

// Document はインデックス済みの知識単位を表す
// 挿入後は変更されない
type Document struct {
	ID        uuid.UUID      `json:"id"`
	Content   string         `json:"content"`
	URL       *string        `json:"url,omitempty"`
	Title     *string        `json:"title,omitempty"`
	Embedding []float32      `json:"-"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewDocument は挿入用の Document を組み立てる
type NewDocument struct {
	Content   string
	URL       *string
	Title     *string
	Embedding []float32
	Metadata  map[string]any
}

// JobStatus はクロールジョブの状態
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal は終端状態かどうかを返す
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsValid は既知の状態かどうかを返す
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo は next への遷移が許可されているかを返す
// pending → processing → {completed | failed} の一方向のみ
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// CrawlJobMetadata はクロール要求時のパラメータ
type CrawlJobMetadata struct {
	MaxPages int     `json:"maxPages"`
	Selector *string `json:"selector,omitempty"`
}

// CrawlJob は1回の取り込み試行を追跡する
type CrawlJob struct {
	ID           uuid.UUID        `json:"id"`
	URL          string           `json:"url"`
	Status       JobStatus        `json:"status"`
	Error        *string          `json:"error,omitempty"`
	PagesCrawled int              `json:"pagesCrawled"`
	Metadata     CrawlJobMetadata `json:"metadata"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// JobUpdate はジョブへの状態変更を表す
// Completed か Failed のどちらか一方でのみ生成する
type JobUpdate struct {
	Status       JobStatus
	PagesCrawled int
	Error        string
}

// Completed は完了への更新を返す
func Completed(pagesCrawled int) JobUpdate {
	return JobUpdate{Status: JobStatusCompleted, PagesCrawled: pagesCrawled}
}

// Failed は失敗への更新を返す
func Failed(message string) JobUpdate {
	return JobUpdate{Status: JobStatusFailed, Error: message}
}

// Apply は更新をジョブに適用する
func (u JobUpdate) Apply(job *CrawlJob, now time.Time) error {
	if !job.Status.CanTransitionTo(u.Status) {
		return ErrJobTerminal
	}
	job.Status = u.Status
	switch u.Status {
	case JobStatusCompleted:
		job.PagesCrawled = u.PagesCrawled
	case JobStatusFailed:
		msg := u.Error
		job.Error = &msg
	}
	job.UpdatedAt = now
	return nil
}

// Role はメッセージの発話者
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Conversation はユーザーセッション単位でメッセージをまとめる
type Conversation struct {
	ID        uuid.UUID      `json:"id"`
	UserID    string         `json:"userId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Message は会話の1ターン
type Message struct {
	ID             uuid.UUID      `json:"id"`
	ConversationID uuid.UUID      `json:"conversationId"`
	Role           Role           `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// SearchResult は類似検索の結果（永続化されない）
type SearchResult struct {
	ID         uuid.UUID      `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	URL        *string        `json:"url,omitempty"`
	Title      *string        `json:"title,omitempty"`
	Similarity float64        `json:"similarity"`
}

// PairResult は AppendMessagePair の書き込み結果
// 片方だけ書き込まれた場合は Warning に理由が入る
type PairResult struct {
	UserMessageID      uuid.UUID
	AssistantMessageID uuid.UUID
	Warning            error
}

// Partial は片方のみ書き込まれたかを返す
func (r PairResult) Partial() bool {
	return r.Warning != nil
}
