package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"

	"github.com/jinford/faq-rag/internal/core/knowledge"
	"github.com/jinford/faq-rag/internal/platform/database"
)

const pgErrCodeForeignKeyViolation = "23503"

// Store は knowledge.Store を実装する PostgreSQL + pgvector のストアです
type Store struct {
	pool      *pgxpool.Pool
	tx        *database.TransactionProvider
	dimension int
}

// StoreOption は Store のオプション設定
type StoreOption func(*Store)

// WithDimension は Embedding 次元を上書きする
func WithDimension(dim int) StoreOption {
	return func(s *Store) {
		s.dimension = dim
	}
}

// NewStore は新しい Store を作成します
func NewStore(pool *pgxpool.Pool, opts ...StoreOption) *Store {
	s := &Store{
		pool:      pool,
		tx:        database.NewTransactionProvider(pool),
		dimension: knowledge.DefaultEmbeddingDimension,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// コンパイル時の型チェック
var _ knowledge.Store = (*Store)(nil)

// Close は接続プールを閉じます
func (s *Store) Close() {
	s.pool.Close()
}

// === Document ===

func (s *Store) InsertDocument(ctx context.Context, doc knowledge.NewDocument) (uuid.UUID, error) {
	if len(doc.Embedding) != s.dimension {
		return uuid.Nil, knowledge.StoreError("insert document",
			fmt.Errorf("%w: got %d, want %d", knowledge.ErrDimensionMismatch, len(doc.Embedding), s.dimension))
	}
	meta, err := MetadataToJSONB(doc.Metadata)
	if err != nil {
		return uuid.Nil, knowledge.StoreError("insert document", err)
	}

	query := `
		INSERT INTO documents (content, url, title, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id uuid.UUID
	err = s.pool.QueryRow(ctx, query,
		doc.Content,
		StringPtrToPgtext(doc.URL),
		StringPtrToPgtext(doc.Title),
		VectorFromFloat32(doc.Embedding),
		meta,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, knowledge.StoreError("insert document", fmt.Errorf("failed to insert document: %w", err))
	}

	return id, nil
}

func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]*knowledge.SearchResult, error) {
	if limit <= 0 {
		return []*knowledge.SearchResult{}, nil
	}
	if len(embedding) != s.dimension {
		return nil, knowledge.StoreError("search similar",
			fmt.Errorf("%w: got %d, want %d", knowledge.ErrDimensionMismatch, len(embedding), s.dimension))
	}

	query := `SELECT id, content, metadata, url, title, similarity FROM match_documents($1, $2, $3)`

	rows, err := s.pool.Query(ctx, query, VectorFromFloat32(embedding), threshold, limit)
	if err != nil {
		return nil, knowledge.StoreError("search similar", fmt.Errorf("failed to query match_documents: %w", err))
	}
	defer rows.Close()

	results := make([]*knowledge.SearchResult, 0, limit)
	for rows.Next() {
		var (
			r     knowledge.SearchResult
			meta  []byte
			url   pgtype.Text
			title pgtype.Text
		)
		if err := rows.Scan(&r.ID, &r.Content, &meta, &url, &title, &r.Similarity); err != nil {
			return nil, knowledge.StoreError("search similar", fmt.Errorf("failed to scan row: %w", err))
		}
		if r.Metadata, err = MetadataFromJSONB(meta); err != nil {
			return nil, knowledge.StoreError("search similar", err)
		}
		r.URL = PgtextToStringPtr(url)
		r.Title = PgtextToStringPtr(title)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, knowledge.StoreError("search similar", fmt.Errorf("failed to iterate rows: %w", err))
	}

	return results, nil
}

// === CrawlJob ===

const crawlJobColumns = `id, url, status, error, pages_crawled, metadata, created_at, updated_at`

func (s *Store) CreateCrawlJob(ctx context.Context, url string, meta knowledge.CrawlJobMetadata) (*knowledge.CrawlJob, error) {
	metaJSON, err := jobMetadataToJSONB(meta)
	if err != nil {
		return nil, knowledge.StoreError("create crawl job", err)
	}

	query := `
		INSERT INTO crawl_jobs (url, status, metadata)
		VALUES ($1, 'processing', $2)
		RETURNING ` + crawlJobColumns

	job, err := scanCrawlJob(s.pool.QueryRow(ctx, query, url, metaJSON))
	if err != nil {
		return nil, knowledge.StoreError("create crawl job", fmt.Errorf("failed to create crawl job: %w", err))
	}
	return job, nil
}

// UpdateCrawlJob は processing のジョブにのみ終端状態を書き込む
// 更新対象が無い場合は存在有無で ErrNotFound と ErrJobTerminal を区別する
func (s *Store) UpdateCrawlJob(ctx context.Context, id uuid.UUID, update knowledge.JobUpdate) error {
	if !update.Status.IsTerminal() {
		return knowledge.StoreError("update crawl job", fmt.Errorf("unsupported status update: %s", update.Status))
	}

	var (
		pages  *int
		errMsg *string
	)
	switch update.Status {
	case knowledge.JobStatusCompleted:
		pages = &update.PagesCrawled
	case knowledge.JobStatusFailed:
		errMsg = &update.Error
	}

	query := `
		UPDATE crawl_jobs
		SET status = $2,
			pages_crawled = COALESCE($3, pages_crawled),
			error = COALESCE($4, error),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'processing'
	`

	tag, err := s.pool.Exec(ctx, query, id, string(update.Status), pages, errMsg)
	if err != nil {
		return knowledge.StoreError("update crawl job", fmt.Errorf("failed to update crawl job: %w", err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var status string
	err = s.pool.QueryRow(ctx, `SELECT status FROM crawl_jobs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return knowledge.StoreError("update crawl job", fmt.Errorf("crawl job %s: %w", id, knowledge.ErrNotFound))
	}
	if err != nil {
		return knowledge.StoreError("update crawl job", fmt.Errorf("failed to get crawl job status: %w", err))
	}
	return knowledge.StoreError("update crawl job", fmt.Errorf("crawl job %s is %s: %w", id, status, knowledge.ErrJobTerminal))
}

func (s *Store) GetCrawlJob(ctx context.Context, id uuid.UUID) (*knowledge.CrawlJob, error) {
	query := `SELECT ` + crawlJobColumns + ` FROM crawl_jobs WHERE id = $1`

	job, err := scanCrawlJob(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, knowledge.StoreError("get crawl job", fmt.Errorf("crawl job %s: %w", id, knowledge.ErrNotFound))
	}
	if err != nil {
		return nil, knowledge.StoreError("get crawl job", fmt.Errorf("failed to get crawl job: %w", err))
	}
	return job, nil
}

func scanCrawlJob(row pgx.Row) (*knowledge.CrawlJob, error) {
	var (
		job     knowledge.CrawlJob
		status  string
		errText pgtype.Text
		meta    []byte
	)
	if err := row.Scan(&job.ID, &job.URL, &status, &errText, &job.PagesCrawled, &meta, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = knowledge.JobStatus(status)
	job.Error = PgtextToStringPtr(errText)
	if err := unmarshalJobMetadata(meta, &job.Metadata); err != nil {
		return nil, err
	}
	return &job, nil
}

// === Conversation ===

func (s *Store) GetOrCreateConversation(ctx context.Context, userID string, existingID mo.Option[uuid.UUID]) (uuid.UUID, error) {
	if id, ok := existingID.Get(); ok {
		return id, nil
	}

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `INSERT INTO conversations (user_id) VALUES ($1) RETURNING id`, userID).Scan(&id)
	if err != nil {
		return uuid.Nil, knowledge.StoreError("create conversation", fmt.Errorf("failed to create conversation: %w", err))
	}
	return id, nil
}

// AppendMessagePair はユーザー発話とアシスタント応答を1トランザクションで追加します
// created_at は clock_timestamp() のためユーザー発話が必ず先に並ぶ
func (s *Store) AppendMessagePair(ctx context.Context, conversationID uuid.UUID, userText, assistantText string) (knowledge.PairResult, error) {
	result, err := database.Transact(ctx, s.tx, func(q database.DBTX) (knowledge.PairResult, error) {
		var pair knowledge.PairResult

		userID, err := insertMessage(ctx, q, conversationID, knowledge.RoleUser, userText)
		if err != nil {
			return pair, err
		}
		pair.UserMessageID = userID

		assistantID, err := insertMessage(ctx, q, conversationID, knowledge.RoleAssistant, assistantText)
		if err != nil {
			return pair, err
		}
		pair.AssistantMessageID = assistantID

		if _, err := q.Exec(ctx, `UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = $1`, conversationID); err != nil {
			return pair, fmt.Errorf("failed to touch conversation: %w", err)
		}
		return pair, nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			err = fmt.Errorf("conversation %s: %w", conversationID, knowledge.ErrNotFound)
		}
		return knowledge.PairResult{}, knowledge.StoreError("append messages", err)
	}
	return result, nil
}

func insertMessage(ctx context.Context, q database.DBTX, conversationID uuid.UUID, role knowledge.Role, content string) (uuid.UUID, error) {
	query := `
		INSERT INTO messages (conversation_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id uuid.UUID
	if err := q.QueryRow(ctx, query, conversationID, string(role), content).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert %s message: %w", role, err)
	}
	return id, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*knowledge.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`

	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, knowledge.StoreError("list messages", fmt.Errorf("failed to list messages: %w", err))
	}
	defer rows.Close()

	var messages []*knowledge.Message
	for rows.Next() {
		var (
			m    knowledge.Message
			role string
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &meta, &m.CreatedAt); err != nil {
			return nil, knowledge.StoreError("list messages", fmt.Errorf("failed to scan message: %w", err))
		}
		m.Role = knowledge.Role(role)
		if m.Metadata, err = MetadataFromJSONB(meta); err != nil {
			return nil, knowledge.StoreError("list messages", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, knowledge.StoreError("list messages", fmt.Errorf("failed to iterate messages: %w", err))
	}

	return messages, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrCodeForeignKeyViolation
	}
	return false
}
