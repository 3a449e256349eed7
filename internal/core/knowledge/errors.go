package knowledge

import (
	"errors"
	"fmt"
)

// Kind は外部に公開するエラー分類
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindFetch             Kind = "FetchError"
	KindEmptyContent      Kind = "EmptyContentError"
	KindEmbeddingService  Kind = "EmbeddingServiceError"
	KindCompletionService Kind = "CompletionServiceError"
	KindStore             Kind = "StoreError"
	KindInternal          Kind = "InternalError"
)

var (
	// ErrJobTerminal は終端状態のジョブを更新しようとした場合のエラー
	ErrJobTerminal = errors.New("crawl job is already in a terminal state")

	// ErrNotFound は対象レコードが存在しない場合のエラー
	ErrNotFound = errors.New("record not found")

	// ErrDimensionMismatch は Embedding 次元が一致しない場合のエラー
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Error は分類付きのエラー
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is は同じ Kind の *Error と一致させる
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

// KindOf は err の分類を返す。分類が無い場合は KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind は err が指定の分類かどうかを返す
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage は利用者向けのメッセージを返す
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

func newError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func ValidationError(op, message string) error {
	return newError(KindValidation, op, message, nil)
}

func FetchError(op, message string, err error) error {
	return newError(KindFetch, op, message, err)
}

func EmptyContentError(op, message string) error {
	return newError(KindEmptyContent, op, message, nil)
}

func EmbeddingServiceError(op string, err error) error {
	return newError(KindEmbeddingService, op, "embedding service failed", err)
}

func CompletionServiceError(op string, err error) error {
	return newError(KindCompletionService, op, "completion service failed", err)
}

func StoreError(op string, err error) error {
	return newError(KindStore, op, "", err)
}
