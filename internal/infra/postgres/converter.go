package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

// StringPtrToPgtext converts *string to pgtype.Text
func StringPtrToPgtext(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// PgtextToStringPtr converts pgtype.Text to *string
func PgtextToStringPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

// VectorFromFloat32 converts []float32 to pgvector.Vector
func VectorFromFloat32(v []float32) pgvector.Vector {
	return pgvector.NewVector(v)
}

// MetadataToJSONB converts map[string]any to []byte (JSONB)
// nil は空オブジェクトとして保存する
func MetadataToJSONB(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return b, nil
}

// MetadataFromJSONB converts []byte (JSONB) to map[string]any
func MetadataFromJSONB(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return m, nil
}

func unmarshalJobMetadata(b []byte, meta *knowledge.CrawlJobMetadata) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, meta); err != nil {
		return fmt.Errorf("failed to unmarshal crawl job metadata: %w", err)
	}
	return nil
}

func jobMetadataToJSONB(meta knowledge.CrawlJobMetadata) ([]byte, error) {
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal crawl job metadata: %w", err)
	}
	return b, nil
}
