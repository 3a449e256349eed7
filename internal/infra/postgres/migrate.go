package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// RequiredTables はアプリケーションが前提とするテーブル
var RequiredTables = []string{"documents", "crawl_jobs", "conversations", "messages"}

// Schema は指定次元で展開したスキーマ DDL を返す
func Schema(dimension int) string {
	return strings.ReplaceAll(schemaSQL, "{{DIMENSION}}", strconv.Itoa(dimension))
}

// Migrate はスキーマを適用します（冪等）
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema(s.dimension)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// VerifyTables は必須テーブルのうち存在しないものを返します
func (s *Store) VerifyTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY($1)
	`

	rows, err := s.pool.Query(ctx, query, RequiredTables)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(RequiredTables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}

	var missing []string
	for _, t := range RequiredTables {
		if !found[t] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}
