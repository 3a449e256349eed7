package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StoreBackend はベクトルストアの実装種別
type StoreBackend string

const (
	StoreBackendPostgres StoreBackend = "postgres"
	StoreBackendMemory   StoreBackend = "memory"
)

// ErrAPIKeyNotSet は OpenAI の API キーが無い場合のエラー
var ErrAPIKeyNotSet = errors.New("OPENAI_API_KEY is not set")

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + Chat）
	OpenAI OpenAIConfig

	// 回答生成設定
	Chat ChatConfig

	// クロール設定
	Crawl CrawlConfig

	// HTTPサーバー設定
	Server ServerConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	URL      string // DATABASE_URL。指定時は個別設定より優先
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
	Timeout            time.Duration
}

// ChatConfig は検索と生成のパラメータ
type ChatConfig struct {
	Temperature    float64
	MaxTokens      int
	MatchThreshold float64
	MatchCount     int
}

// CrawlConfig はページ取得とEmbedding入力の設定
type CrawlConfig struct {
	Timeout           time.Duration
	UserAgent         string
	MaxBodyBytes      int64
	MaxEmbeddingChars int
}

// ServerConfig はHTTPサーバー設定
type ServerConfig struct {
	Port            int
	Store           StoreBackend
	ShutdownTimeout time.Duration
}

// LogConfig はロガー設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "faqrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "faqrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
			Timeout:            getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
		},
		Chat: ChatConfig{
			Temperature:    getEnvAsFloat("CHAT_TEMPERATURE", 0.7),
			MaxTokens:      getEnvAsInt("CHAT_MAX_TOKENS", 500),
			MatchThreshold: getEnvAsFloat("CHAT_MATCH_THRESHOLD", 0.5),
			MatchCount:     getEnvAsInt("CHAT_MATCH_COUNT", 5),
		},
		Crawl: CrawlConfig{
			Timeout:           getEnvAsDuration("CRAWL_TIMEOUT", 30*time.Second),
			UserAgent:         getEnv("CRAWL_USER_AGENT", "faq-rag-crawler/1.0"),
			MaxBodyBytes:      int64(getEnvAsInt("CRAWL_MAX_BODY_BYTES", 10<<20)),
			MaxEmbeddingChars: getEnvAsInt("EMBEDDING_MAX_CHARS", 8000),
		},
		Server: ServerConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8080),
			Store:           StoreBackend(strings.ToLower(getEnv("STORE_BACKEND", string(StoreBackendPostgres)))),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate は起動に必要な設定が揃っているかを検証します
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAI.APIKey == "" {
		errs = append(errs, ErrAPIKeyNotSet)
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_EMBEDDING_DIMENSION must be positive: %d", c.OpenAI.EmbeddingDimension))
	}
	if c.Chat.MatchThreshold < -1 || c.Chat.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("CHAT_MATCH_THRESHOLD must be within [-1, 1]: %v", c.Chat.MatchThreshold))
	}
	if c.Chat.MatchCount <= 0 {
		errs = append(errs, fmt.Errorf("CHAT_MATCH_COUNT must be positive: %d", c.Chat.MatchCount))
	}
	switch c.Server.Store {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be postgres or memory: %q", c.Server.Store))
	}
	return errors.Join(errs...)
}

// SlogLevel は LOG_LEVEL を slog.Level に変換します
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
