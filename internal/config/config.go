// internal/config/config.go

// Package config 由 .env 與環境變數組出服務設定。
// .env 不存在時（例如正式環境）僅記錄警告，改以系統環境變數為準。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DefaultCompletionDelay 為 COMPLETION_DELAY 未設定時的延遲完成時間。
const DefaultCompletionDelay = 2 * time.Second

// Config 為服務啟動所需的全部設定。
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	StorageBackend  string
	DataFile        string
	CompletionDelay time.Duration

	RabbitMQURL      string
	RabbitMQExchange string
}

// Load 讀取 .env（若存在）後組出 Config。
// COMPLETION_DELAY 必須是 Go duration 格式（例如 "2s"、"500ms"）。
func Load(log *zap.Logger, files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && log != nil {
		log.Warn("no .env file found, relying on system environment variables")
	}

	delay := DefaultCompletionDelay
	if raw := getEnv("COMPLETION_DELAY", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("COMPLETION_DELAY: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("COMPLETION_DELAY must not be negative, got %s", d)
		}
		delay = d
	}

	backend := strings.ToLower(getEnv("STORAGE_BACKEND", "json"))
	return &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", ""),
		StorageBackend:   backend,
		DataFile:         getEnv("DATA_FILE", defaultDataFile(backend)),
		CompletionDelay:  delay,
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "ledger.activity"),
	}, nil
}

// Addr 回傳 HTTP 監聽位址。
func (c *Config) Addr() string {
	return ":" + c.Port
}

func defaultDataFile(backend string) string {
	if backend == "bolt" {
		return "data.db"
	}
	return "data.json"
}

// getEnv 讀取環境變數，未設定時回傳 fallback。
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
