package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process configuration, loaded from environment variables
// with an optional .env file.
type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Provider credentials. A missing key disables the provider; the
	// affected operations fail with an explanatory error instead of the
	// process refusing to start.
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Generation / OCR model defaults.
	GeminiVisionModel string

	// Document store capacity budgets.
	MaxDocumentBytes int64
	TotalBytesBudget int64

	// Chunking defaults applied when a request omits them.
	DefaultChunkSize     int
	DefaultChunkOverlap  int
	DefaultChunkStrategy string
	DefaultMinChunkSize  int

	// Embedding batch loop tuning.
	EmbedBatchSize     int
	EmbedMaxAttempts   int
	EmbedBackoffBase   time.Duration
	EmbedBatchInterval time.Duration

	// Tracing.
	TracingEnabled bool
	OTLPEndpoint   string
}

// LoadConfig reads configuration from the environment, loading .env first
// when present.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.0-flash"),

		MaxDocumentBytes: getEnvInt64("MAX_DOCUMENT_BYTES", 10<<20),
		TotalBytesBudget: getEnvInt64("TOTAL_BYTES_BUDGET", 50<<20),

		DefaultChunkSize:     getEnvInt("DEFAULT_CHUNK_SIZE", 500),
		DefaultChunkOverlap:  getEnvInt("DEFAULT_CHUNK_OVERLAP", 50),
		DefaultChunkStrategy: getEnv("DEFAULT_CHUNK_STRATEGY", "sentence"),
		DefaultMinChunkSize:  getEnvInt("DEFAULT_MIN_CHUNK_SIZE", 100),

		EmbedBatchSize:     getEnvInt("EMBED_BATCH_SIZE", 10),
		EmbedMaxAttempts:   getEnvInt("EMBED_MAX_ATTEMPTS", 3),
		EmbedBackoffBase:   getEnvDuration("EMBED_BACKOFF_BASE", 500*time.Millisecond),
		EmbedBatchInterval: getEnvDuration("EMBED_BATCH_INTERVAL", 200*time.Millisecond),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.MaxDocumentBytes <= 0 || cfg.TotalBytesBudget <= 0 {
		return nil, fmt.Errorf("capacity budgets must be positive")
	}
	if cfg.MaxDocumentBytes > cfg.TotalBytesBudget {
		return nil, fmt.Errorf("MAX_DOCUMENT_BYTES (%d) must not exceed TOTAL_BYTES_BUDGET (%d)",
			cfg.MaxDocumentBytes, cfg.TotalBytesBudget)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
