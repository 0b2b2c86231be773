package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the sqlsage engine.
type Config struct {
	Port      int
	Version   string
	Database  DatabaseConfig
	Model     ModelConfig
	Engine    EngineConfig
	Telemetry TelemetryConfig
}

type DatabaseConfig struct {
	// URL is the Postgres connection string. Empty means no store is
	// configured; data queries will fail with ErrStoreNotConfigured.
	URL string
	// CatalogTTL bounds how long a fetched schema snapshot is reused.
	CatalogTTL time.Duration
}

type ModelConfig struct {
	// Provider is one of: openai, anthropic, ollama.
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

type EngineConfig struct {
	// MaxIterations bounds the generate→execute→evaluate refinement loop.
	MaxIterations int
	// RowLimit is appended to generated statements that lack a limiting clause.
	RowLimit int
	// OptimisticClassification makes a failed Understanding stage default to
	// "requires data, no chart" instead of aborting the query.
	OptimisticClassification bool
	// OptimisticEvaluation makes a failed Evaluate stage default to
	// "satisfied" so an unparseable judgment cannot loop unproductively.
	OptimisticEvaluation bool
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("SQLSAGE_PORT", 8080),
		Version: envStr("SQLSAGE_VERSION", "0.1.0"),
		Database: DatabaseConfig{
			URL:        envStr("DATABASE_URL", ""),
			CatalogTTL: envDuration("SQLSAGE_CATALOG_TTL", 5*time.Minute),
		},
		Model: ModelConfig{
			Provider:    envStr("SQLSAGE_MODEL_PROVIDER", "openai"),
			Model:       envStr("SQLSAGE_MODEL", "gpt-4o-mini"),
			APIKey:      envStr("SQLSAGE_MODEL_API_KEY", ""),
			BaseURL:     envStr("SQLSAGE_MODEL_BASE_URL", ""),
			Temperature: envFloat("SQLSAGE_MODEL_TEMPERATURE", 0.2),
			MaxTokens:   envInt("SQLSAGE_MODEL_MAX_TOKENS", 2048),
		},
		Engine: EngineConfig{
			MaxIterations:            envInt("SQLSAGE_MAX_ITERATIONS", 3),
			RowLimit:                 envInt("SQLSAGE_ROW_LIMIT", 1000),
			OptimisticClassification: envBool("SQLSAGE_OPTIMISTIC_CLASSIFICATION", true),
			OptimisticEvaluation:     envBool("SQLSAGE_OPTIMISTIC_EVALUATION", true),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "sqlsage"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
