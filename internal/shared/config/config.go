package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"profile-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port              string
	CORSAllowOrigin   []string
	ObjectStoreType   string `validate:"oneof=local s3"`
	LocalStoreDir     string `validate:"required_if=ObjectStoreType local"`
	AWSRegion         string
	S3Bucket          string `validate:"required_if=ObjectStoreType s3"`
	S3Prefix          string
	SSEKMSKeyID       string
	LLMProvider       string `validate:"oneof=openai gemini none"`
	LLMModel          string `validate:"required_unless=LLMProvider none"`
	LLMBaseURL        string `validate:"omitempty,url"`
	LLMAPIKey         string
	LLMTimeoutSeconds int `validate:"gte=0"`
	LLMMaxTokens      int `validate:"gte=0"`
	PromptVersion     string
	MergeDedupe       bool
	IngestConcurrency int `validate:"gte=1"`
	QueueURL          string
	QueueVisibility   int `validate:"gte=0"`
	WorkerConcurrency int `validate:"gte=1"`
	ShutdownTimeout   int `validate:"gte=0"`
	DatabaseURL       string
	JWTSecret         string
	Env               string `validate:"oneof=dev local staging production"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	provider := normalizeProvider(getEnv("LLM_PROVIDER", "openai"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:              getEnv("PORT", "8080"),
		CORSAllowOrigin:   splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		ObjectStoreType:   normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:     getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:         getEnv("AWS_REGION", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:       getEnv("SSE_KMS_KEY_ID", ""),
		LLMProvider:       provider,
		LLMModel:          getEnv("LLM_MODEL", defaultModel(provider)),
		LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:         firstEnv("LLM_API_KEY", "OPENAI_API_KEY", "GITHUB_TOKEN", "GEMINI_API_KEY"),
		LLMTimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		LLMMaxTokens:      getEnvInt("LLM_MAX_TOKENS", 0),
		PromptVersion:     getEnv("PROMPT_VERSION", ""),
		MergeDedupe:       getEnvBool("MERGE_DEDUPE", false),
		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 1),
		QueueURL:          getEnv("QUEUE_URL", ""),
		QueueVisibility:   getEnvInt("QUEUE_VISIBILITY_TIMEOUT_SECONDS", 600),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		ShutdownTimeout:   getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 30),
		DatabaseURL:       dbURL,
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
		Env:               env,
	}
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := strings.TrimSpace(os.Getenv(k)); val != "" {
			return val
		}
	}
	return ""
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "error": err.Error()})
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		telemetry.Warn("config.invalid_bool", map[string]any{"key": key, "error": err.Error()})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "none":
		return ""
	default:
		return "openai/gpt-4o-mini"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return "gemini"
	case "none", "off", "disabled":
		return "none"
	default:
		return "openai"
	}
}
