package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	PostgresDSN string

	NATSURL           string
	NATSSubject       string
	NATSEventsSubject string

	IndexRoot   string
	StoragePath string

	ChunkSize         int
	ChunkOverlap      int
	RAGTopK           int
	IngestMode        string
	IngestAsync       bool
	DefaultCategories []string

	EmbeddingProvider string
	OllamaEmbedModel  string
	OllamaEmbedHost   string

	GoogleAPIKey       string
	GeminiBaseURL      string
	GeminiDefaultModel string
	GeminiModels       []string
	GeminiEmbedModel   string

	Containerized      string
	OllamaCheckTimeout time.Duration
	GenerationTimeout  time.Duration

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWait   time.Duration
	APIMaxUploadBytes     int64
	WorkerMetricsPort     string
	ResilienceBreakerOpen time.Duration
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		// Empty DSN keeps the interaction log in the structured log only.
		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:           mustEnv("NATS_URL", ""),
		NATSSubject:       mustEnv("NATS_SUBJECT", "legal.ingest"),
		NATSEventsSubject: mustEnv("NATS_EVENTS_SUBJECT", "legal.index.events"),

		IndexRoot:   mustEnv("INDEX_ROOT", "./data/indexes"),
		StoragePath: mustEnv("STORAGE_PATH", "./data/uploads"),

		ChunkSize:         mustEnvInt("CHUNK_SIZE", 10000),
		ChunkOverlap:      mustEnvInt("CHUNK_OVERLAP", 3000),
		RAGTopK:           mustEnvInt("RAG_TOP_K", 4),
		IngestMode:        mustEnv("INGEST_MODE", "append"),
		IngestAsync:       mustEnvBool("INGEST_ASYNC", false),
		DefaultCategories: mustEnvList("DEFAULT_CATEGORIES", []string{"Laws", "Case"}),

		EmbeddingProvider: strings.ToLower(mustEnv("EMBEDDING_PROVIDER", "gemini")),
		OllamaEmbedModel:  mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaEmbedHost:   mustEnv("OLLAMA_EMBED_HOST", ""),

		GoogleAPIKey:       mustEnv("GOOGLE_API_KEY", ""),
		GeminiBaseURL:      mustEnv("GEMINI_BASE_URL", ""),
		GeminiDefaultModel: mustEnv("GEMINI_DEFAULT_MODEL", "gemini-2.0-flash"),
		GeminiModels:       mustEnvList("GEMINI_MODELS", nil),
		GeminiEmbedModel:   mustEnv("GEMINI_EMBED_MODEL", "embedding-001"),

		Containerized:      mustEnv("CONTAINERIZED", ""),
		OllamaCheckTimeout: mustEnvDuration("OLLAMA_CHECK_TIMEOUT", 3*time.Second),
		GenerationTimeout:  mustEnvDuration("GENERATION_TIMEOUT", 120*time.Second),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 32),
		APIBackpressureWait:   mustEnvDuration("API_BACKPRESSURE_WAIT", 250*time.Millisecond),
		APIMaxUploadBytes:     int64(mustEnvInt("API_MAX_UPLOAD_MB", 64)) << 20,
		WorkerMetricsPort:     mustEnv("WORKER_METRICS_PORT", "9090"),
		ResilienceBreakerOpen: mustEnvDuration("RESILIENCE_BREAKER_OPEN_TIMEOUT", 30*time.Second),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// mustEnvList reads a comma-separated list, dropping empty items.
func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
