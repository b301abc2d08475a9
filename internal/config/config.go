// Package config provides configuration for the FinGenie server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/xiaot623/fingenie/internal/domain"
)

const (
	// ModeMock selects scripted LLM replies and a hashing embedder.
	ModeMock = "MOCK"

	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOllama     = "ollama"
	ProviderCompatible = "compatible"

	defaultOpenAIURL = "https://api.openai.com/v1"
	defaultOllamaURL = "http://localhost:11434"
)

// Config holds the FinGenie configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Mode is MOCK or empty.
	Mode string

	// LLM
	LLMProvider   string
	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeout    time.Duration
	LLMMaxRetries int
	// LLMTemperature overrides every agent's sampling temperature. Negative
	// keeps the per-agent defaults.
	LLMTemperature float64

	// Embeddings
	EmbedderProvider  string
	EmbedderBaseURL   string
	EmbedderAPIKey    string
	EmbedderModel     string
	EmbedderDimension int
	EmbedderCacheSize int

	// Vector store
	VectorProvider   string
	VectorPath       string
	VectorDSN        string
	VectorCollection string

	// Retrieval
	RetrievalTopK      int
	RetrievalContains  string
	RetrievalMaxTokens int

	// Macro search
	SearchBaseURL    string
	SearchMaxResults int
	MacroQuery       string

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Human input / approvals
	PollInterval    time.Duration
	ApprovalTimeout time.Duration
	AutoApprove     bool

	// Logging
	LogLevel string
	LogJSON  bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment values win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 8000),
		DatabaseURL:        getEnv("DATABASE_URL", "file:fingenie.db?cache=shared&mode=rwc"),
		Mode:               strings.ToUpper(getEnv("FINGENIE_MODE", "")),
		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:         getEnv("LLM_BASE_URL", defaultOpenAIURL),
		LLMAPIKey:          getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o"),
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		LLMMaxRetries:      getEnvInt("LLM_MAX_RETRIES", 2),
		LLMTemperature:     getEnvFloat("LLM_TEMPERATURE", -1),
		EmbedderProvider:   strings.ToLower(getEnv("EMBEDDER_PROVIDER", ProviderOpenAI)),
		EmbedderModel:      getEnv("EMBEDDER_MODEL", "text-embedding-3-small"),
		EmbedderDimension:  getEnvInt("EMBEDDER_DIMENSION", 1536),
		EmbedderCacheSize:  getEnvInt("EMBEDDER_CACHE_SIZE", 512),
		VectorProvider:     strings.ToLower(getEnv("VECTOR_PROVIDER", "filesystem")),
		VectorPath:         getEnv("VECTOR_PATH", "data/products.json"),
		VectorDSN:          getEnv("VECTOR_DSN", ""),
		VectorCollection:   getEnv("VECTOR_COLLECTION", "barclays_uk_products"),
		RetrievalTopK:      getEnvInt("RETRIEVAL_TOP_K", 10),
		RetrievalContains:  getEnv("RETRIEVAL_CONTAINS", ""),
		RetrievalMaxTokens: getEnvInt("RETRIEVAL_MAX_TOKENS", 0),
		SearchBaseURL:      getEnv("SEARCH_BASE_URL", "https://html.duckduckgo.com/html/"),
		SearchMaxResults:   getEnvInt("SEARCH_MAX_RESULTS", 3),
		MacroQuery:         getEnv("MACRO_QUERY", "UK macroeconomic outlook Bank of England base rate inflation GDP"),
		PingInterval:       time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:       time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:        time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 600000)) * time.Millisecond,
		MaxMessageSize:     int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		PollInterval:       time.Duration(getEnvInt("POLL_INTERVAL_MS", 100)) * time.Millisecond,
		ApprovalTimeout:    time.Duration(getEnvInt("APPROVAL_TIMEOUT_MS", 600000)) * time.Millisecond,
		AutoApprove:        getEnvBool("AUTO_APPROVE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogJSON:            getEnvBool("LOG_JSON", false),
	}

	// The embedder borrows the LLM endpoint and key only when both talk to
	// the same kind of API; an anthropic key never reaches openai.
	embedKey, embedURL := os.Getenv("OPENAI_API_KEY"), defaultOpenAIURL
	if cfg.EmbedderProvider == ProviderOllama {
		embedKey, embedURL = "", defaultOllamaURL
	}
	if sameAPI(cfg.LLMProvider, cfg.EmbedderProvider) {
		embedKey, embedURL = cfg.LLMAPIKey, cfg.LLMBaseURL
	}
	cfg.EmbedderAPIKey = getEnv("EMBEDDER_API_KEY", embedKey)
	cfg.EmbedderBaseURL = getEnv("EMBEDDER_BASE_URL", embedURL)
	return cfg
}

func sameAPI(llmProvider, embedderProvider string) bool {
	openaiLike := func(p string) bool { return p == ProviderOpenAI || p == ProviderCompatible }
	if openaiLike(llmProvider) && openaiLike(embedderProvider) {
		return true
	}
	return llmProvider == ProviderOllama && embedderProvider == ProviderOllama
}

// IsMock reports whether external model calls are replaced by scripted replies.
func (c *Config) IsMock() bool {
	return c.Mode == ModeMock
}

// Validate fails fast on settings a conversation cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if !c.IsMock() {
		switch c.LLMProvider {
		case ProviderOpenAI, ProviderAnthropic, ProviderCompatible:
			if c.LLMAPIKey == "" {
				errs = append(errs, fmt.Errorf("%w: LLM_API_KEY is required for provider %q", domain.ErrMissingConfig, c.LLMProvider))
			}
		case ProviderOllama:
		default:
			errs = append(errs, fmt.Errorf("%w: unsupported LLM_PROVIDER %q", domain.ErrMissingConfig, c.LLMProvider))
		}
		if c.LLMModel == "" {
			errs = append(errs, fmt.Errorf("%w: LLM_MODEL is required", domain.ErrMissingConfig))
		}
		switch c.EmbedderProvider {
		case ProviderOpenAI, ProviderCompatible:
			if c.EmbedderAPIKey == "" {
				errs = append(errs, fmt.Errorf("%w: EMBEDDER_API_KEY is required for embedder %q", domain.ErrMissingConfig, c.EmbedderProvider))
			}
		case ProviderOllama, "hash":
		default:
			errs = append(errs, fmt.Errorf("%w: unsupported EMBEDDER_PROVIDER %q", domain.ErrMissingConfig, c.EmbedderProvider))
		}
	}
	switch c.VectorProvider {
	case "filesystem":
		if c.VectorPath == "" {
			errs = append(errs, fmt.Errorf("%w: VECTOR_PATH is required for the filesystem store", domain.ErrMissingConfig))
		}
	case "pgvector", "redis":
		if c.VectorDSN == "" {
			errs = append(errs, fmt.Errorf("%w: VECTOR_DSN is required for the %s store", domain.ErrMissingConfig, c.VectorProvider))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unsupported VECTOR_PROVIDER %q", domain.ErrMissingConfig, c.VectorProvider))
	}
	if c.EmbedderDimension <= 0 {
		errs = append(errs, fmt.Errorf("%w: EMBEDDER_DIMENSION must be positive", domain.ErrMissingConfig))
	}
	if c.RetrievalTopK <= 0 {
		errs = append(errs, fmt.Errorf("%w: RETRIEVAL_TOP_K must be positive", domain.ErrMissingConfig))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
