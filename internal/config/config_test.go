package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/fingenie/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Load()

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 10, cfg.RetrievalTopK)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "filesystem", cfg.VectorProvider)
	assert.False(t, cfg.IsMock())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FINGENIE_MODE", "mock")
	t.Setenv("RETRIEVAL_TOP_K", "2")
	t.Setenv("POLL_INTERVAL_MS", "25")
	t.Setenv("AUTO_APPROVE", "true")
	t.Setenv("RETRIEVAL_MAX_TOKENS", "not-a-number")
	cfg := Load()

	assert.True(t, cfg.IsMock())
	assert.Equal(t, 2, cfg.RetrievalTopK)
	assert.Equal(t, 25*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.AutoApprove)
	assert.Equal(t, 0, cfg.RetrievalMaxTokens)
}

func TestValidateFailsFastOnMissingKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("FINGENIE_MODE", "")
	cfg := Load()

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingConfig)
	assert.Contains(t, err.Error(), "LLM_API_KEY")

	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "sk-ant-test")
	t.Setenv("EMBEDDER_API_KEY", "")
	t.Setenv("EMBEDDER_BASE_URL", "")
	cfg = Load()
	assert.Empty(t, cfg.EmbedderAPIKey, "anthropic key must not be reused for openai embeddings")
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbedderBaseURL)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingConfig)
	assert.Contains(t, err.Error(), "EMBEDDER_API_KEY")
	assert.NotContains(t, err.Error(), "LLM_API_KEY")

	t.Setenv("EMBEDDER_API_KEY", "sk-embed")
	cfg = Load()
	assert.Equal(t, "sk-embed", cfg.EmbedderAPIKey)
	assert.NoError(t, cfg.Validate())
}

func TestEmbedderSharesOpenAICredentials(t *testing.T) {
	t.Setenv("FINGENIE_MODE", "")
	t.Setenv("LLM_PROVIDER", "compatible")
	t.Setenv("LLM_API_KEY", "sk-shared")
	t.Setenv("LLM_BASE_URL", "http://llm.internal/v1")
	t.Setenv("EMBEDDER_PROVIDER", "openai")
	t.Setenv("EMBEDDER_API_KEY", "")
	t.Setenv("EMBEDDER_BASE_URL", "")
	cfg := Load()

	assert.Equal(t, "sk-shared", cfg.EmbedderAPIKey)
	assert.Equal(t, "http://llm.internal/v1", cfg.EmbedderBaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadTemperature(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "")
	assert.Less(t, Load().LLMTemperature, 0.0)

	t.Setenv("LLM_TEMPERATURE", "0.2")
	assert.InDelta(t, 0.2, Load().LLMTemperature, 1e-9)

	t.Setenv("LLM_TEMPERATURE", "warm")
	assert.Less(t, Load().LLMTemperature, 0.0)
}

func TestValidateVectorDSN(t *testing.T) {
	t.Setenv("FINGENIE_MODE", "MOCK")
	t.Setenv("VECTOR_PROVIDER", "pgvector")
	t.Setenv("VECTOR_DSN", "")
	cfg := Load()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VECTOR_DSN")

	cfg.VectorDSN = "postgres://localhost/fingenie"
	assert.NoError(t, cfg.Validate())
}
