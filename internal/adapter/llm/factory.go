package llm

import (
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/xiaot623/fingenie/internal/config"
	"github.com/xiaot623/fingenie/internal/logger"
)

// NewLLMClient creates an LLM client based on configuration.
// In MOCK mode it returns a MockClient; otherwise the configured provider
// wrapped with retries.
func NewLLMClient(cfg *config.Config) (LLMClient, error) {
	if cfg.IsMock() {
		logger.Default().Info("FINGENIE_MODE=MOCK detected, using mock LLM client")
		return NewMockClient(), nil
	}

	var client LLMClient
	switch cfg.LLMProvider {
	case config.ProviderCompatible:
		client = NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	case config.ProviderOpenAI:
		model, err := openai.New(
			openai.WithToken(cfg.LLMAPIKey),
			openai.WithModel(cfg.LLMModel),
			openai.WithBaseURL(cfg.LLMBaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai model: %w", err)
		}
		client = NewLangChainClient(model, cfg.LLMModel)
	case config.ProviderAnthropic:
		model, err := anthropic.New(
			anthropic.WithToken(cfg.LLMAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic model: %w", err)
		}
		client = NewLangChainClient(model, cfg.LLMModel)
	case config.ProviderOllama:
		model, err := ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.LLMBaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama model: %w", err)
		}
		client = NewLangChainClient(model, cfg.LLMModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}

	return WithRetry(client, cfg.LLMMaxRetries, time.Second), nil
}
