package llm

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agenthands/beacon/internal/config"
)

// NewClient builds a Gateway over every configured provider, in order.
func NewClient(cfg config.LLMConfig) (LLMClient, error) {
	var providers []Provider
	for _, p := range cfg.Providers {
		c, err := newProvider(p)
		if err != nil {
			return nil, err
		}
		providers = append(providers, Provider{Name: strings.ToLower(p.Provider), Client: c})
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no llm provider configured")
	}
	return NewGateway(time.Duration(cfg.TimeoutSeconds)*time.Second, providers...), nil
}

func newProvider(cfg config.ProviderConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		var pool *ProxyPool
		if len(cfg.Proxies) > 0 {
			pool = NewProxyPool(cfg.Proxies)
		}
		return NewGeminiClient(cfg.APIKey, cfg.Model, pool), nil

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		return NewOllamaClient(cfg.Model, cfg.BaseURL, cfg.APIKey), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// NewOllamaClient points the OpenAI-compatible client at Ollama's /v1 API.
func NewOllamaClient(model, baseURL, apiKey string) *OpenAIClient {
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
	}
	slog.Debug("using ollama via OpenAI-compatible API", "base_url", baseURL, "model", model)

	// Ollama ignores the key but the client requires one.
	if apiKey == "" {
		apiKey = "ollama"
	}
	return NewOpenAIClient(apiKey, model, baseURL)
}
