package llm

import (
	"fmt"
	"net/http"

	"scottbot/internal/config"
)

// NewProvider creates a completion provider from config.
// A missing API key is not an error here; the provider reports it on first use.
func NewProvider(cfg config.LLMConfig, httpClient *http.Client) (Provider, error) {
	hint := cfg.APIKeyEnv
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(OpenAIConfig{
			Name:          cfg.Name,
			APIKey:        cfg.APIKey,
			KeyHint:       hint,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			MaxTokens:     cfg.MaxTokens,
			MaxRetries:    cfg.MaxRetries,
			SystemPersona: cfg.SystemPersona,
			ExtraBody:     cfg.ExtraBody,
			HTTPClient:    httpClient,
		}), nil
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			Name:       cfg.Name,
			APIKey:     cfg.APIKey,
			KeyHint:    hint,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			MaxRetries: cfg.MaxRetries,
			HTTPClient: httpClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
