// Package imagegen turns text prompts into images through a hosted model.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"scottbot/internal/config"
)

// ErrNotConfigured means the backend has no credential.
var ErrNotConfigured = errors.New("image provider not configured")

// Image is a generation result. Exactly one of Data or URL is set for binary
// results; Text carries a textual reply the backend returned instead.
type Image struct {
	Data        []byte
	ContentType string
	URL         string
	Text        string
}

// Provider generates an image from a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (*Image, error)
	Name() string
}

// StatusError is a non-success reply from an image backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NewProvider builds the configured backend.
func NewProvider(cfg config.ImageConfig, httpClient *http.Client) (Provider, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Provider {
	case "", "huggingface", "hf":
		return NewHuggingFace(HuggingFaceConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			HTTPClient: httpClient,
		}), nil
	case "openai":
		return NewOpenAI(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			HTTPClient: httpClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown image provider: %q", cfg.Provider)
	}
}
