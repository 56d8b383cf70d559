package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider using the Anthropic API.
type AnthropicProvider struct {
	name         string
	apiKey       string
	keyHint      string
	client       anthropic.Client
	defaultModel string
	maxTokens    int
}

// AnthropicConfig holds configuration for the Anthropic provider.
type AnthropicConfig struct {
	Name       string
	APIKey     string
	KeyHint    string
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
	HTTPClient *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}
	hint := cfg.KeyHint
	if hint == "" {
		hint = "ANTHROPIC_API_KEY"
	}
	return &AnthropicProvider{
		name:         name,
		apiKey:       cfg.APIKey,
		keyHint:      hint,
		client:       anthropic.NewClient(opts...),
		defaultModel: model,
		maxTokens:    maxTokens,
	}
}

func (p *AnthropicProvider) Name() string         { return p.name }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

func (p *AnthropicProvider) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	if p.apiKey == "" {
		return nil, credentialMissing(p.name, p.keyHint)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.defaultModel),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt())),
		},
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.classifyError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(b.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, malformed(p.name, "no text blocks")
	}

	return &Completion{
		Text:       text,
		Model:      string(resp.Model),
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

func (p *AnthropicProvider) classifyError(err error) *LLMError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return statusError(p.name, apiErr.StatusCode, apiErr.Error(), err)
	}
	return transportError(p.name, err)
}
