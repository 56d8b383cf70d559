package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider over any OpenAI-compatible chat API.
// Gemini (through its OpenAI endpoint) and Perplexity Sonar both use it.
type OpenAIProvider struct {
	name          string
	apiKey        string
	keyHint       string
	client        openai.Client
	defaultModel  string
	maxTokens     int
	systemPersona bool
	extra         map[string]any
}

// OpenAIConfig holds configuration for an OpenAI-compatible provider.
type OpenAIConfig struct {
	Name       string
	APIKey     string
	KeyHint    string // env var named in the missing-credential error
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
	// SystemPersona also sends the persona as a system message.
	SystemPersona bool
	// ExtraBody is merged into the request JSON (e.g. "citations": false).
	ExtraBody  map[string]any
	HTTPClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
// An empty API key yields a provider that fails every call without touching the network.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
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
		model = "gpt-4o-mini"
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	hint := cfg.KeyHint
	if hint == "" {
		hint = "API key"
	}

	return &OpenAIProvider{
		name:          name,
		apiKey:        cfg.APIKey,
		keyHint:       hint,
		client:        openai.NewClient(opts...),
		defaultModel:  model,
		maxTokens:     cfg.MaxTokens,
		systemPersona: cfg.SystemPersona,
		extra:         cfg.ExtraBody,
	}
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

func (p *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	if p.apiKey == "" {
		return nil, credentialMissing(p.name, p.keyHint)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if p.systemPersona && req.Persona != "" {
		messages = append(messages, openai.SystemMessage(req.Persona))
	}
	messages = append(messages, openai.UserMessage(req.Prompt()))

	params := openai.ChatCompletionNewParams{
		Model:    p.defaultModel,
		Messages: messages,
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.maxTokens))
	}

	var reqOpts []option.RequestOption
	for k, v := range p.extra {
		reqOpts = append(reqOpts, option.WithJSONSet(k, v))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, p.classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, malformed(p.name, "no choices")
	}
	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return nil, malformed(p.name, "empty content")
	}

	return &Completion{
		Text:       text,
		Model:      resp.Model,
		StopReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (p *OpenAIProvider) classifyError(err error) *LLMError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return statusError(p.name, apiErr.StatusCode, apiErr.Error(), err)
	}
	return transportError(p.name, err)
}
