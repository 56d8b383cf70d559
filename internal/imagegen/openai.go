package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAI generates images with the images endpoint and returns PNG bytes.
type OpenAI struct {
	client  openai.Client
	apiKey  string
	model   string
	timeout time.Duration
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.ImageModelDallE3)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAI{
		client:  openai.NewClient(opts...),
		apiKey:  cfg.APIKey,
		model:   model,
		timeout: timeout,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, prompt string) (*Image, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY)", ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.model),
		N:      openai.Int(1),
	}
	if o.model != string(openai.ImageModelGPTImage1) {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := o.client.Images.Generate(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &StatusError{Provider: o.Name(), StatusCode: apiErr.StatusCode, Body: truncate(apiErr.RawJSON(), 500)}
		}
		return nil, fmt.Errorf("openai images: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai images: empty response")
	}

	img := resp.Data[0]
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai images: decode: %w", err)
		}
		return &Image{Data: data, ContentType: "image/png"}, nil
	}
	if img.URL != "" {
		return &Image{URL: img.URL}, nil
	}
	return nil, errors.New("openai images: no image in response")
}
