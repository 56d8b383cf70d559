package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultHFBaseURL = "https://api-inference.huggingface.co/models/"
	defaultHFModel   = "black-forest-labs/FLUX.1-schnell"
	defaultTimeout   = 60 * time.Second
	maxReplyBytes    = 20 << 20
)

type HuggingFaceConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HuggingFace calls the hosted inference API for a text-to-image model.
type HuggingFace struct {
	apiKey  string
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewHuggingFace(cfg HuggingFaceConfig) *HuggingFace {
	model := cfg.Model
	if model == "" {
		model = defaultHFModel
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultHFBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &HuggingFace{
		apiKey:  cfg.APIKey,
		url:     base + model,
		timeout: timeout,
		client:  client,
	}
}

func (h *HuggingFace) Name() string { return "huggingface" }

// Generate posts {"inputs": prompt}. An image reply is returned as bytes; a
// JSON reply is mined for a URL or generated text, else returned verbatim.
func (h *HuggingFace) Generate(ctx context.Context, prompt string) (*Image, error) {
	if h.apiKey == "" {
		return nil, fmt.Errorf("huggingface: %w (set HUGGINGFACE_API_KEY)", ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("huggingface read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: h.Name(), StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if strings.HasPrefix(mediaType, "image/") {
		log.Printf("[imagegen] huggingface returned %d bytes (%s)", len(body), mediaType)
		return &Image{Data: body, ContentType: mediaType}, nil
	}

	return parseJSONReply(body)
}

func parseJSONReply(body []byte) (*Image, error) {
	if !gjson.ValidBytes(body) {
		return &Image{Text: string(body)}, nil
	}
	if url := gjson.GetBytes(body, "url"); url.Type == gjson.String && url.Str != "" {
		return &Image{URL: url.Str}, nil
	}
	if gen := gjson.GetBytes(body, "0.generated_image"); gen.Exists() {
		return &Image{Text: gen.String()}, nil
	}
	return &Image{Text: string(body)}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
