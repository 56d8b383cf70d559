package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"scottbot/internal/config"
)

func newHFServer(t *testing.T, handler http.HandlerFunc) (*HuggingFace, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewHuggingFace(HuggingFaceConfig{
		APIKey:     "hf-test",
		Model:      "org/model",
		BaseURL:    srv.URL + "/models",
		HTTPClient: srv.Client(),
	}), &hits
}

func TestHuggingFaceImageBytes(t *testing.T) {
	png := []byte("\x89PNG fake")
	hf, _ := newHFServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/org/model" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer hf-test" {
			t.Errorf("missing bearer token")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["inputs"] != "a cat" {
			t.Errorf("inputs = %q", body["inputs"])
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	img, err := hf.Generate(context.Background(), "a cat")
	if err != nil {
		t.Fatal(err)
	}
	if string(img.Data) != string(png) || img.ContentType != "image/png" {
		t.Fatalf("unexpected image: %+v", img)
	}
}

func TestHuggingFaceJSONReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		url   string
		text  string
	}{
		{"url", `{"url":"https://img.example/1.png"}`, "https://img.example/1.png", ""},
		{"generated", `[{"generated_image":"base64stuff"}]`, "", "base64stuff"},
		{"other", `{"estimated_time":20}`, "", `{"estimated_time":20}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hf, _ := newHFServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.reply))
			})
			img, err := hf.Generate(context.Background(), "x")
			if err != nil {
				t.Fatal(err)
			}
			if img.URL != tt.url || img.Text != tt.text || img.Data != nil {
				t.Fatalf("got %+v", img)
			}
		})
	}
}

func TestHuggingFaceErrorStatus(t *testing.T) {
	hf, _ := newHFServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	})
	_, err := hf.Generate(context.Background(), "x")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
}

func TestHuggingFaceMissingKey(t *testing.T) {
	hf, hits := newHFServer(t, func(w http.ResponseWriter, r *http.Request) {})
	hf.apiKey = ""
	if _, err := hf.Generate(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Fatal("no request should be made without a key")
	}
}

func TestOpenAIImage(t *testing.T) {
	png := []byte("png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "a dog" || body["response_format"] != "b64_json" {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	img, err := p.Generate(context.Background(), "a dog")
	if err != nil {
		t.Fatal(err)
	}
	if string(img.Data) != string(png) {
		t.Fatalf("unexpected data %q", img.Data)
	}
}

func TestOpenAIMissingKey(t *testing.T) {
	p := NewOpenAI(OpenAIConfig{})
	if _, err := p.Generate(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.ImageConfig{Provider: "huggingface"}, nil)
	if err != nil || p.Name() != "huggingface" {
		t.Fatalf("got %v, %v", p, err)
	}
	p, err = NewProvider(config.ImageConfig{Provider: "openai"}, nil)
	if err != nil || p.Name() != "openai" {
		t.Fatalf("got %v, %v", p, err)
	}
	if _, err := NewProvider(config.ImageConfig{Provider: "midjourney"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestDefaultImageModelPerBackend(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		model, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []map[string]string{{"url": "https://img.example/2.png"}},
		})
	}))
	defer srv.Close()

	cfg := config.Defaults().Image
	cfg.Provider = "openai"
	cfg.APIKey = "sk-test"
	cfg.BaseURL = srv.URL
	p, err := NewProvider(cfg, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Generate(context.Background(), "a dog"); err != nil {
		t.Fatal(err)
	}
	if model != "dall-e-3" {
		t.Fatalf("openai backend sent model %q", model)
	}

	var path string
	hfSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	defer hfSrv.Close()

	cfg = config.Defaults().Image
	cfg.APIKey = "hf-test"
	cfg.BaseURL = hfSrv.URL
	p, err = NewProvider(cfg, hfSrv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Generate(context.Background(), "a cat"); err != nil {
		t.Fatal(err)
	}
	if path != "/black-forest-labs/FLUX.1-schnell" {
		t.Fatalf("huggingface backend called %s", path)
	}
}
