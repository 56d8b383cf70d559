package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLoader(t *testing.T, env map[string]string) *Loader {
	dir := t.TempDir()
	return &Loader{
		dir:      dir,
		filePath: filepath.Join(dir, "config.json"),
		getenv:   func(k string) string { return env[k] },
	}
}

func TestLoadDefaults(t *testing.T) {
	loader := newTestLoader(t, nil)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.PrimaryLLM.Name != "gemini" {
		t.Fatalf("expected gemini, got %s", cfg.PrimaryLLM.Name)
	}
	if cfg.BackupLLM.Name != "sonar" {
		t.Fatalf("expected sonar, got %s", cfg.BackupLLM.Name)
	}
	if cfg.LLMTimeout() != 20*time.Second {
		t.Fatalf("expected 20s, got %s", cfg.LLMTimeout())
	}
	if cfg.Reminders.PollInterval() != 15*time.Second {
		t.Fatalf("expected 15s poll, got %s", cfg.Reminders.PollInterval())
	}
	if cfg.Reminders.Path != filepath.Join(loader.Dir(), "reminders.json") {
		t.Fatalf("unexpected reminders path %s", cfg.Reminders.Path)
	}
	if cfg.PrimaryLLM.APIKey != "" || cfg.BackupLLM.APIKey != "" {
		t.Fatal("expected no credentials without env")
	}
}

func TestEnvOverrides(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"GEMINI_API_KEY":         "g-key",
		"PERPLEXITY_API_KEY":     "p-key",
		"PERPLEXITY_API_URL":     "https://example.test/sonar",
		"PRIMARY_LLM":            "sonar",
		"LLM_TIMEOUT":            "45s",
		"HUGGINGFACE_API_KEY":    "hf-key",
		"TELEGRAM_TOKEN":         "tg-token",
		"TELEGRAM_ALLOWED_IDS":   "1, 2",
		"ALLOWED_USER_IDS":       "7,8",
		"REMINDER_STORE":         "sqlite",
		"REMINDER_POLL_INTERVAL": "5",
	})

	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.PrimaryLLM.APIKey != "g-key" || cfg.BackupLLM.APIKey != "p-key" {
		t.Fatalf("credentials not applied: %+v %+v", cfg.PrimaryLLM, cfg.BackupLLM)
	}
	if cfg.BackupLLM.BaseURL != "https://example.test/sonar" {
		t.Fatalf("unexpected backup url %s", cfg.BackupLLM.BaseURL)
	}
	if cfg.PrimarySelector != "sonar" {
		t.Fatalf("expected selector sonar, got %s", cfg.PrimarySelector)
	}
	if cfg.LLMTimeout() != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.LLMTimeout())
	}
	if cfg.Image.APIKey != "hf-key" {
		t.Fatalf("expected hf key, got %q", cfg.Image.APIKey)
	}
	if cfg.Channels.Telegram == nil || cfg.Channels.Telegram.Token != "tg-token" {
		t.Fatal("telegram token not applied")
	}
	if len(cfg.Channels.Telegram.AllowedIDs) != 2 || cfg.Channels.Telegram.AllowedIDs[1] != 2 {
		t.Fatalf("unexpected allowed ids %v", cfg.Channels.Telegram.AllowedIDs)
	}
	if len(cfg.Security.AllowedUserIDs) != 2 {
		t.Fatalf("unexpected allowed users %v", cfg.Security.AllowedUserIDs)
	}
	if cfg.Reminders.Path != filepath.Join(loader.Dir(), "reminders.db") {
		t.Fatalf("unexpected sqlite path %s", cfg.Reminders.Path)
	}
	if cfg.Reminders.PollIntervalSecs != 5 {
		t.Fatalf("expected poll 5, got %d", cfg.Reminders.PollIntervalSecs)
	}
}

func TestInvalidTimeout(t *testing.T) {
	loader := newTestLoader(t, map[string]string{"LLM_TIMEOUT": "soon"})
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected parse error")
	}

	loader = newTestLoader(t, map[string]string{"LLM_TIMEOUT": "0"})
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadFromFile(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"IMAGE_PROVIDER": "openai",
		"HF_MODEL_ID":    "black-forest-labs/FLUX.1-schnell",
	})

	data := `{"bot": {"trigger": "dan"}, "reminders": {"max_days": 7}}`
	if err := os.WriteFile(loader.filePath, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Bot.Trigger != "dan" {
		t.Fatalf("expected dan, got %s", loaded.Bot.Trigger)
	}
	if loaded.Reminders.MaxAhead() != 7*24*time.Hour {
		t.Fatalf("unexpected max ahead %s", loaded.Reminders.MaxAhead())
	}
	if loaded.Bot.ResponseLimit != Defaults().Bot.ResponseLimit {
		t.Fatal("fields missing from the file should keep their defaults")
	}
	if loaded.Image.Model != "" {
		t.Fatalf("image model should be left to the backend, got %q", loaded.Image.Model)
	}
}

func TestBackupPersonaForbidsCitations(t *testing.T) {
	cfg := Defaults()
	if cfg.BackupLLM.Persona == cfg.PrimaryLLM.Persona {
		t.Fatal("personas should differ")
	}
	if !strings.Contains(cfg.BackupLLM.Persona, "You NEVER cite sources") {
		t.Fatal("backup persona should forbid citations")
	}
}
