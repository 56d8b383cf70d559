package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	configDir  = ".scottbot"
	configFile = "config.json"
)

// Loader reads the optional config file and applies environment overrides.
type Loader struct {
	dir      string
	filePath string
	getenv   func(string) string
}

// NewLoader creates a loader that reads ~/.scottbot/config.json.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, configDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Loader{
		dir:      dir,
		filePath: filepath.Join(dir, configFile),
		getenv:   os.Getenv,
	}, nil
}

// Load builds the config: defaults, then the file if present, then the environment.
// It is called once at startup.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(l.filePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.filePath, err)
		}
	}

	getenv := l.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if cfg.Reminders.Path == "" {
		cfg.Reminders.Path = l.defaultRemindersPath(cfg.Reminders.Store)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Dir returns the directory holding config and state files.
func (l *Loader) Dir() string {
	return l.dir
}

func (l *Loader) defaultRemindersPath(store string) string {
	if store == "sqlite" {
		return filepath.Join(l.dir, "reminders.db")
	}
	return filepath.Join(l.dir, "reminders.json")
}

// Validate rejects settings the bot cannot run with.
func Validate(cfg *Config) error {
	if cfg.LLMTimeoutSecs <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if cfg.Bot.ResponseLimit <= 3 {
		return fmt.Errorf("bot.response_limit must be greater than 3")
	}
	if cfg.Reminders.PollIntervalSecs <= 0 {
		return fmt.Errorf("REMINDER_POLL_INTERVAL must be positive")
	}
	if cfg.Reminders.MaxDays <= 0 {
		return fmt.Errorf("reminders.max_days must be positive")
	}
	switch cfg.Reminders.Store {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown reminder store %q", cfg.Reminders.Store)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }
	set := func(dst *string, key string) {
		if v := env(key); v != "" {
			*dst = v
		}
	}

	if cfg.PrimaryLLM.APIKeyEnv != "" {
		set(&cfg.PrimaryLLM.APIKey, cfg.PrimaryLLM.APIKeyEnv)
	}
	set(&cfg.PrimaryLLM.Model, "GEMINI_MODEL")
	set(&cfg.PrimaryLLM.BaseURL, "GEMINI_API_URL")

	if cfg.BackupLLM.APIKeyEnv != "" {
		set(&cfg.BackupLLM.APIKey, cfg.BackupLLM.APIKeyEnv)
	}
	set(&cfg.BackupLLM.Model, "PERPLEXITY_MODEL")
	set(&cfg.BackupLLM.BaseURL, "PERPLEXITY_API_URL")

	set(&cfg.PrimarySelector, "PRIMARY_LLM")

	if v := env("LLM_TIMEOUT"); v != "" {
		secs, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("LLM_TIMEOUT parse error: %w", err)
		}
		cfg.LLMTimeoutSecs = secs
	}

	set(&cfg.Image.Provider, "IMAGE_PROVIDER")
	switch cfg.Image.Provider {
	case "openai":
		set(&cfg.Image.APIKey, "OPENAI_API_KEY")
	default:
		set(&cfg.Image.Model, "HF_MODEL_ID")
		set(&cfg.Image.APIKey, "HUGGINGFACE_API_KEY")
	}
	set(&cfg.Image.Model, "IMAGE_MODEL")

	if v := env("TELEGRAM_TOKEN"); v != "" {
		if cfg.Channels.Telegram == nil {
			cfg.Channels.Telegram = &TelegramConfig{}
		}
		cfg.Channels.Telegram.Token = v
	}
	if v := env("TELEGRAM_ALLOWED_IDS"); v != "" && cfg.Channels.Telegram != nil {
		ids, err := parseInt64List(v)
		if err != nil {
			return fmt.Errorf("TELEGRAM_ALLOWED_IDS parse error: %w", err)
		}
		cfg.Channels.Telegram.AllowedIDs = ids
	}
	if v := env("CONSOLE"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("CONSOLE parse error: %w", err)
		}
		cfg.Channels.Console = b
	}

	set(&cfg.Bot.Trigger, "BOT_TRIGGER")
	if v := env("ALLOWED_USER_IDS"); v != "" {
		cfg.Security.AllowedUserIDs = splitList(v)
	}
	if v := env("USE_KEYRING"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("USE_KEYRING parse error: %w", err)
		}
		cfg.Security.UseKeyring = b
	}
	cfg.Security.MasterPassword = env("SCOTTBOT_MASTER_PASSWORD")

	set(&cfg.Reminders.Store, "REMINDER_STORE")
	set(&cfg.Reminders.Path, "REMINDERS_FILE")
	if v := env("REMINDER_POLL_INTERVAL"); v != "" {
		secs, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("REMINDER_POLL_INTERVAL parse error: %w", err)
		}
		cfg.Reminders.PollIntervalSecs = int(secs)
	}

	set(&cfg.Metrics.Addr, "METRICS_ADDR")
	return nil
}

// parseSeconds accepts "20", "2.5" or a Go duration such as "45s".
func parseSeconds(v string) (float64, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected bool, got %q", v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64List(v string) ([]int64, error) {
	var out []int64
	for _, s := range splitList(v) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
