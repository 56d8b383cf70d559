package config

import "time"

// Config is the top-level application configuration.
type Config struct {
	Bot             BotConfig       `json:"bot"`
	PrimaryLLM      LLMConfig       `json:"primary_llm"`
	BackupLLM       LLMConfig       `json:"backup_llm"`
	PrimarySelector string          `json:"primary_selector"`
	LLMTimeoutSecs  float64         `json:"llm_timeout_secs"`
	Image           ImageConfig     `json:"image"`
	Channels        ChannelsConfig  `json:"channels"`
	Reminders       RemindersConfig `json:"reminders"`
	Security        SecurityConfig  `json:"security"`
	Metrics         MetricsConfig   `json:"metrics"`
}

type BotConfig struct {
	Trigger           string `json:"trigger"`
	ResponseLimit     int    `json:"response_limit"`
	RewriteInputChars int    `json:"rewrite_input_chars"`
	EmptyPromptReply  string `json:"empty_prompt_reply"`
}

type LLMConfig struct {
	Name          string         `json:"name"`
	Provider      string         `json:"provider"` // "openai" (compatible) or "anthropic"
	Model         string         `json:"model"`
	APIKey        string         `json:"api_key,omitempty"`
	APIKeyEnv     string         `json:"api_key_env,omitempty"`
	BaseURL       string         `json:"base_url,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	MaxRetries    int            `json:"max_retries"`
	SystemPersona bool           `json:"system_persona"`
	Persona       string         `json:"persona"`
	ExtraBody     map[string]any `json:"extra_body,omitempty"`
}

type ImageConfig struct {
	Provider    string `json:"provider"` // "huggingface" or "openai"
	Model       string `json:"model"`
	APIKey      string `json:"api_key,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	TimeoutSecs int    `json:"timeout_secs"`
}

type ChannelsConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Console  bool            `json:"console"`
}

type TelegramConfig struct {
	Token      string  `json:"token"`
	AllowedIDs []int64 `json:"allowed_ids,omitempty"`
}

type RemindersConfig struct {
	Store            string `json:"store"` // "json" or "sqlite"
	Path             string `json:"path,omitempty"`
	PollIntervalSecs int    `json:"poll_interval_secs"`
	MaxDays          int    `json:"max_days"`
}

type SecurityConfig struct {
	AllowedUserIDs []string `json:"allowed_user_ids,omitempty"`
	UseKeyring     bool     `json:"use_keyring"`
	MasterPassword string   `json:"-"`
}

type MetricsConfig struct {
	Addr      string `json:"addr"`
	Namespace string `json:"namespace"`
}

// LLMTimeout is the budget for one orchestrator call.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSecs * float64(time.Second))
}

// PollInterval is the reminder poller tick.
func (r RemindersConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalSecs) * time.Second
}

// MaxAhead is the furthest a reminder may be scheduled.
func (r RemindersConfig) MaxAhead() time.Duration {
	return time.Duration(r.MaxDays) * 24 * time.Hour
}
