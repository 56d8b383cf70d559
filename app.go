package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"scottbot/internal/agent"
	"scottbot/internal/channel"
	"scottbot/internal/config"
	"scottbot/internal/eventbus"
	"scottbot/internal/httpapi"
	"scottbot/internal/imagegen"
	"scottbot/internal/llm"
	"scottbot/internal/memory"
	"scottbot/internal/observability"
	"scottbot/internal/reminder"
	"scottbot/internal/security"
)

// Secret names double as the environment variables they override.
const (
	secretTelegramToken = "TELEGRAM_TOKEN"
	secretHuggingFace   = "HUGGINGFACE_API_KEY"
	secretOpenAI        = "OPENAI_API_KEY"
)

// App wires configuration, providers, channels and background workers.
type App struct {
	cfg      *config.Config
	keyStore *security.KeyStore
	redactor *security.Redactor
	bus      *eventbus.Bus
	metrics  *observability.Metrics

	chanMgr      *channel.Manager
	orchestrator *agent.Orchestrator
	reminders    reminder.Store
	images       imagegen.Provider
	bot          *agent.Bot

	wg sync.WaitGroup
}

// NewApp creates an App. keyStore may be nil to skip secret lookup.
func NewApp(cfg *config.Config, keyStore *security.KeyStore) *App {
	return &App{
		cfg:      cfg,
		keyStore: keyStore,
		redactor: security.NewRedactor(),
		bus:      eventbus.New(),
		chanMgr:  channel.NewManager(),
	}
}

// Start builds every component, connects the channels and launches the
// reminder poller and the ops server.
func (a *App) Start(ctx context.Context) error {
	a.resolveSecrets()
	a.logCredentials()

	if err := a.initLLM(); err != nil {
		return err
	}

	store, err := openReminderStore(a.cfg.Reminders)
	if err != nil {
		return fmt.Errorf("open reminder store: %w", err)
	}
	a.reminders = store

	images, err := imagegen.NewProvider(a.cfg.Image, newHTTPClient())
	if err != nil {
		log.Printf("[app] image generation disabled: %v", err)
	} else {
		a.images = images
	}

	a.registerChannels()

	a.metrics = observability.NewMetrics(a.cfg.Metrics.Namespace)
	a.metrics.Attach(a.bus)

	a.bot = agent.New(agent.Options{
		Config:     a.cfg.Bot,
		LLMTimeout: a.cfg.LLMTimeout(),
		MaxAhead:   a.cfg.Reminders.MaxAhead(),
		Responder:  a.orchestrator,
		Memory:     memory.NewStore(),
		Reminders:  a.reminders,
		Images:     a.images,
		Channels:   a.chanMgr,
		Bus:        a.bus,
		Auth:       security.NewAuthorizer(a.cfg.Security.AllowedUserIDs),
		Redactor:   a.redactor,
	})
	a.bot.Start(ctx)

	if err := a.chanMgr.StartAll(ctx); err != nil {
		return err
	}

	if pending, err := a.reminders.Pending(ctx); err != nil {
		log.Printf("[app] could not read pending reminders: %v", err)
	} else {
		log.Printf("[app] %d pending reminders", len(pending))
	}

	poller := reminder.NewPoller(a.reminders, a.bot.DeliverReminder, a.cfg.Reminders.PollInterval())
	poller.OnResult(a.bot.ReminderResult)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		poller.Run(ctx)
	}()

	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := httpapi.New(a, a.metrics.Handler())
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				log.Printf("[app] ops server: %v", err)
			}
		}()
	}

	log.Printf("[app] running with providers %v", a.orchestrator.Providers())
	return nil
}

// Shutdown stops the channels and waits for background workers. ctx passed
// to Start must already be cancelled.
func (a *App) Shutdown(ctx context.Context) {
	a.chanMgr.StopAll(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("[app] shutdown timed out waiting for workers")
	}

	if a.reminders != nil {
		if err := a.reminders.Close(); err != nil {
			log.Printf("[app] close reminder store: %v", err)
		}
	}
}

func (a *App) initLLM() error {
	for _, c := range []config.LLMConfig{a.cfg.PrimaryLLM, a.cfg.BackupLLM} {
		if c.BaseURL == "" {
			continue
		}
		if err := validateBaseURL(c.BaseURL); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}

	primary, err := llm.NewProvider(a.cfg.PrimaryLLM, newHTTPClient())
	if err != nil {
		return fmt.Errorf("primary provider: %w", err)
	}
	backup, err := llm.NewProvider(a.cfg.BackupLLM, newHTTPClient())
	if err != nil {
		return fmt.Errorf("backup provider: %w", err)
	}

	order, ok := llm.ParseOrder(a.cfg.PrimarySelector)
	if !ok {
		log.Printf("[app] unknown primary selector %q, using %s", a.cfg.PrimarySelector, order)
	}
	chain := llm.NewChain(order,
		llm.Backend{Provider: primary, Persona: a.cfg.PrimaryLLM.Persona},
		llm.Backend{Provider: backup, Persona: a.cfg.BackupLLM.Persona})
	a.orchestrator = agent.NewOrchestrator(chain, a.bus, a.redactor)
	return nil
}

// registerChannels adds Telegram when a token is configured and the console
// when asked for or when nothing else is available.
func (a *App) registerChannels() {
	tg := a.cfg.Channels.Telegram
	if tg != nil && tg.Token != "" {
		a.chanMgr.Register(channel.NewTelegramChannel(channel.TelegramConfig{
			Token:      tg.Token,
			AllowedIDs: tg.AllowedIDs,
			HTTPClient: &http.Client{Timeout: 90 * time.Second},
		}))
	}
	if a.cfg.Channels.Console || tg == nil || tg.Token == "" {
		if !a.cfg.Channels.Console {
			log.Println("[app] no Telegram token configured, using the console")
		}
		a.chanMgr.Register(channel.NewConsoleChannel(a.cfg.Bot.Trigger))
	}
}

// resolveSecrets fills credentials missing from the environment and config
// file from the keyring or vault, and registers every credential with the
// redactor.
func (a *App) resolveSecrets() {
	fill := func(dst *string, name string) {
		if a.keyStore != nil && a.keyStore.Fill(dst, name) {
			log.Printf("[app] loaded %s from secure storage", name)
		}
		a.redactor.Add(*dst)
	}

	fill(&a.cfg.PrimaryLLM.APIKey, a.cfg.PrimaryLLM.APIKeyEnv)
	fill(&a.cfg.BackupLLM.APIKey, a.cfg.BackupLLM.APIKeyEnv)

	imageSecret := secretHuggingFace
	if a.cfg.Image.Provider == "openai" {
		imageSecret = secretOpenAI
	}
	fill(&a.cfg.Image.APIKey, imageSecret)

	var token string
	if a.cfg.Channels.Telegram != nil {
		token = a.cfg.Channels.Telegram.Token
	}
	fill(&token, secretTelegramToken)
	if token != "" {
		if a.cfg.Channels.Telegram == nil {
			a.cfg.Channels.Telegram = &config.TelegramConfig{}
		}
		a.cfg.Channels.Telegram.Token = token
	}
}

// logCredentials reports which credentials are present, never their values.
func (a *App) logCredentials() {
	tg := a.cfg.Channels.Telegram
	log.Printf("[app] credentials: %s=%t %s=%t image(%s)=%t telegram=%t",
		a.cfg.PrimaryLLM.Name, a.cfg.PrimaryLLM.APIKey != "",
		a.cfg.BackupLLM.Name, a.cfg.BackupLLM.APIKey != "",
		a.cfg.Image.Provider, a.cfg.Image.APIKey != "",
		tg != nil && tg.Token != "")
}

// Channels implements httpapi.Status.
func (a *App) Channels() map[string]bool {
	return a.chanMgr.List()
}

// Providers implements httpapi.Status.
func (a *App) Providers() []string {
	if a.orchestrator == nil {
		return nil
	}
	return a.orchestrator.Providers()
}

// PendingReminders implements httpapi.Status.
func (a *App) PendingReminders(ctx context.Context) (int, error) {
	if a.reminders == nil {
		return 0, errors.New("reminder store not open")
	}
	pending, err := a.reminders.Pending(ctx)
	return len(pending), err
}

func openReminderStore(cfg config.RemindersConfig) (reminder.Store, error) {
	switch cfg.Store {
	case "sqlite":
		return reminder.NewSQLiteStore(cfg.Path)
	case "json", "":
		return reminder.NewFileStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown reminder store %q", cfg.Store)
	}
}

// newHTTPClient returns a pooled client for one provider. Per-call deadlines
// come from the request context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// validateBaseURL checks that a base URL is valid and uses http/https scheme.
func validateBaseURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("base URL must use http or https scheme, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL must have a host")
	}
	return nil
}
