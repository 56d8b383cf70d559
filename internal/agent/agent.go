// Package agent routes inbound chat messages to reminders, slash commands or
// the LLM, and sends the results back through the originating channel.
package agent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"scottbot/internal/channel"
	"scottbot/internal/config"
	"scottbot/internal/eventbus"
	"scottbot/internal/imagegen"
	"scottbot/internal/memory"
	"scottbot/internal/reminder"
	"scottbot/internal/security"
)

const defaultLLMTimeout = 20 * time.Second

// Options carries the collaborators of a Bot. Reminders and Images may be nil
// to disable those features.
type Options struct {
	Config     config.BotConfig
	LLMTimeout time.Duration
	MaxAhead   time.Duration

	Responder Responder
	Memory    *memory.Store
	Reminders reminder.Store
	Images    imagegen.Provider
	Channels  *channel.Manager
	Bus       *eventbus.Bus
	Auth      *security.Authorizer
	Redactor  *security.Redactor
}

// Bot is the single inbound message handler.
type Bot struct {
	cfg        config.BotConfig
	llmTimeout time.Duration
	maxAhead   time.Duration

	responder Responder
	memory    *memory.Store
	reminders reminder.Store
	images    imagegen.Provider
	channels  *channel.Manager
	bus       *eventbus.Bus
	auth      *security.Authorizer
	redactor  *security.Redactor

	trigger *regexp.Regexp
	now     func() time.Time
}

// New creates a Bot, filling zero config values with defaults.
func New(opts Options) *Bot {
	cfg := opts.Config
	def := config.Defaults().Bot
	if cfg.Trigger == "" {
		cfg.Trigger = def.Trigger
	}
	if cfg.ResponseLimit <= 3 {
		cfg.ResponseLimit = def.ResponseLimit
	}
	if cfg.RewriteInputChars <= 0 {
		cfg.RewriteInputChars = def.RewriteInputChars
	}
	if cfg.EmptyPromptReply == "" {
		cfg.EmptyPromptReply = def.EmptyPromptReply
	}
	timeout := opts.LLMTimeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	mem := opts.Memory
	if mem == nil {
		mem = memory.NewStore()
	}

	return &Bot{
		cfg:        cfg,
		llmTimeout: timeout,
		maxAhead:   opts.MaxAhead,
		responder:  opts.Responder,
		memory:     mem,
		reminders:  opts.Reminders,
		images:     opts.Images,
		channels:   opts.Channels,
		bus:        opts.Bus,
		auth:       opts.Auth,
		redactor:   opts.Redactor,
		trigger:    regexp.MustCompile(`(?i)` + regexp.QuoteMeta(cfg.Trigger)),
		now:        time.Now,
	}
}

// Start installs the message handler on every registered channel. Call it
// before the channels are started.
func (b *Bot) Start(ctx context.Context) {
	b.channels.OnMessage(func(msg channel.InboundMessage) {
		b.HandleMessage(ctx, msg)
	})
	log.Printf("[agent] listening for messages (trigger %q)", b.cfg.Trigger)
}

// HandleMessage dispatches one inbound message: reminders first, then slash
// commands, then triggered LLM replies.
func (b *Bot) HandleMessage(ctx context.Context, msg channel.InboundMessage) {
	if msg.FromSelf {
		return
	}
	ch, ok := b.channels.Get(msg.ChannelName)
	if !ok {
		log.Printf("[agent] channel %s not found", msg.ChannelName)
		return
	}
	b.bus.Publish(eventbus.TopicInboundMessage, eventbus.MessageEvent{
		Channel: msg.ChannelName,
		ChatID:  msg.ChatID,
		UserID:  msg.SenderID,
		Length:  len(msg.Text),
	})

	if !b.auth.IsAllowed(msg.SenderID, msg.SenderUsername) {
		log.Printf("[agent] ignoring message from unauthorized user %s", msg.SenderID)
		return
	}

	if b.handleReminder(ctx, ch, msg) {
		return
	}
	if msg.Command != "" && b.handleCommand(ctx, ch, msg) {
		return
	}
	if !b.triggered(ch, msg) {
		return
	}

	log.Printf("[agent] processing message from %s (%s): %s", msg.SenderName, msg.ChannelName, truncate(msg.Text, 100))
	b.respond(ctx, ch, msg)
}

// triggered reports whether msg is addressed to the bot.
func (b *Bot) triggered(ch channel.Channel, msg channel.InboundMessage) bool {
	if msg.MentionsSelf || b.trigger.MatchString(msg.Text) {
		return true
	}
	if msg.ReplyTo == nil {
		return false
	}
	if msg.ReplyTo.AuthorIsSelf || (msg.ReplyTo.AuthorID != "" && msg.ReplyTo.AuthorID == ch.Self().ID) {
		return true
	}
	return b.trigger.MatchString(msg.ReplyTo.Text)
}

// cleanInput strips the bot's mention and trigger word, prefixes the replied
// to text and trims. Empty input is returned as "".
func (b *Bot) cleanInput(ch channel.Channel, msg channel.InboundMessage) string {
	text := msg.Text
	if self := ch.Self(); self.Username != "" {
		mention := regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(self.Username) + `\b`)
		text = mention.ReplaceAllString(text, "")
	}
	text = b.trigger.ReplaceAllString(text, "")
	if msg.ReplyTo != nil && msg.ReplyTo.Text != "" {
		text = fmt.Sprintf("[Replying to: %s]\n%s", msg.ReplyTo.Text, text)
	}
	return strings.TrimSpace(text)
}

// send delivers out through ch and reports it on the bus.
func (b *Bot) send(ctx context.Context, ch channel.Channel, out channel.OutboundMessage) error {
	b.bus.Publish(eventbus.TopicOutboundMessage, eventbus.MessageEvent{
		Channel: ch.Name(),
		ChatID:  out.ChatID,
		Length:  len(out.Text),
	})
	if err := ch.Send(ctx, out); err != nil {
		b.logError("send", fmt.Errorf("send to %s/%s: %w", ch.Name(), out.ChatID, err))
		return err
	}
	return nil
}

// reply answers msg with plain text.
func (b *Bot) reply(ctx context.Context, ch channel.Channel, msg channel.InboundMessage, text string) {
	b.send(ctx, ch, channel.OutboundMessage{ChatID: msg.ChatID, Text: text, ReplyTo: msg.MessageID})
}

// logError logs err with secrets masked and publishes it.
func (b *Bot) logError(component string, err error) {
	log.Printf("[agent] %s error: %s", component, b.redactor.Redact(err.Error()))
	b.bus.Publish(eventbus.TopicError, eventbus.ErrorEvent{Component: component, Err: err})
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
