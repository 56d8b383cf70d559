package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"scottbot/internal/channel"
	"scottbot/internal/eventbus"
	"scottbot/internal/memory"
)

const (
	timeoutReply = "LLM request timed out. Try again or increase LLM_TIMEOUT."
	failureReply = "Sorry, I encountered an error while processing your message."

	// Telegram's typing status lasts about five seconds.
	typingRefresh = 4 * time.Second
)

// respond runs one LLM turn for msg and sends the result.
func (b *Bot) respond(ctx context.Context, ch channel.Channel, msg channel.InboundMessage) {
	userInput := b.cleanInput(ch, msg)
	if userInput == "" {
		b.reply(ctx, ch, msg, b.cfg.EmptyPromptReply)
		return
	}

	stopTyping := b.keepTyping(ctx, ch, msg.ChatID)
	defer stopTyping()
	conv := b.memory.Conversation(msg.ChatID)

	text, err := b.complete(ctx, userInput, conv)
	if err != nil {
		stopTyping()
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("[agent] LLM request timed out after %s", b.llmTimeout)
			b.reply(ctx, ch, msg, timeoutReply)
			return
		}
		b.logError("llm", err)
		b.reply(ctx, ch, msg, failureReply)
		return
	}

	text = b.fitLimit(ctx, text, conv)
	stopTyping()

	conv.Append(userInput, text)
	b.reply(ctx, ch, msg, text)
}

// complete calls the responder under the LLM timeout. A call cut short by
// the deadline reports context.DeadlineExceeded.
func (b *Bot) complete(ctx context.Context, userText string, conv memory.Conversation) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.llmTimeout)
	defer cancel()

	text, err := b.responder.GetResponse(callCtx, userText, conv)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("get response: %w", context.DeadlineExceeded)
		}
		return "", err
	}
	return text, nil
}

// fitLimit returns text when it fits the response limit. Otherwise it asks
// for one rewrite and falls back to truncating the original.
func (b *Bot) fitLimit(ctx context.Context, text string, conv memory.Conversation) string {
	limit := b.cfg.ResponseLimit
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	log.Printf("[agent] response too long (%d chars), asking for a rewrite", utf8.RuneCountInString(text))
	b.bus.Publish(eventbus.TopicResponseRewrite, utf8.RuneCountInString(text))

	prompt := fmt.Sprintf(
		"Please rewrite the following response to be under %d characters while keeping the key points and sarcastic tone: %s...",
		limit, firstRunes(text, b.cfg.RewriteInputChars))
	rewritten, err := b.complete(ctx, prompt, conv)
	switch {
	case err != nil:
		log.Printf("[agent] rewrite failed, truncating: %s", b.redactor.Redact(err.Error()))
	case strings.TrimSpace(rewritten) == "":
		log.Printf("[agent] rewrite was empty, truncating")
	case utf8.RuneCountInString(rewritten) > limit:
		log.Printf("[agent] rewrite still too long (%d chars), truncating", utf8.RuneCountInString(rewritten))
	default:
		return rewritten
	}
	return firstRunes(text, limit-3) + "..."
}

// keepTyping shows the typing indicator until the returned func is called.
// Channels without the capability get a no-op.
func (b *Bot) keepTyping(ctx context.Context, ch channel.Channel, chatID string) func() {
	typer, ok := ch.(channel.Typer)
	if !ok {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(typingRefresh)
		defer ticker.Stop()
		for {
			if err := typer.Typing(ctx, chatID); err != nil && ctx.Err() == nil {
				log.Printf("[agent] typing indicator: %v", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}

func firstRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
