package agent

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"scottbot/internal/channel"
	"scottbot/internal/eventbus"
)

const (
	// MaxPurge is the largest amount /purge accepts.
	MaxPurge = 1000
	// purgeBatch is the most messages removed in one delete call.
	purgeBatch = 100

	imagineUsageReply  = "Usage: /imagine <prompt>"
	imageFailReply     = "Failed to generate image."
	imageOddReply      = "Image generation returned an unexpected result."
	groupOnlyReply     = "This command must be used in a group chat."
	noPurgeReply       = "Purge is not supported on this channel."
	noPermissionReply  = "You don't have permission to manage messages."
	purgeRangeReply    = "Amount must be between 1 and 1000."
	purgeFailReply     = "Failed to delete messages."
	purgeSuccessFormat = "Successfully deleted %d messages."
)

// command outcomes reported on the bus
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeDenied   = "denied"
	outcomeError    = "error"
	outcomePanicked = "panic"
)

// handleCommand runs a known slash command. Unknown commands are not
// consumed and fall through to normal handling.
func (b *Bot) handleCommand(ctx context.Context, ch channel.Channel, msg channel.InboundMessage) bool {
	var run func(context.Context, channel.Channel, channel.InboundMessage) string
	var failText string
	switch msg.Command {
	case "imagine":
		run, failText = b.imagine, imageFailReply
	case "purge":
		run, failText = b.purge, purgeFailReply
	default:
		return false
	}

	outcome := outcomePanicked
	defer func() {
		if rec := recover(); rec != nil {
			b.logError(msg.Command, fmt.Errorf("panic in /%s: %v", msg.Command, rec))
			b.reply(ctx, ch, msg, failText)
		}
		b.bus.Publish(eventbus.TopicCommand, eventbus.CommandEvent{
			Name:    msg.Command,
			ChatID:  msg.ChatID,
			UserID:  msg.SenderID,
			Outcome: outcome,
		})
	}()

	log.Printf("[agent] /%s from %s in %s", msg.Command, msg.SenderID, msg.ChatID)
	outcome = run(ctx, ch, msg)
	return true
}

// imagine generates an image for the command arguments.
func (b *Bot) imagine(ctx context.Context, ch channel.Channel, msg channel.InboundMessage) string {
	prompt := strings.TrimSpace(msg.Args)
	if prompt == "" {
		b.reply(ctx, ch, msg, imagineUsageReply)
		return outcomeInvalid
	}
	if b.images == nil {
		log.Printf("[agent] /imagine: no image provider configured")
		b.reply(ctx, ch, msg, imageFailReply)
		return outcomeError
	}

	stopTyping := b.keepTyping(ctx, ch, msg.ChatID)
	defer stopTyping()
	img, err := b.images.Generate(ctx, prompt)
	stopTyping()
	if err != nil {
		b.logError("imagine", fmt.Errorf("%s: %w", b.images.Name(), err))
		b.reply(ctx, ch, msg, imageFailReply)
		return outcomeError
	}

	out := channel.OutboundMessage{ChatID: msg.ChatID, ReplyTo: msg.MessageID}
	switch {
	case len(img.Data) > 0:
		out.File = &channel.File{Name: "image.png", ContentType: img.ContentType, Data: img.Data}
	case img.URL != "":
		out.Text = img.URL
	case img.Text != "":
		out.Text = img.Text
	default:
		b.reply(ctx, ch, msg, imageOddReply)
		return outcomeError
	}
	if err := b.send(ctx, ch, out); err != nil {
		return outcomeError
	}
	return outcomeOK
}

// purge deletes the most recent messages of a group chat in batches.
func (b *Bot) purge(ctx context.Context, ch channel.Channel, msg channel.InboundMessage) string {
	if !msg.IsGroup() {
		b.reply(ctx, ch, msg, groupOnlyReply)
		return outcomeInvalid
	}
	mod, ok := ch.(channel.Moderator)
	if !ok {
		b.reply(ctx, ch, msg, noPurgeReply)
		return outcomeInvalid
	}

	allowed, err := mod.CanManageMessages(ctx, msg.ChatID, msg.SenderID)
	if err != nil {
		b.logError("purge", fmt.Errorf("check permissions: %w", err))
		b.reply(ctx, ch, msg, purgeFailReply)
		return outcomeError
	}
	if !allowed {
		b.reply(ctx, ch, msg, noPermissionReply)
		return outcomeDenied
	}

	amount, err := strconv.Atoi(strings.TrimSpace(msg.Args))
	if err != nil || amount < 1 || amount > MaxPurge {
		b.reply(ctx, ch, msg, purgeRangeReply)
		return outcomeInvalid
	}

	deleted, err := purgeMessages(ctx, mod, msg.ChatID, amount)
	if err != nil {
		b.logError("purge", err)
		// The command message itself may already be gone.
		b.send(ctx, ch, channel.OutboundMessage{ChatID: msg.ChatID, Text: purgeFailReply})
		return outcomeError
	}
	log.Printf("[agent] purged %d messages in %s", deleted, msg.ChatID)
	b.send(ctx, ch, channel.OutboundMessage{ChatID: msg.ChatID, Text: fmt.Sprintf(purgeSuccessFormat, deleted)})
	return outcomeOK
}

// purgeMessages removes up to amount recent messages, at most purgeBatch per
// call. It stops early when the history runs out.
func purgeMessages(ctx context.Context, mod channel.Moderator, chatID string, amount int) (int, error) {
	deleted, remaining := 0, amount
	for remaining > 0 {
		ids, err := mod.RecentMessages(ctx, chatID, min(remaining, purgeBatch))
		if err != nil {
			return deleted, fmt.Errorf("list messages: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		n, err := mod.DeleteMessages(ctx, chatID, ids)
		if err != nil {
			return deleted, fmt.Errorf("delete messages: %w", err)
		}
		deleted += n
		remaining -= len(ids)
	}
	return deleted, nil
}
