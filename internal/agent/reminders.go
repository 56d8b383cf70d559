package agent

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"

	"scottbot/internal/channel"
	"scottbot/internal/eventbus"
	"scottbot/internal/reminder"
)

const (
	tooFarReply    = "Sorry, I can only set reminders up to 30 days in the future."
	saveFailReply  = "Sorry, I couldn't save that reminder."
	confirmFormat  = "Okay, I will remind %s to '%s' in %s."
	deliveryFormat = "%s, here is your reminder: <b>%s</b>"
)

// handleReminder schedules a reminder when msg asks for one. It reports
// whether msg was consumed.
func (b *Bot) handleReminder(ctx context.Context, ch channel.Channel, msg channel.InboundMessage) bool {
	if b.reminders == nil || !reminder.Triggered(msg.Text) {
		return false
	}

	req, err := reminder.Parse(msg.Text, b.maxAhead)
	switch {
	case errors.Is(err, reminder.ErrNotReminder):
		return false
	case errors.Is(err, reminder.ErrTooFarAhead):
		log.Printf("[agent] rejected reminder from %s: %s is too far ahead", msg.SenderID, req.When)
		b.bus.Publish(eventbus.TopicReminderRejected, eventbus.ReminderEvent{
			UserID:    msg.SenderID,
			ChannelID: msg.ChatID,
			Err:       err,
		})
		b.reply(ctx, ch, msg, tooFarReply)
		return true
	case err != nil:
		b.logError("reminder", err)
		return false
	}

	target := msg.SenderID
	if len(msg.Mentions) > 0 {
		target = msg.Mentions[0]
	}

	r := reminder.New(target, msg.ChatID, req.Task, req.Delay, b.now())
	if err := b.reminders.Create(ctx, r); err != nil {
		b.logError("reminder", fmt.Errorf("create reminder: %w", err))
		b.reply(ctx, ch, msg, saveFailReply)
		return true
	}
	log.Printf("[agent] reminder %s set for %s in %s", r.ID, target, req.When)
	b.bus.Publish(eventbus.TopicReminderCreated, eventbus.ReminderEvent{
		ID:        r.ID,
		UserID:    r.UserID,
		ChannelID: r.ChannelID,
		Delay:     req.Delay,
	})

	mention := b.mention(ctx, ch, target)
	if target == msg.SenderID && mention == target && msg.SenderName != "" {
		mention = msg.SenderName
	}
	b.reply(ctx, ch, msg, fmt.Sprintf(confirmFormat, mention, req.Task, req.When))
	return true
}

// DeliverReminder sends a due reminder to the channel its chat was last seen
// on. It is the poller's Deliverer.
func (b *Bot) DeliverReminder(ctx context.Context, r reminder.Reminder) error {
	ch, ok := b.channels.ForChat(r.ChannelID)
	if !ok {
		return fmt.Errorf("no channel for chat %s", r.ChannelID)
	}
	mention := b.mention(ctx, ch, r.UserID)
	return b.send(ctx, ch, channel.OutboundMessage{
		ChatID: r.ChannelID,
		Text:   fmt.Sprintf(deliveryFormat, html.EscapeString(mention), html.EscapeString(r.Text)),
		HTML:   true,
	})
}

// ReminderResult reports one delivery outcome from the poller.
func (b *Bot) ReminderResult(r reminder.Reminder, err error) {
	ev := eventbus.ReminderEvent{ID: r.ID, UserID: r.UserID, ChannelID: r.ChannelID, Err: err}
	if err != nil {
		b.bus.Publish(eventbus.TopicReminderFailed, ev)
		return
	}
	b.bus.Publish(eventbus.TopicReminderSent, ev)
}

// mention renders userID for ch, falling back to the raw ID.
func (b *Bot) mention(ctx context.Context, ch channel.Channel, userID string) string {
	m, err := ch.Mention(ctx, userID)
	if err != nil || m == "" {
		if err != nil {
			log.Printf("[agent] could not resolve mention for %s: %v", userID, err)
		}
		return userID
	}
	return m
}
