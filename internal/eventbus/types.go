package eventbus

import "time"

// Topic represents an event topic.
type Topic string

const (
	TopicInboundMessage   Topic = "inbound_message"
	TopicOutboundMessage  Topic = "outbound_message"
	TopicProviderAttempt  Topic = "provider_attempt"
	TopicFailover         Topic = "failover"
	TopicResponseRewrite  Topic = "response_rewrite"
	TopicCommand          Topic = "command"
	TopicReminderCreated  Topic = "reminder_created"
	TopicReminderRejected Topic = "reminder_rejected"
	TopicReminderSent     Topic = "reminder_sent"
	TopicReminderFailed   Topic = "reminder_failed"
	TopicError            Topic = "error"
)

// Event is a message passed through the event bus.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler processes an event.
type Handler func(Event)

// MessageEvent accompanies TopicInboundMessage and TopicOutboundMessage.
type MessageEvent struct {
	Channel string
	ChatID  string
	UserID  string
	Length  int
}

// AttemptEvent accompanies TopicProviderAttempt.
type AttemptEvent struct {
	Provider  string
	Duration  time.Duration
	Err       error
	ErrorType string
}

// FailoverEvent accompanies TopicFailover.
type FailoverEvent struct {
	From string
	To   string
	Err  error
}

// CommandEvent accompanies TopicCommand.
type CommandEvent struct {
	Name    string
	ChatID  string
	UserID  string
	Outcome string
}

// ReminderEvent accompanies the reminder topics.
type ReminderEvent struct {
	ID        string
	UserID    string
	ChannelID string
	Delay     time.Duration
	Err       error
}

// ErrorEvent accompanies TopicError.
type ErrorEvent struct {
	Component string
	Err       error
}
