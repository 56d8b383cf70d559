package channel

import (
	"context"
	"errors"
	"time"
)

// ErrNotRunning is returned by Send when the channel has not been started.
var ErrNotRunning = errors.New("channel not running")

// User identifies an account on a chat platform.
type User struct {
	ID       string
	Username string
	Name     string
}

// Reply describes the message an inbound message replies to.
type Reply struct {
	MessageID    string
	AuthorID     string
	AuthorIsSelf bool
	Text         string
}

// InboundMessage is a message received from a channel.
type InboundMessage struct {
	MessageID   string
	ChannelName string
	SenderID    string
	SenderName  string
	// SenderUsername is the sender's "@handle", empty when they have none.
	SenderUsername string
	ChatID         string
	// GuildID is set for group chats and empty for direct messages.
	GuildID string
	Text    string
	// Command is set for slash commands, without the leading slash.
	Command string
	Args    string
	// Mentions lists mentioned user IDs other than the bot, in order.
	Mentions     []string
	MentionsSelf bool
	FromSelf     bool
	ReplyTo      *Reply
	Timestamp    time.Time
}

// IsGroup reports whether the message came from a group chat.
func (m InboundMessage) IsGroup() bool { return m.GuildID != "" }

// File is a binary attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// OutboundMessage is a message to send through a channel.
type OutboundMessage struct {
	ChatID  string
	Text    string
	HTML    bool
	ReplyTo string // optional message ID to reply to
	File    *File
}

// Channel is the interface for messaging integrations.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	OnMessage(handler func(InboundMessage))
	IsRunning() bool
	// Self returns the bot's own account. Valid after Start.
	Self() User
	// Mention renders a user reference suitable for message text.
	Mention(ctx context.Context, userID string) (string, error)
}

// Typer is implemented by channels that can show a typing indicator.
type Typer interface {
	Typing(ctx context.Context, chatID string) error
}

// Moderator is implemented by channels that support bulk message deletion.
type Moderator interface {
	CanManageMessages(ctx context.Context, chatID, userID string) (bool, error)
	// RecentMessages returns up to limit message IDs, newest first.
	RecentMessages(ctx context.Context, chatID string, limit int) ([]string, error)
	// DeleteMessages deletes ids and returns how many were removed.
	DeleteMessages(ctx context.Context, chatID string, ids []string) (int, error)
}
