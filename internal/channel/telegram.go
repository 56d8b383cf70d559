package channel

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v3"
)

const (
	telegramChunk = 4000
	// Message IDs remembered per chat for bulk deletion.
	historyPerChat = 1000
)

// TelegramChannel integrates with the Telegram Bot API.
type TelegramChannel struct {
	mu         sync.Mutex
	token      string
	apiURL     string
	client     *http.Client
	allowedIDs map[int64]bool
	bot        *tele.Bot
	handler    func(InboundMessage)
	running    bool
	history    *messageLog
}

// TelegramConfig holds Telegram-specific configuration.
type TelegramConfig struct {
	Token      string
	AllowedIDs []int64
	// APIURL overrides the Bot API endpoint.
	APIURL     string
	HTTPClient *http.Client
}

// NewTelegramChannel creates a new Telegram channel.
func NewTelegramChannel(cfg TelegramConfig) *TelegramChannel {
	allowed := make(map[int64]bool, len(cfg.AllowedIDs))
	for _, id := range cfg.AllowedIDs {
		allowed[id] = true
	}
	return &TelegramChannel{
		token:      cfg.Token,
		apiURL:     cfg.APIURL,
		client:     cfg.HTTPClient,
		allowedIDs: allowed,
		history:    newMessageLog(historyPerChat),
	}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	pref := tele.Settings{
		Token:  t.token,
		URL:    t.apiURL,
		Client: t.client,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Printf("[telegram] handler error: %v", err)
		},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.attach(bot)
	t.running = true
	log.Printf("[telegram] connected as @%s", bot.Me.Username)

	go bot.Start()

	// Stop bot when context is cancelled
	go func() {
		<-ctx.Done()
		bot.Stop()
	}()

	return nil
}

// attach registers handlers on bot. Callers hold t.mu.
func (t *TelegramChannel) attach(bot *tele.Bot) {
	bot.Handle(tele.OnText, t.dispatch(""))
	bot.Handle("/imagine", t.dispatch("imagine"))
	bot.Handle("/purge", t.dispatch("purge"))
	t.bot = bot
}

func (t *TelegramChannel) dispatch(command string) tele.HandlerFunc {
	return func(c tele.Context) error {
		msg := c.Message()
		sender := c.Sender()
		if msg == nil || sender == nil {
			return nil
		}
		t.history.add(msg.Chat.ID, msg.ID)

		if len(t.allowedIDs) > 0 && !t.allowedIDs[sender.ID] {
			log.Printf("[telegram] unauthorized user: %d (%s)", sender.ID, sender.Username)
			return nil // silently ignore
		}

		t.mu.Lock()
		handler := t.handler
		me := t.bot.Me
		t.mu.Unlock()

		if handler == nil {
			return nil
		}
		in := toInbound(msg, me)
		if command != "" {
			in.Command = command
			in.Args = strings.TrimSpace(msg.Payload)
		}
		handler(in)
		return nil
	}
}

// toInbound converts a Telegram message. Mentions of me are reported through
// MentionsSelf and left out of Mentions.
func toInbound(m *tele.Message, me *tele.User) InboundMessage {
	in := InboundMessage{
		MessageID:   strconv.Itoa(m.ID),
		ChannelName: "telegram",
		ChatID:      strconv.FormatInt(m.Chat.ID, 10),
		Text:        m.Text,
		Timestamp:   m.Time(),
	}
	if m.Sender != nil {
		in.SenderID = strconv.FormatInt(m.Sender.ID, 10)
		in.SenderName = strings.TrimSpace(m.Sender.FirstName + " " + m.Sender.LastName)
		if m.Sender.Username != "" {
			in.SenderUsername = "@" + m.Sender.Username
		}
		in.FromSelf = me != nil && m.Sender.ID == me.ID
	}
	if m.Chat.Type == tele.ChatGroup || m.Chat.Type == tele.ChatSuperGroup {
		in.GuildID = in.ChatID
	}

	for _, e := range m.Entities {
		switch e.Type {
		case tele.EntityMention:
			handle := m.EntityText(e)
			if me != nil && me.Username != "" && strings.EqualFold(handle, "@"+me.Username) {
				in.MentionsSelf = true
				continue
			}
			in.Mentions = append(in.Mentions, handle)
		case tele.EntityTMention:
			if e.User == nil {
				continue
			}
			if me != nil && e.User.ID == me.ID {
				in.MentionsSelf = true
				continue
			}
			in.Mentions = append(in.Mentions, strconv.FormatInt(e.User.ID, 10))
		}
	}

	if r := m.ReplyTo; r != nil {
		reply := &Reply{MessageID: strconv.Itoa(r.ID), Text: r.Text}
		if reply.Text == "" {
			reply.Text = r.Caption
		}
		if r.Sender != nil {
			reply.AuthorID = strconv.FormatInt(r.Sender.ID, 10)
			reply.AuthorIsSelf = me != nil && r.Sender.ID == me.ID
		}
		in.ReplyTo = reply
	}
	return in
}

func (t *TelegramChannel) Stop(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil && t.running {
		t.bot.Stop()
	}
	t.running = false
	return nil
}

func (t *TelegramChannel) Self() User {
	bot := t.currentBot()
	if bot == nil || bot.Me == nil {
		return User{}
	}
	return User{
		ID:       strconv.FormatInt(bot.Me.ID, 10),
		Username: bot.Me.Username,
		Name:     bot.Me.FirstName,
	}
}

func (t *TelegramChannel) currentBot() *tele.Bot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bot
}

func (t *TelegramChannel) Send(_ context.Context, msg OutboundMessage) error {
	bot := t.currentBot()
	if bot == nil {
		return fmt.Errorf("telegram: %w", ErrNotRunning)
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}
	recipient := &tele.Chat{ID: chatID}

	opts := &tele.SendOptions{}
	if msg.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	if msg.ReplyTo != "" {
		if id, err := strconv.Atoi(msg.ReplyTo); err == nil {
			opts.ReplyTo = &tele.Message{ID: id, Chat: recipient}
		}
	}

	if msg.File != nil {
		sent, err := bot.Send(recipient, attachment(msg.File, msg.Text), opts)
		if err != nil {
			return fmt.Errorf("telegram send file: %w", err)
		}
		t.history.add(chatID, sent.ID)
		return nil
	}

	for _, chunk := range splitRunes(msg.Text, telegramChunk) {
		sent, err := bot.Send(recipient, chunk, opts)
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		t.history.add(chatID, sent.ID)
	}
	return nil
}

func attachment(f *File, caption string) tele.Sendable {
	file := tele.FromReader(bytes.NewReader(f.Data))
	if strings.HasPrefix(f.ContentType, "image/") {
		return &tele.Photo{File: file, Caption: caption}
	}
	return &tele.Document{File: file, FileName: f.Name, MIME: f.ContentType, Caption: caption}
}

func splitRunes(text string, size int) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := min(size, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}

// Mention returns "@username" when the user has one, else their first name.
// IDs already in "@handle" form are returned unchanged.
func (t *TelegramChannel) Mention(_ context.Context, userID string) (string, error) {
	if strings.HasPrefix(userID, "@") {
		return userID, nil
	}
	bot := t.currentBot()
	if bot == nil {
		return "", fmt.Errorf("telegram: %w", ErrNotRunning)
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid user ID: %w", err)
	}
	chat, err := bot.ChatByID(id)
	if err != nil {
		return "", fmt.Errorf("telegram lookup %d: %w", id, err)
	}
	if chat.Username != "" {
		return "@" + chat.Username, nil
	}
	if chat.FirstName != "" {
		return chat.FirstName, nil
	}
	return userID, nil
}

func (t *TelegramChannel) Typing(_ context.Context, chatID string) error {
	bot := t.currentBot()
	if bot == nil {
		return fmt.Errorf("telegram: %w", ErrNotRunning)
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}
	return bot.Notify(&tele.Chat{ID: id}, tele.Typing)
}

// CanManageMessages reports whether userID may delete others' messages.
func (t *TelegramChannel) CanManageMessages(_ context.Context, chatID, userID string) (bool, error) {
	bot := t.currentBot()
	if bot == nil {
		return false, fmt.Errorf("telegram: %w", ErrNotRunning)
	}
	cid, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("invalid chat ID: %w", err)
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("invalid user ID: %w", err)
	}
	member, err := bot.ChatMemberOf(&tele.Chat{ID: cid}, &tele.User{ID: uid})
	if err != nil {
		return false, fmt.Errorf("telegram member lookup: %w", err)
	}
	switch member.Role {
	case tele.Creator:
		return true, nil
	case tele.Administrator:
		return member.CanDeleteMessages, nil
	}
	return false, nil
}

// RecentMessages returns IDs the bot has seen or sent in chatID, newest
// first. The Bot API has no history endpoint, so only messages observed
// since startup are known.
func (t *TelegramChannel) RecentMessages(_ context.Context, chatID string, limit int) ([]string, error) {
	cid, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	ids := t.history.recent(cid, limit)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}
	return out, nil
}

// DeleteMessages removes up to 100 messages in one call. The IDs are
// forgotten even when deletion fails so a purge loop always makes progress.
func (t *TelegramChannel) DeleteMessages(_ context.Context, chatID string, ids []string) (int, error) {
	bot := t.currentBot()
	if bot == nil {
		return 0, fmt.Errorf("telegram: %w", ErrNotRunning)
	}
	cid, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	msgs := make([]tele.Editable, 0, len(ids))
	numeric := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		numeric = append(numeric, n)
		msgs = append(msgs, tele.StoredMessage{MessageID: id, ChatID: cid})
	}
	t.history.forget(cid, numeric)

	if err := bot.DeleteMany(msgs); err != nil {
		return 0, fmt.Errorf("telegram delete: %w", err)
	}
	return len(msgs), nil
}

func (t *TelegramChannel) OnMessage(handler func(InboundMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *TelegramChannel) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// messageLog is a bounded per-chat record of message IDs.
type messageLog struct {
	mu    sync.Mutex
	limit int
	chats map[int64][]int
}

func newMessageLog(limit int) *messageLog {
	return &messageLog{limit: limit, chats: make(map[int64][]int)}
}

func (l *messageLog) add(chatID int64, msgID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := append(l.chats[chatID], msgID)
	if len(ids) > l.limit {
		ids = ids[len(ids)-l.limit:]
	}
	l.chats[chatID] = ids
}

func (l *messageLog) recent(chatID int64, n int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.chats[chatID]
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]int, 0, n)
	for i := len(ids) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, ids[i])
	}
	return out
}

func (l *messageLog) forget(chatID int64, msgIDs []int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	drop := make(map[int]bool, len(msgIDs))
	for _, id := range msgIDs {
		drop[id] = true
	}
	ids := l.chats[chatID]
	kept := ids[:0]
	for _, id := range ids {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	l.chats[chatID] = kept
}
