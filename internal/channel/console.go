package channel

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const consoleChatID = "console"

var (
	consoleMention = regexp.MustCompile(`@(\w+)`)
	htmlTag        = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// ConsoleChannel is a local channel that reads lines from stdin and writes
// replies to stdout. Lines starting with "/" are commands; "@name" tokens are
// mentions and "> text | message" simulates a reply.
type ConsoleChannel struct {
	mu      sync.Mutex
	self    User
	in      io.Reader
	out     io.Writer
	outDir  string
	handler func(InboundMessage)
	running bool
	cancel  context.CancelFunc
	seq     atomic.Int64
}

func NewConsoleChannel(botName string) *ConsoleChannel {
	return NewConsoleChannelIO(botName, os.Stdin, os.Stdout)
}

// NewConsoleChannelIO creates a console channel over arbitrary streams.
func NewConsoleChannelIO(botName string, in io.Reader, out io.Writer) *ConsoleChannel {
	return &ConsoleChannel{
		self:   User{ID: botName, Username: botName, Name: botName},
		in:     in,
		out:    out,
		outDir: os.TempDir(),
	}
}

func (c *ConsoleChannel) Name() string { return "console" }

func (c *ConsoleChannel) Self() User { return c.self }

func (c *ConsoleChannel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	go c.readLoop(ctx)
	return nil
}

func (c *ConsoleChannel) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.running = false
	return nil
}

func (c *ConsoleChannel) Send(_ context.Context, msg OutboundMessage) error {
	text := msg.Text
	if msg.HTML {
		text = html.UnescapeString(htmlTag.ReplaceAllString(text, ""))
	}
	if msg.File != nil {
		path := filepath.Join(c.outDir, fmt.Sprintf("scottbot-%d-%s", time.Now().UnixNano(), msg.File.Name))
		if err := os.WriteFile(path, msg.File.Data, 0600); err != nil {
			return fmt.Errorf("console write file: %w", err)
		}
		text = strings.TrimSpace(text + "\n[file saved to " + path + "]")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "\n[%s]: %s\n\n> ", c.self.Name, text)
	return err
}

// Mention renders userID as an @handle.
func (c *ConsoleChannel) Mention(_ context.Context, userID string) (string, error) {
	if strings.HasPrefix(userID, "@") {
		return userID, nil
	}
	return "@" + userID, nil
}

func (c *ConsoleChannel) OnMessage(handler func(InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

func (c *ConsoleChannel) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *ConsoleChannel) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	c.prompt()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			c.prompt()
			continue
		}

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()

		if handler != nil {
			handler(c.parseLine(text))
		}
	}
}

func (c *ConsoleChannel) prompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, "> ")
}

func (c *ConsoleChannel) parseLine(line string) InboundMessage {
	msg := InboundMessage{
		MessageID:   strconv.FormatInt(c.seq.Add(1), 10),
		ChannelName: c.Name(),
		SenderID:    "local",
		SenderName:  "User",
		ChatID:      consoleChatID,
		Timestamp:   time.Now(),
	}

	if strings.HasPrefix(line, ">") {
		if quoted, rest, ok := strings.Cut(line[1:], "|"); ok {
			quoted = strings.TrimSpace(quoted)
			msg.ReplyTo = &Reply{Text: quoted}
			line = strings.TrimSpace(rest)
		}
	}
	msg.Text = line

	if strings.HasPrefix(line, "/") {
		cmd, args, _ := strings.Cut(line[1:], " ")
		msg.Command = strings.ToLower(cmd)
		msg.Args = strings.TrimSpace(args)
	}

	for _, m := range consoleMention.FindAllStringSubmatch(line, -1) {
		if strings.EqualFold(m[1], c.self.Username) {
			msg.MentionsSelf = true
			continue
		}
		msg.Mentions = append(msg.Mentions, "@"+m[1])
	}
	return msg
}
