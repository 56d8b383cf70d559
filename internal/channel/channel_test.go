package channel

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestConsoleParseLine(t *testing.T) {
	c := NewConsoleChannelIO("scottbott", strings.NewReader(""), &bytes.Buffer{})

	msg := c.parseLine("/imagine a red fox")
	if msg.Command != "imagine" || msg.Args != "a red fox" {
		t.Fatalf("command = %q args = %q", msg.Command, msg.Args)
	}

	msg = c.parseLine("hey @scottbott remind @alice to stretch in 5 minutes")
	if !msg.MentionsSelf {
		t.Fatal("expected self mention")
	}
	if len(msg.Mentions) != 1 || msg.Mentions[0] != "@alice" {
		t.Fatalf("mentions = %v", msg.Mentions)
	}

	msg = c.parseLine("> what is 2+2 | scottbott explain that")
	if msg.ReplyTo == nil || msg.ReplyTo.Text != "what is 2+2" {
		t.Fatalf("reply = %+v", msg.ReplyTo)
	}
	if msg.Text != "scottbott explain that" {
		t.Fatalf("text = %q", msg.Text)
	}
	if msg.IsGroup() {
		t.Fatal("console is not a group chat")
	}
}

func TestConsoleSendHTML(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleChannelIO("scottbott", strings.NewReader(""), &out)

	err := c.Send(context.Background(), OutboundMessage{
		ChatID: "console",
		Text:   "@bob, here is your reminder: <b>eat &amp; sleep</b>",
		HTML:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "here is your reminder: eat & sleep") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestConsoleSendFile(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleChannelIO("scottbott", strings.NewReader(""), &out)
	c.outDir = t.TempDir()

	err := c.Send(context.Background(), OutboundMessage{
		ChatID: "console",
		File:   &File{Name: "image.png", ContentType: "image/png", Data: []byte("x")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "image.png") {
		t.Fatalf("expected saved path in output, got %q", out.String())
	}
}

func TestConsoleReadLoop(t *testing.T) {
	in := strings.NewReader("hello\n\n/purge 5\n")
	c := NewConsoleChannelIO("scottbott", in, &bytes.Buffer{})

	got := make(chan InboundMessage, 2)
	c.OnMessage(func(m InboundMessage) { got <- m })
	c.readLoop(context.Background())

	first, second := <-got, <-got
	if first.Text != "hello" || second.Command != "purge" || second.Args != "5" {
		t.Fatalf("got %+v then %+v", first, second)
	}
	if first.MessageID == second.MessageID {
		t.Fatal("message IDs should be unique")
	}
}

func TestConsoleMention(t *testing.T) {
	c := NewConsoleChannelIO("scottbott", strings.NewReader(""), &bytes.Buffer{})
	for in, want := range map[string]string{"local": "@local", "@alice": "@alice"} {
		got, err := c.Mention(context.Background(), in)
		if err != nil || got != want {
			t.Errorf("Mention(%q) = %q, %v", in, got, err)
		}
	}
}

func TestManagerForChat(t *testing.T) {
	m := NewManager()
	if _, ok := m.ForChat("x"); ok {
		t.Fatal("empty manager should have no channel")
	}

	primary := NewConsoleChannelIO("a", strings.NewReader(""), &bytes.Buffer{})
	tg := NewTelegramChannel(TelegramConfig{Token: "t"})
	m.Register(tg)
	m.Register(primary)

	ch, ok := m.ForChat("42")
	if !ok || ch.Name() != "telegram" {
		t.Fatalf("expected primary telegram channel, got %v", ch)
	}

	m.Track("console", "console")
	ch, _ = m.ForChat("console")
	if ch.Name() != "console" {
		t.Fatalf("expected tracked console channel, got %s", ch.Name())
	}
}

func TestManagerOnMessageTracks(t *testing.T) {
	m := NewManager()
	c := NewConsoleChannelIO("bot", strings.NewReader("hi\n"), &bytes.Buffer{})
	m.Register(c)

	var seen []string
	m.OnMessage(func(msg InboundMessage) { seen = append(seen, msg.Text) })
	c.readLoop(context.Background())

	if len(seen) != 1 || seen[0] != "hi" {
		t.Fatalf("seen = %v", seen)
	}
	if m.chats["console"] != "console" {
		t.Fatal("inbound chat should be tracked")
	}
}
