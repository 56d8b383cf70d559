package memory

import (
	"sync"
	"testing"
)

func TestSnapshotEmpty(t *testing.T) {
	var tr Transcript
	got, err := tr.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("expected empty snapshot, got %q", got)
	}
}

func TestAppendAndSnapshot(t *testing.T) {
	var tr Transcript
	tr.Append("Hello", "Hi there!")
	tr.Append("How are you?", "Fine.\nThanks.")

	got, _ := tr.Snapshot()
	want := "User: Hello\nAssistant: Hi there!\nUser: How are you?\nAssistant: Fine.\nThanks."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if n := len(tr.Turns()); n != 4 {
		t.Fatalf("expected 4 turns, got %d", n)
	}
}

func TestAppendSkipsEmpty(t *testing.T) {
	var tr Transcript
	tr.Append("", "only assistant")
	turns := tr.Turns()
	if len(turns) != 1 || turns[0].Role != RoleAssistant {
		t.Fatalf("unexpected turns %+v", turns)
	}
}

func TestIsolatedChannels(t *testing.T) {
	s := NewStore()
	s.Conversation("chat1").Append("chat1 msg", "ok")
	s.Conversation("chat2").Append("chat2 msg", "ok")

	h1, _ := s.Conversation("chat1").Snapshot()
	h2, _ := s.Conversation("chat2").Snapshot()
	if h1 != "User: chat1 msg\nAssistant: ok" {
		t.Fatalf("chat1 history incorrect: %q", h1)
	}
	if h2 != "User: chat2 msg\nAssistant: ok" {
		t.Fatalf("chat2 history incorrect: %q", h2)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 channels, got %d", s.Len())
	}
}

func TestLazyCreateReturnsSameTranscript(t *testing.T) {
	s := NewStore()
	if s.Conversation("c") != s.Conversation("c") {
		t.Fatal("expected the same transcript for a channel")
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Conversation("busy").Append("u", "a")
		}()
	}
	wg.Wait()
	if n := len(s.Conversation("busy").Turns()); n != 40 {
		t.Fatalf("expected 40 turns, got %d", n)
	}
}
