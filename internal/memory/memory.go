// Package memory keeps short per-channel conversation transcripts for the
// lifetime of the process. Nothing is persisted.
package memory

import (
	"strings"
	"sync"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
)

// Turn is one line of the transcript.
type Turn struct {
	Role Role
	Text string
}

// Conversation is the history source prompts are built from.
type Conversation interface {
	// Snapshot returns the transcript as "Role: text" lines.
	Snapshot() (string, error)
}

// Transcript is the append-only history of one channel.
type Transcript struct {
	mu    sync.Mutex
	turns []Turn
}

// Append records a completed exchange. Empty sides are skipped.
func (t *Transcript) Append(userText, assistantText string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if userText != "" {
		t.turns = append(t.turns, Turn{Role: RoleUser, Text: userText})
	}
	if assistantText != "" {
		t.turns = append(t.turns, Turn{Role: RoleAssistant, Text: assistantText})
	}
}

// Snapshot never fails; an empty transcript yields "".
func (t *Transcript) Snapshot() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.turns) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for i, turn := range t.turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
	}
	return sb.String(), nil
}

// Turns returns a copy of the recorded turns.
func (t *Transcript) Turns() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Store maps channel IDs to transcripts, creating them on first access.
type Store struct {
	mu       sync.Mutex
	channels map[string]*Transcript
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{channels: make(map[string]*Transcript)}
}

// Conversation returns the transcript for channelID, creating it if needed.
func (s *Store) Conversation(channelID string) *Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.channels[channelID]
	if !ok {
		t = &Transcript{}
		s.channels[channelID] = t
	}
	return t
}

// Len returns the number of channels with a transcript.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}
