package llm

import "strings"

// historyWindow is the number of transcript lines a prompt may carry.
const historyWindow = 12

// CompletionRequest is the input for a single completion call.
// It is rebuilt for every provider attempt and never stored.
type CompletionRequest struct {
	Persona  string `json:"persona"`
	History  string `json:"history,omitempty"` // at most historyWindow lines
	UserText string `json:"user_text"`
}

// NewCompletionRequest trims history to the last 12 lines and returns the request.
func NewCompletionRequest(persona, history, userText string) *CompletionRequest {
	return &CompletionRequest{
		Persona:  persona,
		History:  LastLines(history, historyWindow),
		UserText: userText,
	}
}

// Prompt renders the single prompt string sent to the model.
func (r *CompletionRequest) Prompt() string {
	if r.History == "" {
		return r.Persona + "\n\nUser: " + r.UserText + "\nAssistant:"
	}
	return r.Persona + "\n\nConversation history:\n" + r.History + "\nUser: " + r.UserText + "\nAssistant:"
}

// LastLines keeps the last n newline-separated lines of s.
func LastLines(s string, n int) string {
	if s == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Completion is the response from a provider.
type Completion struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	Usage      Usage  `json:"usage"`
	StopReason string `json:"stop_reason"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ErrorType classifies provider errors for logging and metrics.
type ErrorType int

const (
	ErrorUnknown   ErrorType = iota
	ErrorConfig              // missing credential or endpoint
	ErrorRateLimit           // 429
	ErrorAuth                // 401/403
	ErrorUpstream            // other non-2xx
	ErrorMalformed           // unusable response body
	ErrorTimeout             // context deadline exceeded
	ErrorNetwork             // connection refused, DNS, etc.
)

func (t ErrorType) String() string {
	switch t {
	case ErrorConfig:
		return "config"
	case ErrorRateLimit:
		return "rate_limit"
	case ErrorAuth:
		return "auth"
	case ErrorUpstream:
		return "upstream"
	case ErrorMalformed:
		return "malformed"
	case ErrorTimeout:
		return "timeout"
	case ErrorNetwork:
		return "network"
	default:
		return "unknown"
	}
}
