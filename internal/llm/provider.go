package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider is the interface all completion backends implement.
type Provider interface {
	// Complete sends one prompt and returns the generated text.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// Name returns the provider name (e.g. "gemini", "sonar").
	Name() string

	// DefaultModel returns the model used for requests.
	DefaultModel() string
}

// LLMError wraps an error with a classification.
type LLMError struct {
	Type       ErrorType
	Provider   string
	StatusCode int    // set for ErrorUpstream, ErrorAuth, ErrorRateLimit
	Body       string // upstream response body, if any
	Message    string
	Err        error
}

func (e *LLMError) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// ErrCredentialMissing is returned before any network call when a provider has no API key.
var ErrCredentialMissing = errors.New("credential missing")

func credentialMissing(provider, envHint string) *LLMError {
	return &LLMError{
		Type:     ErrorConfig,
		Provider: provider,
		Message:  envHint + " not set",
		Err:      ErrCredentialMissing,
	}
}

func malformed(provider, detail string) *LLMError {
	return &LLMError{
		Type:     ErrorMalformed,
		Provider: provider,
		Message:  "malformed response: " + detail,
	}
}

// statusError classifies a non-success HTTP status.
func statusError(provider string, code int, body string, err error) *LLMError {
	e := &LLMError{
		Provider:   provider,
		StatusCode: code,
		Body:       body,
		Message:    fmt.Sprintf("status %d", code),
		Err:        err,
	}
	switch {
	case code == 401 || code == 403:
		e.Type = ErrorAuth
	case code == 429:
		e.Type = ErrorRateLimit
	default:
		e.Type = ErrorUpstream
	}
	return e
}

// transportError classifies errors that never produced an HTTP status.
func transportError(provider string, err error) *LLMError {
	e := &LLMError{Provider: provider, Message: "request failed", Err: err}
	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline"):
		e.Type = ErrorTimeout
	case strings.Contains(lower, "connection"), strings.Contains(lower, "dns"),
		strings.Contains(lower, "refused"), strings.Contains(lower, "no such host"):
		e.Type = ErrorNetwork
	default:
		e.Type = ErrorUnknown
	}
	return e
}

// Classify returns the ErrorType of err, or ErrorUnknown.
func Classify(err error) ErrorType {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorUnknown
}
