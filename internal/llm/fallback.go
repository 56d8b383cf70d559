package llm

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// Order decides which backend is tried first. It is fixed for the process.
type Order int

const (
	PrimaryFirst Order = iota
	BackupFirst
)

func (o Order) String() string {
	if o == BackupFirst {
		return "backup-first"
	}
	return "primary-first"
}

// ParseOrder maps a selector to an Order. Unknown selectors report ok=false
// and yield PrimaryFirst.
func ParseOrder(selector string) (Order, bool) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "", "primary-first", "primary", "gemini":
		return PrimaryFirst, true
	case "backup-first", "backup", "perplexity", "sonar":
		return BackupFirst, true
	default:
		return PrimaryFirst, false
	}
}

// Backend pairs a provider with the persona its prompts are built with.
type Backend struct {
	Provider Provider
	Persona  string
}

// Attempt records one provider call made by a Chain.
type Attempt struct {
	Provider string
	Duration time.Duration
	Err      error
}

// ErrAllProvidersFailed matches any FailoverError.
var ErrAllProvidersFailed = errors.New("all providers failed")

// FailoverError is returned when every backend in the chain failed.
type FailoverError struct {
	Attempts []Attempt
}

func (e *FailoverError) Error() string {
	names := make([]string, len(e.Attempts))
	details := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Provider
		details[i] = a.Err.Error()
	}
	return "both " + strings.Join(names, " and ") + " failed: " + strings.Join(details, "; ")
}

func (e *FailoverError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

func (e *FailoverError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// Chain tries backends in order. Any error moves on to the next backend.
type Chain struct {
	backends []Backend
	hook     func(Attempt)
}

// NewChain orders primary and backup according to order.
func NewChain(order Order, primary, backup Backend) *Chain {
	backends := []Backend{primary, backup}
	if order == BackupFirst {
		backends = []Backend{backup, primary}
	}
	return &Chain{backends: backends}
}

// OnAttempt registers a callback invoked after every provider call.
func (c *Chain) OnAttempt(hook func(Attempt)) {
	c.hook = hook
}

// Names returns provider names in call order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Provider.Name()
	}
	return names
}

// Complete builds a request per backend with that backend's persona and
// returns the first successful completion with the provider name.
func (c *Chain) Complete(ctx context.Context, build func(persona string) *CompletionRequest) (*Completion, string, error) {
	var attempts []Attempt
	for i, b := range c.backends {
		name := b.Provider.Name()
		start := time.Now()
		resp, err := b.Provider.Complete(ctx, build(b.Persona))
		attempt := Attempt{Provider: name, Duration: time.Since(start), Err: err}
		if c.hook != nil {
			c.hook(attempt)
		}
		if err == nil {
			log.Printf("[llm] using %s for response (len=%d) in %.2fs", name, len(resp.Text), attempt.Duration.Seconds())
			return resp, name, nil
		}
		attempts = append(attempts, attempt)
		// Error text can carry upstream bodies; callers log it redacted.
		if i < len(c.backends)-1 {
			log.Printf("[llm] provider %s failed (%s), falling back to %s", name, Classify(err), c.backends[i+1].Provider.Name())
		} else {
			log.Printf("[llm] provider %s failed (%s)", name, Classify(err))
		}
	}
	return nil, "", &FailoverError{Attempts: attempts}
}
