package agent

import (
	"context"
	"log"

	"scottbot/internal/eventbus"
	"scottbot/internal/llm"
	"scottbot/internal/memory"
	"scottbot/internal/security"
)

// Responder produces a reply for userText given the channel's history.
type Responder interface {
	GetResponse(ctx context.Context, userText string, conv memory.Conversation) (string, error)
}

// Orchestrator runs the provider chain. It owns no timeout; callers bound
// each call through ctx.
type Orchestrator struct {
	chain    *llm.Chain
	bus      *eventbus.Bus
	redactor *security.Redactor
}

// NewOrchestrator wraps chain and reports every attempt on bus. Failed
// attempts are logged through redactor, which may be nil.
func NewOrchestrator(chain *llm.Chain, bus *eventbus.Bus, redactor *security.Redactor) *Orchestrator {
	o := &Orchestrator{chain: chain, bus: bus, redactor: redactor}
	names := chain.Names()
	chain.OnAttempt(func(a llm.Attempt) {
		ev := eventbus.AttemptEvent{Provider: a.Provider, Duration: a.Duration, Err: a.Err}
		if a.Err != nil {
			ev.ErrorType = llm.Classify(a.Err).String()
			log.Printf("[agent] provider %s failed after %.2fs: %s",
				a.Provider, a.Duration.Seconds(), o.redactor.Redact(a.Err.Error()))
		}
		bus.Publish(eventbus.TopicProviderAttempt, ev)
		if a.Err != nil && len(names) > 1 && a.Provider == names[0] {
			bus.Publish(eventbus.TopicFailover, eventbus.FailoverEvent{From: names[0], To: names[1], Err: a.Err})
		}
	})
	return o
}

// Providers lists provider names in call order.
func (o *Orchestrator) Providers() []string {
	return o.chain.Names()
}

// GetResponse returns the first successful completion. It fails only when
// every provider failed, with an error matching llm.ErrAllProvidersFailed.
func (o *Orchestrator) GetResponse(ctx context.Context, userText string, conv memory.Conversation) (string, error) {
	resp, _, err := o.chain.Complete(ctx, func(persona string) *llm.CompletionRequest {
		return BuildRequest(persona, conv, userText)
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
