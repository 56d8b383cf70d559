package agent

import (
	"log"

	"scottbot/internal/llm"
	"scottbot/internal/memory"
)

// BuildRequest assembles the completion request for one provider attempt.
// History is best-effort: a failed snapshot is treated as no history.
func BuildRequest(persona string, conv memory.Conversation, userText string) *llm.CompletionRequest {
	var history string
	if conv != nil {
		h, err := conv.Snapshot()
		if err != nil {
			log.Printf("[agent] could not load history, continuing without it: %v", err)
		} else {
			history = h
		}
	}
	return llm.NewCompletionRequest(persona, history, userText)
}

// BuildPrompt renders the prompt string BuildRequest would send.
func BuildPrompt(persona string, conv memory.Conversation, userText string) string {
	return BuildRequest(persona, conv, userText).Prompt()
}
