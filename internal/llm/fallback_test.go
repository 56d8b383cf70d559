package llm

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
)

type stubProvider struct {
	name    string
	text    string
	err     error
	prompts []string
}

func (s *stubProvider) Name() string         { return s.name }
func (s *stubProvider) DefaultModel() string { return "stub" }
func (s *stubProvider) Complete(_ context.Context, req *CompletionRequest) (*Completion, error) {
	s.prompts = append(s.prompts, req.Prompt())
	if s.err != nil {
		return nil, s.err
	}
	return &Completion{Text: s.text}, nil
}

func buildFor(user string) func(string) *CompletionRequest {
	return func(persona string) *CompletionRequest {
		return NewCompletionRequest(persona, "", user)
	}
}

func TestChainPrimaryFirst(t *testing.T) {
	primary := &stubProvider{name: "gemini", text: "from gemini"}
	backup := &stubProvider{name: "sonar", text: "from sonar"}
	chain := NewChain(PrimaryFirst, Backend{primary, "P"}, Backend{backup, "B"})

	resp, name, err := chain.Complete(context.Background(), buildFor("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "gemini" || resp.Text != "from gemini" {
		t.Fatalf("unexpected %s %q", name, resp.Text)
	}
	if len(backup.prompts) != 0 {
		t.Fatal("backup should not be called")
	}
}

func TestChainFailsOverWithBackupPersona(t *testing.T) {
	primary := &stubProvider{name: "gemini", err: credentialMissing("gemini", "GEMINI_API_KEY")}
	backup := &stubProvider{name: "sonar", text: "from sonar"}
	chain := NewChain(PrimaryFirst, Backend{primary, "PRIMARY PERSONA"}, Backend{backup, "BACKUP PERSONA"})

	var attempts []Attempt
	chain.OnAttempt(func(a Attempt) { attempts = append(attempts, a) })

	resp, name, err := chain.Complete(context.Background(), buildFor("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "sonar" || resp.Text != "from sonar" {
		t.Fatalf("unexpected %s %q", name, resp.Text)
	}
	if !strings.HasPrefix(backup.prompts[0], "BACKUP PERSONA") {
		t.Fatalf("backup prompt built with wrong persona: %q", backup.prompts[0])
	}
	if len(attempts) != 2 || attempts[0].Err == nil || attempts[1].Err != nil {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
}

func TestChainBackupFirst(t *testing.T) {
	primary := &stubProvider{name: "gemini", text: "from gemini"}
	backup := &stubProvider{name: "sonar", text: "from sonar"}
	chain := NewChain(BackupFirst, Backend{primary, "P"}, Backend{backup, "B"})

	if got := chain.Names(); got[0] != "sonar" || got[1] != "gemini" {
		t.Fatalf("unexpected order %v", got)
	}
	_, name, err := chain.Complete(context.Background(), buildFor("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "sonar" {
		t.Fatalf("expected sonar, got %s", name)
	}
}

func TestChainBothFail(t *testing.T) {
	upstream := statusError("sonar", 503, "overloaded", nil)
	primary := &stubProvider{name: "gemini", err: errors.New("boom")}
	backup := &stubProvider{name: "sonar", err: upstream}
	chain := NewChain(PrimaryFirst, Backend{primary, "P"}, Backend{backup, "B"})

	_, _, err := chain.Complete(context.Background(), buildFor("hi"))
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
	var fe *FailoverError
	if !errors.As(err, &fe) || len(fe.Attempts) != 2 {
		t.Fatalf("expected two attempts, got %v", err)
	}
	if !strings.Contains(err.Error(), "gemini") || !strings.Contains(err.Error(), "sonar") {
		t.Fatalf("error should name both providers: %v", err)
	}
	if Classify(err) != ErrorUpstream {
		t.Fatalf("expected upstream classification, got %s", Classify(err))
	}
}

func TestChainLogsErrorTypeOnly(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	leaky := &LLMError{
		Type:     ErrorAuth,
		Provider: "gemini",
		Message:  "request failed",
		Err:      errors.New(`401 {"error":"bad key sk-abcdefghijklmnopqrstuv"}`),
	}
	primary := &stubProvider{name: "gemini", err: leaky}
	backup := &stubProvider{name: "sonar", text: "ok"}
	chain := NewChain(PrimaryFirst, Backend{primary, "P"}, Backend{backup, "B"})

	if _, _, err := chain.Complete(context.Background(), buildFor("hi")); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "sk-abcdefghijklmnopqrstuv") || strings.Contains(out, "bad key") {
		t.Fatalf("upstream error text leaked into the log: %s", out)
	}
	if !strings.Contains(out, "provider gemini failed (auth), falling back to sonar") {
		t.Fatalf("unexpected log: %s", out)
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in   string
		want Order
		ok   bool
	}{
		{"", PrimaryFirst, true},
		{"gemini", PrimaryFirst, true},
		{"primary-first", PrimaryFirst, true},
		{"Perplexity", BackupFirst, true},
		{"sonar", BackupFirst, true},
		{"backup-first", BackupFirst, true},
		{"llama", PrimaryFirst, false},
	}
	for _, tt := range tests {
		got, ok := ParseOrder(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseOrder(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
