package security

import (
	"regexp"
	"strings"
	"sync"
)

// tokenPatterns match credentials that upstream error bodies sometimes echo.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{12,}`),
	regexp.MustCompile(`\bpplx-[A-Za-z0-9]{12,}`),
	regexp.MustCompile(`\bhf_[A-Za-z0-9]{12,}`),
	regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{20,}`),
	regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_\-]{30,}`), // Telegram bot token
}

// Redactor masks known secrets and token-shaped strings before text is logged.
type Redactor struct {
	mu      sync.RWMutex
	secrets []string
}

func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		r.Add(s)
	}
	return r
}

// Add registers a literal secret. Short values are ignored.
func (r *Redactor) Add(secret string) {
	if len(secret) < 8 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets = append(r.secrets, secret)
}

// Redact returns text with every registered secret and token pattern masked.
func (r *Redactor) Redact(text string) string {
	if r == nil || text == "" {
		return text
	}
	r.mu.RLock()
	for _, s := range r.secrets {
		text = strings.ReplaceAll(text, s, MaskKey(s))
	}
	r.mu.RUnlock()

	for _, p := range tokenPatterns {
		text = p.ReplaceAllStringFunc(text, MaskKey)
	}
	return text
}
