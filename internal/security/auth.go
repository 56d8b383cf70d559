package security

import "strings"

// Authorizer checks if a user is allowed to interact with the bot. Entries
// are platform user IDs or "@username" handles, matched case-insensitively.
type Authorizer struct {
	allowed map[string]bool
}

// NewAuthorizer creates an authorizer with the given allowed user IDs.
// If the list is empty, all users are allowed.
func NewAuthorizer(allowedIDs []string) *Authorizer {
	m := make(map[string]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		if id = strings.TrimSpace(id); id != "" {
			m[strings.ToLower(id)] = true
		}
	}
	return &Authorizer{allowed: m}
}

// IsAllowed returns true if any of the user's identifiers is authorized.
func (a *Authorizer) IsAllowed(ids ...string) bool {
	if a == nil || len(a.allowed) == 0 {
		return true // no allowlist = allow all
	}
	for _, id := range ids {
		if id != "" && a.allowed[strings.ToLower(id)] {
			return true
		}
	}
	return false
}
