package guardrail

import "path/filepath"

// IsolationPolicy configures the data-isolation check applied to memory
// access operations annotated as sensitive.
type IsolationPolicy struct {
	DeniedKeyPatterns  []string // glob patterns, matched via filepath.Match semantics
	AllowedSharedKeys  map[string]bool
}

// CheckAccess reports whether accessing key from callerSessionID, when the
// data belongs to ownerSessionID, is permitted.
func CheckAccess(policy IsolationPolicy, key, callerSessionID, ownerSessionID string) (bool, string) {
	for _, pattern := range policy.DeniedKeyPatterns {
		if matched, _ := filepath.Match(pattern, key); matched {
			return false, "key " + key + " matches a denylisted pattern"
		}
	}
	if callerSessionID != ownerSessionID && !policy.AllowedSharedKeys[key] {
		return false, "key " + key + " is not shared across sessions"
	}
	return true, ""
}
