package memory

import "github.com/agentgraph/agentgraph/guardrail"

// View is a permission-scoped handle onto a SharedMemory, restricting which
// keys a node may read or write. A View holds
// no state of its own beyond the scope sets (plus an optional isolation
// policy); all reads/writes delegate to the backing SharedMemory, so two
// views over the same backing store always see each other's committed
// writes.
type View struct {
	backing   *SharedMemory
	readable  map[string]bool
	writable  map[string]bool
	isolation guardrail.IsolationPolicy
	sessionID string
}

// WithIsolation attaches a data-isolation policy and the session the view
// is scoped to, and returns v so it chains onto WithPermissions. Every
// subsequent Read/ReadAll is checked against policy.DeniedKeyPatterns.
// Since a View is always read within the one session that owns it, the
// caller and owner session passed to guardrail.CheckAccess are the same:
// only the denylist-pattern half of the isolation check is meaningful
// here, not the cross-session sharing half.
func (v *View) WithIsolation(policy guardrail.IsolationPolicy, sessionID string) *View {
	v.isolation = policy
	v.sessionID = sessionID
	return v
}

// Read returns key's value if the view's scope and isolation policy permit
// reading it.
func (v *View) Read(key string) (interface{}, error) {
	if !v.readable[key] {
		return nil, &PermissionDeniedError{Key: key, Op: "read"}
	}
	if ok, reason := guardrail.CheckAccess(v.isolation, key, v.sessionID, v.sessionID); !ok {
		return nil, &PermissionDeniedError{Key: key, Op: "read", Reason: reason}
	}
	val, _ := v.backing.Read(key)
	return val, nil
}

// Write stores value under key if the view's scope permits writing it.
func (v *View) Write(key string, value interface{}, validate bool) error {
	if !v.writable[key] {
		return &PermissionDeniedError{Key: key, Op: "write"}
	}
	return v.backing.Write(key, value, validate)
}

// ReadAll returns a deep copy restricted to the keys this view may read.
// Keys in the readable set that are absent from the backing store, or that
// the isolation policy's denylist patterns reject, are simply omitted,
// matching Read's "not present" behavior.
func (v *View) ReadAll() map[string]interface{} {
	full := v.backing.ReadAll()
	out := make(map[string]interface{}, len(v.readable))
	for key := range v.readable {
		val, ok := full[key]
		if !ok {
			continue
		}
		if ok, _ := guardrail.CheckAccess(v.isolation, key, v.sessionID, v.sessionID); !ok {
			continue
		}
		out[key] = val
	}
	return out
}

// CanRead reports whether key is in the view's read scope.
func (v *View) CanRead(key string) bool { return v.readable[key] }

// CanWrite reports whether key is in the view's write scope.
func (v *View) CanWrite(key string) bool { return v.writable[key] }
