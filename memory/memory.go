package memory

import "sync"

// SharedMemory is the process-local keyed scratchpad representing a run's
// working state. All operations are synchronous; callers
// needing cross-run sharing should route through the session/episodic
// layers instead, which own their own persistence and concurrency story.
type SharedMemory struct {
	mu       sync.RWMutex
	data     map[string]interface{}
	schemas  *SchemaRegistry
}

// New returns an empty SharedMemory. schemas may be nil, in which case no
// key has a registered type contract and only the hallucination guard
// applies.
func New(schemas *SchemaRegistry) *SharedMemory {
	return &SharedMemory{
		data:    make(map[string]interface{}),
		schemas: schemas,
	}
}

// Write stores value under key. When validate is true (the default for
// node-authored writes), the value is checked against any registered
// schema for key and, for long string values, scanned for embedded code
// indicators. Pass validate=false only for trusted internal
// writes (e.g. the executor re-committing a value it already validated).
func (m *SharedMemory) Write(key string, value interface{}, validate bool) error {
	if validate {
		if m.schemas != nil {
			if err := m.schemas.Validate(key, value); err != nil {
				return err
			}
		}
		if s, ok := value.(string); ok && DetectHallucinatedCode(s) {
			return &WriteError{Key: key, Tag: TagHallucinatedCode, Msg: "value contains an embedded code indicator"}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = deepCopy(value)
	return nil
}

// Delete removes key. Used by the executor to roll back writes made
// during a failed node attempt, since writes inside a failed attempt
// must not be visible once the attempt is discarded.
func (m *SharedMemory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Read returns the value stored under key and whether it was present.
func (m *SharedMemory) Read(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// ReadAll returns a deep copy of the entire store. Mutating the returned
// map (or any nested container within it) must never affect what a later
// ReadAll returns, per SharedMemory's deep-copy discipline.
func (m *SharedMemory) ReadAll() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]interface{}, len(m.data))
	for k, v := range m.data {
		out[k] = deepCopy(v)
	}
	return out
}

// Keys returns the set of keys currently present, in no particular order.
func (m *SharedMemory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

// WithPermissions returns a View that restricts reads to readKeys and
// writes to writeKeys.
func (m *SharedMemory) WithPermissions(readKeys, writeKeys []string) *View {
	return &View{
		backing:   m,
		readable:  toSet(readKeys),
		writable:  toSet(writeKeys),
	}
}

func toSet(keys []string) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out
}

// deepCopy recursively copies maps and slices; primitive values (strings,
// numbers, bools, nil) and opaque struct values are returned as-is since
// they're immutable or owned by value semantics in Go.
func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	default:
		return v
	}
}
