package memory

import "fmt"

// WriteErrorTag classifies why a write was rejected.
type WriteErrorTag string

const (
	TagSchemaMismatch   WriteErrorTag = "schema_mismatch"
	TagHallucinatedCode WriteErrorTag = "hallucinated_code"
)

// WriteError is returned by SharedMemory.Write when validation rejects a
// value. It carries the offending key and a tag so callers (and the
// executor's error taxonomy) can distinguish failure modes
// without string-matching the message.
type WriteError struct {
	Key string
	Tag WriteErrorTag
	Msg string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("memory: write %q rejected (%s): %s", e.Key, e.Tag, e.Msg)
}

// PermissionDeniedError is returned by a scoped View when a read or write
// falls outside the keys the view was granted.
type PermissionDeniedError struct {
	Key    string
	Op     string // "read" or "write"
	Reason string // set when the denial came from the isolation check rather than view scope
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("memory: %s access to key %q denied (%s)", e.Op, e.Key, e.Reason)
	}
	return fmt.Sprintf("memory: %s access to key %q denied by scope", e.Op, e.Key)
}
