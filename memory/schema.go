package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaRegistry holds a compiled JSON Schema per memory key. A write to a
// key with a registered schema must validate against it; keys
// with no registered schema accept any JSON-representable value.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewSchemaRegistry returns an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles schemaJSON (a JSON Schema document) and associates it
// with key, replacing any schema previously registered for that key.
func (r *SchemaRegistry) Register(key string, schemaJSON []byte) error {
	compiler := jsonschema.NewCompiler()
	resourceName := "mem://" + key + ".json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("memory: schema %q: %w", key, err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("memory: compile schema %q: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[key] = schema
	return nil
}

// Has reports whether key has a registered schema.
func (r *SchemaRegistry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[key]
	return ok
}

// Validate checks value against key's registered schema. It is a no-op
// (returns nil) if key has no registered schema.
func (r *SchemaRegistry) Validate(key string, value interface{}) error {
	r.mu.RLock()
	schema, ok := r.schemas[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	// jsonschema validates decoded JSON values (map[string]interface{},
	// []interface{}, float64, string, bool, nil), so round-trip arbitrary
	// Go values through JSON to let callers pass native structs.
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory: marshal value for key %q: %w", key, err)
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("memory: decode value for key %q: %w", key, err)
	}

	if err := schema.Validate(decoded); err != nil {
		return &WriteError{Key: key, Tag: TagSchemaMismatch, Msg: err.Error()}
	}
	return nil
}
