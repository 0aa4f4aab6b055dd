// Package credentials defines the CredentialStore interface provider
// adapters use to resolve API keys without depending on a specific
// secret backend. Only an environment-variable-backed implementation
// ships here; a production deployment wires in its own Vault- or
// KMS-backed Store behind the same interface.
package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Store resolves a named credential to its current value. Get returns
// an error rather than ("", false) so backends that fail open (a vault
// outage, a network partition) can distinguish "not configured" from
// "could not be reached", and callers that only care about presence can
// check for ErrNotFound with errors.Is.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// ErrNotFound is returned by a Store when key has no known value.
var ErrNotFound = fmt.Errorf("credentials: not found")

// EnvStore resolves credentials from process environment variables,
// uppercasing and prefixing the requested key the way most 12-factor
// deployments name their secrets (e.g. key "openai_api_key" with
// Prefix "AGENTGRAPH" resolves "AGENTGRAPH_OPENAI_API_KEY").
type EnvStore struct {
	Prefix string
}

// NewEnvStore returns an EnvStore using prefix for every lookup.
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{Prefix: prefix}
}

// Get looks up key in the process environment under envName(key).
func (s *EnvStore) Get(ctx context.Context, key string) (string, error) {
	name := s.envName(key)
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", fmt.Errorf("credentials: %s (env %s): %w", key, name, ErrNotFound)
	}
	return v, nil
}

func (s *EnvStore) envName(key string) string {
	name := strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	if s.Prefix == "" {
		return name
	}
	return strings.ToUpper(s.Prefix) + "_" + name
}
