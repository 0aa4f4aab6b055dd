package graphspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses a GraphSpec from YAML and validates it, returning any
// non-fatal warnings alongside the loaded graph. Authoring graphs as YAML
// (rather than only through the Go builder API) lets operators ship new
// agent behavior without a recompile.
func LoadYAML(data []byte) (*GraphSpec, []ValidationWarning, error) {
	var g GraphSpec
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, nil, fmt.Errorf("graphspec: parse yaml: %w", err)
	}
	warnings, err := g.Validate()
	if err != nil {
		return nil, warnings, err
	}
	return &g, warnings, nil
}

// LoadYAMLFile reads path and delegates to LoadYAML.
func LoadYAMLFile(path string) (*GraphSpec, []ValidationWarning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("graphspec: read %s: %w", path, err)
	}
	return LoadYAML(data)
}

// MarshalYAML serializes g back to YAML, e.g. for dynamically-mutated
// graphs that need to be checkpointed alongside session state.
func MarshalYAML(g *GraphSpec) ([]byte, error) {
	return yaml.Marshal(g)
}
