package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/handlescan/handlescan/internal/core"
)

type registryFile struct {
	Platforms []core.Rule `yaml:"platforms"`
}

// Load parses a registry from YAML bytes. The document carries a single
// `platforms` list of rules validated exactly like the built-in table.
func Load(source string, data []byte) (*Registry, error) {
	var parsed registryFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", source, err)
	}
	if len(parsed.Platforms) == 0 {
		return nil, fmt.Errorf("registry %s contains no platforms", source)
	}

	reg, err := New(parsed.Platforms)
	if err != nil {
		return nil, fmt.Errorf("validate registry %s: %w", source, err)
	}
	return reg, nil
}

// LoadFile reads and parses a registry definition from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- Registry path is user-provided
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return Load(path, data)
}
