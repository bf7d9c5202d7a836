package manifest

import (
	"bytes"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Load parses YAML bytes into a Manifest, validates it, and normalizes
// schemas and params into JSON-shaped values.
func Load(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	if err := normalizeManifest(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
