package metadata

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of a metadata file.
type document struct {
	Entities []Entity `yaml:"entities"`
}

// Load reads a registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse reads a registry from YAML. Unknown keys are rejected so typos in
// field names surface instead of silently dropping a constraint.
func Parse(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return NewRegistry(doc.Entities...)
}
