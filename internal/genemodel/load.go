package genemodel

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a versioned table set from a YAML file and validates it.
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gene tables %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load gene tables %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML table set. Unknown keys are rejected so typos do not
// silently fall back to zero values.
func Parse(data []byte) (*Tables, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Tables
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode gene tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Load returns the tables at path, or the built-in VHL tables when path is empty.
func Load(path string) (*Tables, error) {
	if path == "" {
		return VHL(), nil
	}
	return LoadFile(path)
}

// WriteYAML encodes the tables so they can be edited and reloaded with LoadFile.
func (t *Tables) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode gene tables: %w", err)
	}
	return enc.Close()
}
