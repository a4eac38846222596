package dna

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads the document at path, choosing the codec by extension:
// ".json" selects the JSON form, everything else the binary container.
func Load(path string) (*Document, error) {
	if !isJSONPath(path) {
		return ReadFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dna: read %s: %w", path, err)
	}
	doc, err := DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes the document to path using the codec matching its
// extension, mirroring Load.
func Save(path string, d *Document) error {
	if !isJSONPath(path) {
		return WriteFile(path, d)
	}
	data, err := EncodeJSON(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dna: write %s: %w", path, err)
	}
	return nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
