package formatter

import (
	"encoding/json"
	"fmt"
	"os"
)

// MarshalCompact serializes a document without insignificant whitespace,
// the format used for per-route and schedule files.
func MarshalCompact(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndented serializes a document with two-space indentation, the
// format used for the manifest.
func MarshalIndented(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// WriteCompact writes a compact JSON document to path.
func WriteCompact(path string, v any) error {
	b, err := MarshalCompact(v)
	if err != nil {
		return fmt.Errorf("formatter: marshal %s: %w", path, err)
	}
	return writeFile(path, b)
}

// WriteIndented writes an indented JSON document to path.
func WriteIndented(path string, v any) error {
	b, err := MarshalIndented(v)
	if err != nil {
		return fmt.Errorf("formatter: marshal %s: %w", path, err)
	}
	return writeFile(path, b)
}

func writeFile(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("formatter: write %s: %w", path, err)
	}
	return nil
}
