package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a story document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported story file extension: %s", filepath.Ext(path))
	}
}

// IDFromPath returns the story id for a file: its base name without extension.
func IDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Parse decodes and validates a story document.
func Parse(data []byte, format Format) (*Story, error) {
	return parse(data, format, false)
}

// ParseStrict is Parse but rejects unknown fields.
func ParseStrict(data []byte, format Format) (*Story, error) {
	return parse(data, format, true)
}

func parse(data []byte, format Format, strict bool) (*Story, error) {
	var s Story
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal story: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal story: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported story format: %q", format)
	}

	for id, p := range s.Passages {
		if p != nil {
			p.ID = id
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads, decodes and validates a story file. The file name sets the story id.
func LoadFile(path string) (*Story, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}

	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("story %s: %w", filepath.Base(path), err)
	}
	s.ID = IDFromPath(path)
	return s, nil
}
