package manifest

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a manifest file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Parse decodes a single manifest.
func Parse(data []byte, format Format) (Document, error) {
	raw, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	return toDocument(raw)
}

// LoadFile reads and decodes the manifest at path.
func LoadFile(path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return doc, nil
}

// LoadRegistry reads a file holding several manifests, either as an array or
// as an object keyed by module name. Keyed entries without a name take the
// key; entries are returned in key order.
func LoadRegistry(path string) ([]Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}
	raw, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	norm, err := normalizeAny(raw)
	if err != nil {
		return nil, err
	}

	var docs []Document
	switch v := norm.(type) {
	case []any:
		for i, entry := range v {
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: entry %d is not an object", ErrInvalidRegistry, i)
			}
			docs = append(docs, Document(m))
		}
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			m, ok := v[key].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: entry %q is not an object", ErrInvalidRegistry, key)
			}
			if _, named := m["name"]; !named {
				m["name"] = key
			}
			docs = append(docs, Document(m))
		}
	default:
		return nil, ErrInvalidRegistry
	}
	return docs, nil
}

// Decode converts a document into the structured shape, migrating legacy
// manifests.
func Decode(doc Document) (*Manifest, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("manifest is not JSON encodable: %w", err)
	}
	if IsStructuredManifest(doc) {
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode structured manifest: %w", err)
		}
		if m.Dependencies.Runtime == nil {
			m.Dependencies.Runtime = map[string]string{}
		}
		if m.Dependencies.Peer == nil {
			m.Dependencies.Peer = map[string]string{}
		}
		return &m, nil
	}

	var legacy LegacyManifest
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to decode legacy manifest: %w", err)
	}
	return MigrateToV2(&legacy), nil
}

// Document converts a structured manifest back into its document form.
func (m *Manifest) Document() (Document, error) {
	return toDocument(m)
}

func decode(data []byte, format Format) (any, error) {
	var raw any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case FormatTOML:
		var m map[string]any
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, err
		}
		raw = m
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return raw, nil
}

func toDocument(v any) (Document, error) {
	m, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return Document(m), nil
}
