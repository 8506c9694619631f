package descriptor

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a descriptor file.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatOf picks the format from a file extension. Unknown extensions are YAML,
// which is a superset of JSON for our purposes.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// File is the on-disk shape: a "services" list. A bare top-level list is accepted too.
type File struct {
	Services []Descriptor `json:"services" yaml:"services"`
}

// Decode reads descriptors from raw bytes in the given format.
func Decode(raw []byte, format Format) ([]Descriptor, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch format {
	case JSON:
		if trimmed[0] == '[' {
			var list []Descriptor
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("descriptor: decode json: %w", err)
			}
			return list, nil
		}
		var f File
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("descriptor: decode json: %w", err)
		}
		return f.Services, nil
	case YAML:
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("descriptor: decode yaml: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			var list []Descriptor
			if err := node.Decode(&list); err != nil {
				return nil, fmt.Errorf("descriptor: decode yaml: %w", err)
			}
			return list, nil
		}
		var f File
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("descriptor: decode yaml: %w", err)
		}
		return f.Services, nil
	default:
		return nil, &InvalidValueError{Field: "format", Value: string(format)}
	}
}

// Load reads one descriptor file.
func Load(path string) ([]Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %w", filepath.ToSlash(path), err)
	}
	ds, err := Decode(raw, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.ToSlash(path), err)
	}
	return ds, nil
}

// LoadAll reads several files; declaration order is file order, then in-file order.
func LoadAll(paths ...string) ([]Descriptor, error) {
	var out []Descriptor
	for _, p := range paths {
		ds, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ds...)
	}
	return out, nil
}

// Fingerprint is the SHA-256 of the canonical JSON encoding of ds.
// Equal descriptor lists give equal fingerprints regardless of the source format.
func Fingerprint(ds []Descriptor) string {
	b, err := json.Marshal(ds)
	if err != nil {
		// Descriptor holds only strings, bools and slices of them.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
