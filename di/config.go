package di

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the configuration accessor generated code reads from.
//
// Keys are colon-separated paths ("Orders:RetryCount") compared
// case-insensitively. Only the shape of a binding is known when code is
// generated; values are read here at runtime.
type Config interface {
	// Get returns the value at key, or "" when absent.
	Get(key string) string
	// Bind decodes the section at path into target. An empty path binds the root.
	Bind(path string, target any) error
}

// MapConfig is a simple in-memory Config.
type MapConfig struct {
	items map[string]string
}

func NewMapConfig() *MapConfig {
	return &MapConfig{items: map[string]string{}}
}

// Provide stores a value under a key and returns the config for chaining.
func (c *MapConfig) Provide(key, val string) *MapConfig {
	c.items[fold(key)] = val
	return c
}

// Lookup returns the value at key and whether it is present.
func (c *MapConfig) Lookup(key string) (string, bool) {
	v, ok := c.items[fold(key)]
	return v, ok
}

// Get implements Config.
func (c *MapConfig) Get(key string) string {
	v, _ := c.Lookup(key)
	return v
}

// MustGet returns the value or panics with a helpful message.
func (c *MapConfig) MustGet(key string) string {
	v, ok := c.Lookup(key)
	if !ok {
		panic(fmt.Errorf("di: config missing key %q", key))
	}
	return v
}

// Bind implements Config. Keys under path become a YAML mapping, so target
// fields match by their lower-cased name or their yaml tag, and scalars are
// converted the way YAML converts them.
func (c *MapConfig) Bind(path string, target any) error {
	node, ok, err := c.section(fold(path))
	if err != nil {
		return &BindError{Path: path, cause: err}
	}
	if !ok {
		return nil
	}
	if err := node.Decode(target); err != nil {
		return &BindError{Path: path, cause: err}
	}
	return nil
}

func (c *MapConfig) section(path string) (*yaml.Node, bool, error) {
	if v, ok := c.items[path]; ok && path != "" {
		return scalar(v), true, nil
	}

	prefix := ""
	if path != "" {
		prefix = path + ":"
	}
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false, nil
	}
	sort.Strings(keys)

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		if err := insert(root, strings.Split(strings.TrimPrefix(k, prefix), ":"), c.items[k]); err != nil {
			return nil, false, fmt.Errorf("%w: %s", err, k)
		}
	}
	return root, true, nil
}

// insert adds val under parts. A key holding a value cannot also hold a
// section, and the other way round.
func insert(m *yaml.Node, parts []string, val string) error {
	for i := 0; i < len(m.Content); i += 2 {
		if m.Content[i].Value != parts[0] {
			continue
		}
		child := m.Content[i+1]
		if len(parts) == 1 || child.Kind != yaml.MappingNode {
			return ErrConfigShape
		}
		return insert(child, parts[1:], val)
	}
	var child *yaml.Node
	if len(parts) == 1 {
		child = scalar(val)
	} else {
		child = &yaml.Node{Kind: yaml.MappingNode}
		if err := insert(child, parts[1:], val); err != nil {
			return err
		}
	}
	m.Content = append(m.Content, scalar(parts[0]), child)
	return nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func fold(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
