// Package config holds the generator configuration, read from a wiregen.yaml
// or wiregen.json file and completed with defaults.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sghaida/wiregen/emit"
	"github.com/sghaida/wiregen/internal/gomod"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "wiregen.yaml"

const (
	DefaultConstructorsOut = "wiregen_constructors.gen.go"
	DefaultRegistrationOut = "wiregen_registration.gen.go"
)

// ErrNoDescriptors is returned by Validate when no descriptor file is configured.
var ErrNoDescriptors = errors.New("config: at least one descriptor file is required")

// Config is the generator configuration.
//
// Relative paths are relative to the directory of the file the configuration
// was loaded from.
type Config struct {
	// Descriptors are the descriptor files, in declaration order.
	Descriptors []string `json:"descriptors" yaml:"descriptors"`
	// Package is the package clause of the outputs. Defaults to the name of
	// the directory holding the outputs.
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	// Routine names the registration routine.
	Routine         string `json:"routine,omitempty" yaml:"routine,omitempty"`
	ConstructorsOut string `json:"constructorsOut,omitempty" yaml:"constructorsOut,omitempty"`
	RegistrationOut string `json:"registrationOut,omitempty" yaml:"registrationOut,omitempty"`
	// DIImport is the import path of the di runtime. Inferred when empty.
	DIImport string `json:"diImport,omitempty" yaml:"diImport,omitempty"`
	// Imports maps package qualifiers used in descriptor types to import
	// paths. They take precedence over imports found in the package sources.
	Imports map[string]string `json:"imports,omitempty" yaml:"imports,omitempty"`

	StrictSingle bool `json:"strictSingle,omitempty" yaml:"strictSingle,omitempty"`
	Parallelism  int  `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
	// Werror makes warnings fail the run.
	Werror bool `json:"werror,omitempty" yaml:"werror,omitempty"`

	dir string
}

// Load reads path. The format follows the extension; anything but .json is YAML.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filepath.ToSlash(path), err)
	}
	c := &Config{}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			err = json.Unmarshal(raw, c)
		} else {
			err = yaml.Unmarshal(raw, c)
		}
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", filepath.ToSlash(path), err)
		}
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// Dir is the directory relative paths are resolved against.
func (c *Config) Dir() string {
	if c.dir == "" {
		return "."
	}
	return c.dir
}

// Path resolves p against Dir.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// ApplyDefaults fills every unset field that has a default. It does not
// touch the file system; DIImport is inferred by the caller.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.Routine == "" {
		c.Routine = emit.DefaultRoutine
	}
	if c.ConstructorsOut == "" {
		c.ConstructorsOut = DefaultConstructorsOut
	}
	if c.RegistrationOut == "" {
		c.RegistrationOut = DefaultRegistrationOut
	}
	if c.Package == "" {
		abs, err := filepath.Abs(filepath.Dir(c.Path(c.RegistrationOut)))
		if err == nil {
			c.Package = packageName(filepath.Base(abs))
		}
	}
}

// Validate reports the first configuration problem.
func (c *Config) Validate() error {
	if len(c.Descriptors) == 0 {
		return ErrNoDescriptors
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("config: parallelism must not be negative, got %d", c.Parallelism)
	}
	if filepath.Dir(c.Path(c.ConstructorsOut)) != filepath.Dir(c.Path(c.RegistrationOut)) {
		return fmt.Errorf("config: constructorsOut and registrationOut must be in one package directory")
	}
	return nil
}

// ImportList returns Imports as import specs, sorted by qualifier. A
// qualifier differing from the path's last element becomes an alias.
func (c *Config) ImportList() []gomod.Import {
	quals := make([]string, 0, len(c.Imports))
	for q := range c.Imports {
		quals = append(quals, q)
	}
	sort.Strings(quals)

	out := make([]gomod.Import, 0, len(quals))
	for _, q := range quals {
		gi := gomod.Import{Path: c.Imports[q]}
		if gi.Qualifier() != q {
			gi.Name = q
		}
		out = append(out, gi)
	}
	return out
}

// packageName turns a directory name into a package name: "order-service" -> "orderservice".
func packageName(dir string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(dir) {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9' && sb.Len() > 0) {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "main"
	}
	return sb.String()
}
