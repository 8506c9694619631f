// Package descriptor defines the flat service records wiregen consumes.
//
// A Descriptor is what the metadata collector hands over for one concrete type:
// its lifetime, the interfaces it implements, its dependency requests, how it
// should be exposed and under which conditions it is active. Descriptors are
// plain data and decode from JSON or YAML; Normalize turns one into a Service
// whose type expressions are parsed and whose defaults are applied.
//
// Enumerations are string based so that a record with an unknown value still
// decodes; Normalize rejects it, and only that record fails closed.
package descriptor

import (
	"strings"
)

// Lifetime is the container lifetime of a service.
type Lifetime string

const (
	Unset     Lifetime = ""
	Singleton Lifetime = "singleton"
	Scoped    Lifetime = "scoped"
	Transient Lifetime = "transient"
)

// Rank orders lifetimes by how long an instance lives. Unset ranks as Scoped.
func (l Lifetime) Rank() int {
	switch l {
	case Singleton:
		return 3
	case Transient:
		return 1
	default:
		return 2
	}
}

// Title returns the exported identifier form used in generated code ("Singleton").
func (l Lifetime) Title() string {
	if l == Unset {
		return "Unset"
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

func (l Lifetime) valid() bool {
	switch l {
	case Unset, Singleton, Scoped, Transient:
		return true
	}
	return false
}

// UnmarshalText accepts any casing; "unset" maps to Unset.
func (l *Lifetime) UnmarshalText(b []byte) error {
	v := Lifetime(strings.ToLower(strings.TrimSpace(string(b))))
	if v == "unset" {
		v = Unset
	}
	*l = v
	return nil
}

// Mode governs whether the concrete type, the interfaces, or both are exposed.
type Mode string

const (
	All          Mode = "all"
	DirectOnly   Mode = "direct"
	Exclusionary Mode = "exclusionary"
)

func (m *Mode) UnmarshalText(b []byte) error {
	*m = Mode(strings.ToLower(strings.TrimSpace(string(b))))
	return nil
}

// Sharing governs whether all exposed views resolve to one instance.
type Sharing string

const (
	Shared   Sharing = "shared"
	Separate Sharing = "separate"
)

func (s *Sharing) UnmarshalText(b []byte) error {
	*s = Sharing(strings.ToLower(strings.TrimSpace(string(b))))
	return nil
}

// DependencyKind tells how a dependency request is bound.
type DependencyKind string

const (
	Single     DependencyKind = "single"
	Collection DependencyKind = "collection"
	Config     DependencyKind = "config"
)

func (k *DependencyKind) UnmarshalText(b []byte) error {
	*k = DependencyKind(strings.ToLower(strings.TrimSpace(string(b))))
	return nil
}

// Binding is the shape of a configuration-bound dependency.
type Binding string

const (
	// Value binds one configuration key.
	Value Binding = "value"
	// Section binds a configuration section into a settings type.
	Section Binding = "section"
	// Monitor binds a live-updating view of a section.
	Monitor Binding = "monitor"
	// Snapshot binds a per-scope snapshot of a section.
	Snapshot Binding = "snapshot"
)

func (b *Binding) UnmarshalText(p []byte) error {
	*b = Binding(strings.ToLower(strings.TrimSpace(string(p))))
	return nil
}

// Subject is what a condition compares.
type Subject string

const (
	Environment   Subject = "environment"
	Configuration Subject = "config"
)

func (s *Subject) UnmarshalText(b []byte) error {
	v := Subject(strings.ToLower(strings.TrimSpace(string(b))))
	switch v {
	case "env":
		v = Environment
	case "configuration":
		v = Configuration
	}
	*s = v
	return nil
}

// Operator is the comparison of a condition.
type Operator string

const (
	Eq Operator = "eq"
	Ne Operator = "ne"
)

func (o *Operator) UnmarshalText(b []byte) error {
	v := Operator(strings.ToLower(strings.TrimSpace(string(b))))
	switch v {
	case "==", "equals":
		v = Eq
	case "!=", "notequals":
		v = Ne
	}
	*o = v
	return nil
}

// Dependency is one constructor dependency request.
type Dependency struct {
	Kind    DependencyKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Type    string         `json:"type" yaml:"type"`
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Path    string         `json:"path,omitempty" yaml:"path,omitempty"`
	Binding Binding        `json:"binding,omitempty" yaml:"binding,omitempty"`
}

// Condition is one activation predicate. Several values on Eq mean "any of",
// several values on Ne mean "none of".
type Condition struct {
	Subject Subject  `json:"subject" yaml:"subject"`
	Key     string   `json:"key,omitempty" yaml:"key,omitempty"`
	Op      Operator `json:"op,omitempty" yaml:"op,omitempty"`
	Values  []string `json:"values" yaml:"values"`
}

// Descriptor is the metadata of one declared service type.
type Descriptor struct {
	Identity     string       `json:"identity" yaml:"identity"`
	TypeParams   []string     `json:"typeParams,omitempty" yaml:"typeParams,omitempty"`
	Lifetime     Lifetime     `json:"lifetime,omitempty" yaml:"lifetime,omitempty"`
	Interfaces   []string     `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Mode         Mode         `json:"mode,omitempty" yaml:"mode,omitempty"`
	Sharing      Sharing      `json:"sharing,omitempty" yaml:"sharing,omitempty"`
	Skip         []string     `json:"skip,omitempty" yaml:"skip,omitempty"`
	Conditions   []Condition  `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	External     bool         `json:"external,omitempty" yaml:"external,omitempty"`

	// Hosted marks a long-running background process managed by the host.
	// It implies ExemptFromLifetimeContainment and a Singleton lifetime.
	Hosted bool `json:"hosted,omitempty" yaml:"hosted,omitempty"`

	ExemptFromLifetimeContainment bool `json:"exemptFromLifetimeContainment,omitempty" yaml:"exemptFromLifetimeContainment,omitempty"`

	Base        string `json:"base,omitempty" yaml:"base,omitempty"`
	Constructor string `json:"constructor,omitempty" yaml:"constructor,omitempty"`
}

// Exempt reports whether lifetime containment checks skip this descriptor.
func (d *Descriptor) Exempt() bool {
	return d.Hosted || d.ExemptFromLifetimeContainment
}

// EffectiveLifetime applies the inference rules: hosted services are always
// Singletons regardless of the declared value, and Unset falls back to Scoped.
func (d *Descriptor) EffectiveLifetime() Lifetime {
	switch {
	case d.Hosted:
		return Singleton
	case d.Lifetime != Unset:
		return d.Lifetime
	default:
		return Scoped
	}
}
