// Package diag holds the findings collected during a synthesis pass.
//
// Nothing in wiregen throws across the pass boundary: every structural problem,
// every intentional exclusion and every malformed input is recorded as a Diagnostic
// and returned next to the generated artifacts. The host tool decides what to do
// with warnings; the engine never escalates them.
package diag

import (
	"sort"
	"strings"
)

// Severity ranks a diagnostic.
type Severity int

const (
	// Info is an informational note (intentional exclusions, external bases).
	Info Severity = iota
	// Warning is a structural finding that does not block synthesis.
	Warning
	// Error marks a descriptor that failed closed and emits nothing.
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Code identifies the kind of finding.
type Code string

const (
	Malformed           Code = "WG001"
	ExternalBase        Code = "WG101"
	InheritanceCycle    Code = "WG102"
	Unsatisfied         Code = "WG201"
	SkippedInterface    Code = "WG202"
	AmbiguousSingle     Code = "WG203"
	NeverActive         Code = "WG301"
	ExternalService     Code = "WG302"
	CircularDependency  Code = "WG401"
	LifetimeContainment Code = "WG402"
	NothingToRegister   Code = "WG501"
)

// Diagnostic is one finding. Types always names the offending type(s).
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Types    []string
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Severity.String())
	sb.WriteString(" ")
	sb.WriteString(string(d.Code))
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Add appends a diagnostic.
func (l *List) Add(sev Severity, code Code, msg string, types ...string) {
	*l = append(*l, Diagnostic{Severity: sev, Code: code, Message: msg, Types: types})
}

// Info, Warn and Error are shorthands for Add with a fixed severity.
func (l *List) Info(code Code, msg string, types ...string) { l.Add(Info, code, msg, types...) }

func (l *List) Warn(code Code, msg string, types ...string) { l.Add(Warning, code, msg, types...) }

func (l *List) Error(code Code, msg string, types ...string) { l.Add(Error, code, msg, types...) }

// Append merges other into l keeping order.
func (l *List) Append(other List) {
	*l = append(*l, other...)
}

// Count returns how many diagnostics have the given severity.
func (l List) Count(sev Severity) int {
	n := 0
	for _, d := range l {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// HasWarnings reports whether at least one Warning or Error is present.
func (l List) HasWarnings() bool {
	return l.Count(Warning) > 0 || l.Count(Error) > 0
}

// ByCode returns the diagnostics with the given code, in order.
func (l List) ByCode(code Code) List {
	var out List
	for _, d := range l {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders diagnostics by code, then message. Stable for equal keys.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		if l[i].Code != l[j].Code {
			return l[i].Code < l[j].Code
		}
		return l[i].Message < l[j].Message
	})
}
