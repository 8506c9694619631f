// Package condition composes a descriptor's activation predicates into one guard.
//
// Each predicate compares a subject (the environment name or one configuration
// key) against one or more values. Predicates are ANDed. Before anything is
// emitted the composer checks, per subject, that the conjunction can be true at
// all; a descriptor whose guard folds to False never registers and is dropped
// from the plan instead of being emitted behind dead code.
//
// Comparisons are case-insensitive for both environment names and configuration
// values, matching how the generated guard compares them at runtime.
package condition

import (
	"strconv"
	"strings"

	"github.com/sghaida/wiregen/descriptor"
)

// Subject is what an atom compares. Key is empty for the environment.
type Subject struct {
	Kind descriptor.Subject
	Key  string
}

func (s Subject) String() string {
	if s.Kind == descriptor.Environment {
		return "environment"
	}
	return "config[" + strconv.Quote(s.Key) + "]"
}

// fold identifies a subject regardless of key casing.
func (s Subject) fold() string {
	return string(s.Kind) + "\x00" + strings.ToLower(s.Key)
}

// Expr is a node of a guard expression tree. The set of nodes is closed:
// True, False, Atom, AnyOf and And.
type Expr interface {
	String() string
	expr()
}

// True is the guard of an unconditional descriptor.
type True struct{}

// False is the guard of a descriptor that can never be active.
type False struct{}

// Atom compares a subject against one value.
type Atom struct {
	Subject Subject
	Op      descriptor.Operator
	Value   string
}

// AnyOf is true when the subject equals one of Values.
type AnyOf struct {
	Subject Subject
	Values  []string
}

// And is the conjunction of its terms.
type And []Expr

func (True) expr()  {}
func (False) expr() {}
func (Atom) expr()  {}
func (AnyOf) expr() {}
func (And) expr()   {}

func (True) String() string  { return "true" }
func (False) String() string { return "false" }

func (a Atom) String() string {
	op := "=="
	if a.Op == descriptor.Ne {
		op = "!="
	}
	return a.Subject.String() + " " + op + " " + strconv.Quote(a.Value)
}

func (a AnyOf) String() string {
	parts := make([]string, len(a.Values))
	for i, v := range a.Values {
		parts[i] = Atom{Subject: a.Subject, Op: descriptor.Eq, Value: v}.String()
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

func (a And) String() string {
	parts := make([]string, len(a))
	for i, e := range a {
		parts[i] = e.String()
	}
	return strings.Join(parts, " && ")
}

// IsTrue reports whether e is the unconditional guard.
func IsTrue(e Expr) bool {
	_, ok := e.(True)
	return e == nil || ok
}

// IsFalse reports whether e can never hold.
func IsFalse(e Expr) bool {
	_, ok := e.(False)
	return ok
}

// Inputs is what a guard is evaluated against.
type Inputs struct {
	Environment string
	Config      func(key string) string
}

// Eval evaluates e the way the generated guard does at runtime.
func Eval(e Expr, in Inputs) bool {
	switch x := e.(type) {
	case nil, True:
		return true
	case False:
		return false
	case Atom:
		eq := strings.EqualFold(in.value(x.Subject), x.Value)
		if x.Op == descriptor.Ne {
			return !eq
		}
		return eq
	case AnyOf:
		got := in.value(x.Subject)
		for _, v := range x.Values {
			if strings.EqualFold(got, v) {
				return true
			}
		}
		return false
	case And:
		for _, t := range x {
			if !Eval(t, in) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (in Inputs) value(s Subject) string {
	if s.Kind == descriptor.Environment {
		return in.Environment
	}
	if in.Config == nil {
		return ""
	}
	return in.Config(s.Key)
}
