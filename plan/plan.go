// Package plan decides the registration statements of every descriptor.
//
// A descriptor is exposed as its concrete type, its interfaces, or both,
// depending on its registration mode. With shared instancing every interface
// view is a factory that resolves the concrete registration, so all views
// observe one instance per lifetime scope; with separate instancing each
// interface is registered directly and constructs its own.
package plan

import (
	"github.com/sghaida/wiregen/condition"
	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/diag"
	"github.com/sghaida/wiregen/graph"
	"github.com/sghaida/wiregen/typeexpr"
)

// Kind is the shape of one registration statement.
type Kind int

const (
	// ConcreteType registers the concrete type with its constructor.
	ConcreteType Kind = iota
	// InterfaceDirect registers an interface with its own constructor call.
	InterfaceDirect
	// InterfaceFactory registers an interface that resolves the concrete registration.
	InterfaceFactory
)

func (k Kind) String() string {
	switch k {
	case ConcreteType:
		return "ConcreteType"
	case InterfaceDirect:
		return "InterfaceDirect"
	case InterfaceFactory:
		return "InterfaceFactory"
	default:
		return "Unknown"
	}
}

// Entry is one registration statement.
type Entry struct {
	Kind     Kind
	Lifetime descriptor.Lifetime
	// Service is the type the entry is registered under.
	Service *typeexpr.Type
	// Implementation is the concrete type that ends up constructed. For
	// InterfaceFactory it is the registration being resolved.
	Implementation *typeexpr.Type
	Guard          condition.Expr
	Descriptor     *descriptor.Service
	// Open marks entries of an open-generic descriptor.
	Open bool
}

// Guarded reports whether the entry needs a runtime guard.
func (e Entry) Guarded() bool { return !condition.IsTrue(e.Guard) }

// Plan is the ordered list of registration entries of a pass.
type Plan struct {
	Entries []Entry
}

// For returns the entries of the descriptor with the given identity.
func (p *Plan) For(id string) []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.Descriptor.ID() == id {
			out = append(out, e)
		}
	}
	return out
}

// Guarded reports whether any entry needs a runtime guard.
func (p *Plan) Guarded() bool {
	for _, e := range p.Entries {
		if e.Guarded() {
			return true
		}
	}
	return false
}

// Synthesize plans every input in declaration order. Never-active and
// external descriptors are left out with an informational note.
func Synthesize(inputs []graph.Input) (*Plan, diag.List) {
	var diags diag.List
	p := &Plan{}

	for _, in := range inputs {
		s := in.Service
		switch {
		case s.External:
			diags.Info(diag.ExternalService, s.ID()+" is external and is not registered", s.ID())
			continue
		case in.NeverActive():
			diags.Info(diag.NeverActive, s.ID()+" has contradictory conditions and never registers", s.ID())
			continue
		}

		entries := entriesFor(in)
		if len(entries) == 0 {
			diags.Warn(diag.NothingToRegister,
				s.ID()+" is exclusionary but every interface is skipped; nothing is registered",
				s.ID())
			continue
		}
		p.Entries = append(p.Entries, entries...)
	}
	return p, diags
}

func entriesFor(in graph.Input) []Entry {
	s := in.Service
	concrete := graph.ConcreteKey(s)
	base := Entry{
		Lifetime:       s.EffectiveLifetime(),
		Implementation: concrete,
		Guard:          in.Guard,
		Descriptor:     s,
		Open:           len(s.TypeParams) > 0,
	}
	with := func(k Kind, svc *typeexpr.Type) Entry {
		e := base
		e.Kind = k
		e.Service = svc
		return e
	}

	var out []Entry
	switch s.Mode {
	case descriptor.DirectOnly:
		out = append(out, with(ConcreteType, concrete))
	case descriptor.Exclusionary:
		for _, it := range graph.Interfaces(s) {
			out = append(out, with(InterfaceDirect, it))
		}
	default:
		out = append(out, with(ConcreteType, concrete))
		for _, it := range graph.Interfaces(s) {
			if s.Sharing == descriptor.Separate {
				out = append(out, with(InterfaceDirect, it))
			} else {
				out = append(out, with(InterfaceFactory, it))
			}
		}
	}
	return out
}
