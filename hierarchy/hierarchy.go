// Package hierarchy walks a service's base-type chain.
//
// Descriptors never point at each other; a base is found by looking its head
// name up in an Arena built once per pass. Each step of the walk binds the
// base's type parameters to the arguments the derived declaration supplies, so
// a UserRepository declared on Repository[User] inherits Store[User] where the
// base asked for Store[T].
package hierarchy

import (
	"strconv"
	"strings"

	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/diag"
	"github.com/sghaida/wiregen/typeexpr"
)

// Arena indexes the valid services of a pass by the head name of their identity.
// It is read-only once built and safe for concurrent lookups.
type Arena struct {
	byHead map[string][]*descriptor.Service
}

// NewArena indexes services in declaration order. Nil entries are skipped.
func NewArena(services []*descriptor.Service) *Arena {
	a := &Arena{byHead: map[string][]*descriptor.Service{}}
	for _, s := range services {
		if s == nil {
			continue
		}
		h := s.Type.Head()
		a.byHead[h] = append(a.byHead[h], s)
	}
	return a
}

// Lookup finds the service whose identity matches t once its type parameters
// are bound, and returns those bindings.
func (a *Arena) Lookup(t *typeexpr.Type) (*descriptor.Service, typeexpr.Bindings, bool) {
	for _, s := range a.byHead[t.Head()] {
		if len(s.Type.Args) != len(t.Args) {
			continue
		}
		if b, ok := typeexpr.Unify(s.Type, t, s.TypeParams); ok {
			return s, b, true
		}
	}
	return nil, nil, false
}

// Param is one constructor parameter after substitution.
// Name is the declared field name; Param is unique across the whole chain.
type Param struct {
	descriptor.Dep
	Param string
}

// Level is one step of the chain.
type Level struct {
	Service *descriptor.Service
	// Type is the identity of this level with the chain's bindings applied.
	Type *typeexpr.Type
	Deps []Param
}

// Resolved is the merged view of one service and its bases, root first.
type Resolved struct {
	Service *descriptor.Service
	Levels  []Level

	// ExternalBase is the first base the walk could not resolve, if any.
	ExternalBase *typeexpr.Type
	// Cycle holds the identities of an inheritance cycle. When set the chain
	// is cut back to the service itself.
	Cycle []string
}

// Leaf is the level of the service itself.
func (r *Resolved) Leaf() *Level { return &r.Levels[len(r.Levels)-1] }

// Base is the direct base level, or nil.
func (r *Resolved) Base() *Level {
	if len(r.Levels) < 2 {
		return nil
	}
	return &r.Levels[len(r.Levels)-2]
}

// Params is the full parameter list of the generated constructor: every level
// root first, and within a level its service dependencies before its
// configuration-bound ones.
func (r *Resolved) Params() []Param {
	return flatten(r.Levels)
}

// Forwarded is the part of Params handed to the base constructor.
func (r *Resolved) Forwarded() []Param {
	return flatten(r.Levels[:len(r.Levels)-1])
}

// Own is the part of Params assigned to the service's own fields.
func (r *Resolved) Own() []Param {
	return flatten(r.Levels[len(r.Levels)-1:])
}

func flatten(levels []Level) []Param {
	var out []Param
	for _, l := range levels {
		out = append(out, ordered(l.Deps)...)
	}
	return out
}

func ordered(deps []Param) []Param {
	out := make([]Param, 0, len(deps))
	for _, d := range deps {
		if d.Kind != descriptor.Config {
			out = append(out, d)
		}
	}
	for _, d := range deps {
		if d.Kind == descriptor.Config {
			out = append(out, d)
		}
	}
	return out
}

// Resolve walks s's base chain through a.
//
// An unresolvable or external base ends the walk with an info diagnostic; the
// levels collected so far are kept. A base already on the chain ends it with a
// warning, and the service keeps only its own level.
func Resolve(a *Arena, s *descriptor.Service) (*Resolved, diag.List) {
	var diags diag.List
	r := &Resolved{Service: s}

	levels := []Level{newLevel(s, s.Type, nil)}
	seen := map[string]bool{s.ID(): true}
	chain := []string{s.ID()}

	cur, bindings := s, typeexpr.Bindings(nil)
	for cur.BaseType != nil {
		want := cur.BaseType.Substitute(bindings)
		base, b, ok := a.Lookup(want)
		if !ok || base.External {
			r.ExternalBase = want
			diags.Info(diag.ExternalBase,
				"base "+want.String()+" of "+cur.ID()+" is outside the descriptor set; inherited dependencies stop there",
				s.ID(), want.String())
			break
		}
		if seen[base.ID()] {
			r.Cycle = append(chain, base.ID())
			diags.Warn(diag.InheritanceCycle,
				"inheritance cycle "+strings.Join(r.Cycle, " -> ")+"; "+s.ID()+" is built without its bases",
				r.Cycle...)
			levels = levels[:1]
			break
		}
		seen[base.ID()] = true
		chain = append(chain, base.ID())
		levels = append(levels, newLevel(base, want, b))
		cur, bindings = base, b
	}

	// collected leaf first; constructors want root first
	for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
		levels[i], levels[j] = levels[j], levels[i]
	}
	r.Levels = levels
	uniqueParams(r)
	return r, diags
}

func newLevel(s *descriptor.Service, ty *typeexpr.Type, b typeexpr.Bindings) Level {
	l := Level{Service: s, Type: ty}
	for _, d := range s.Deps {
		p := Param{Dep: d, Param: d.Name}
		if len(b) > 0 {
			p.Parsed = d.Parsed.Substitute(b)
			p.Type = p.Parsed.String()
		}
		l.Deps = append(l.Deps, p)
	}
	return l
}

// uniqueParams suffixes repeated parameter names in constructor order:
// repo, repo2, repo3. Field names are left as declared.
func uniqueParams(r *Resolved) {
	used := map[string]bool{}
	for li := range r.Levels {
		l := &r.Levels[li]
		for _, config := range []bool{false, true} {
			for di := range l.Deps {
				p := &l.Deps[di]
				if (p.Kind == descriptor.Config) != config {
					continue
				}
				name := p.Name
				for n := 2; used[name]; n++ {
					name = p.Name + strconv.Itoa(n)
				}
				used[name] = true
				p.Param = name
			}
		}
	}
}
