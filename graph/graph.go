// Package graph binds every service dependency of a pass to the descriptors
// that provide it.
//
// A descriptor provides the types it exposes: the pointer to its concrete type
// unless it is exclusionary, and its declared interfaces minus the skip list
// unless it is direct-only. Single requests bind to the first provider in
// declaration order; collection requests bind to all of them. Matching unifies
// type expressions, so an open-generic MemoryStore[T] exposing Store[T] provides
// Store[User].
package graph

import (
	"strings"

	"github.com/sghaida/wiregen/condition"
	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/diag"
	"github.com/sghaida/wiregen/hierarchy"
	"github.com/sghaida/wiregen/typeexpr"
)

// Input is one valid service with its resolved chain and composed guard.
type Input struct {
	Service  *descriptor.Service
	Resolved *hierarchy.Resolved
	Guard    condition.Expr
}

// NeverActive reports whether the guard can never hold.
func (in Input) NeverActive() bool { return condition.IsFalse(in.Guard) }

// Options tunes binding.
type Options struct {
	// StrictSingle reports single requests with several unconditional providers.
	StrictSingle bool
}

// Binding is one dependency of a consumer and what satisfies it.
type Binding struct {
	hierarchy.Param

	// Targets is the single target, or every collection member in
	// declaration order. Empty for configuration bindings.
	Targets []*descriptor.Service
	// External is set when only an external descriptor provides a single request.
	External bool
}

// Node is a consumer in the graph.
type Node struct {
	Input
	Bindings []Binding
}

// Edges returns the distinct services n depends on, in binding order.
func (n *Node) Edges() []*descriptor.Service {
	var out []*descriptor.Service
	seen := map[*descriptor.Service]bool{}
	for _, b := range n.Bindings {
		for _, t := range b.Targets {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Graph is the resolved dependency graph of one pass. It is rebuilt from
// scratch every pass.
type Graph struct {
	Nodes []*Node
	byID  map[string]*Node
}

// Node returns the consumer with the given identity.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Dependencies returns the merged, ordered dependency list of id.
func (g *Graph) Dependencies(id string) []Binding {
	if n, ok := g.byID[id]; ok {
		return n.Bindings
	}
	return nil
}

// Interfaces returns the declared interfaces of s that are not skip-listed.
func Interfaces(s *descriptor.Service) []*typeexpr.Type {
	var out []*typeexpr.Type
	for _, it := range s.Ifaces {
		if !containsType(s.SkipTypes, it) {
			out = append(out, it)
		}
	}
	return out
}

// ConcreteKey is the type a concrete registration of s is keyed by.
func ConcreteKey(s *descriptor.Service) *typeexpr.Type {
	return &typeexpr.Type{Kind: typeexpr.Pointer, Elem: s.Type.Clone()}
}

// Exposes returns every type s can be requested as.
func Exposes(s *descriptor.Service) []*typeexpr.Type {
	var out []*typeexpr.Type
	if s.Mode != descriptor.Exclusionary {
		out = append(out, ConcreteKey(s))
	}
	if s.Mode != descriptor.DirectOnly {
		out = append(out, Interfaces(s)...)
	}
	return out
}

type provider struct {
	in      Input
	exposes []*typeexpr.Type
}

func (p provider) provides(t *typeexpr.Type) bool {
	for _, e := range p.exposes {
		if _, ok := typeexpr.Unify(e, t, p.in.Service.TypeParams); ok {
			return true
		}
	}
	return false
}

// Build binds the dependencies of every active, non-external input.
// Inputs must be in declaration order.
func Build(inputs []Input, opts Options) (*Graph, diag.List) {
	var diags diag.List

	var providers, externals []provider
	for _, in := range inputs {
		p := provider{in: in, exposes: Exposes(in.Service)}
		switch {
		case in.Service.External:
			externals = append(externals, p)
		case !in.NeverActive():
			providers = append(providers, p)
		}
	}

	g := &Graph{byID: map[string]*Node{}}
	for _, in := range inputs {
		if in.Service.External || in.NeverActive() {
			continue
		}
		n := &Node{Input: in}
		for _, p := range in.Resolved.Params() {
			b := Binding{Param: p}
			switch p.Kind {
			case descriptor.Collection:
				b.Targets = match(providers, p.Parsed)
			case descriptor.Single:
				cands := match(providers, p.Parsed)
				switch {
				case len(cands) > 0:
					b.Targets = cands[:1]
					if opts.StrictSingle {
						ambiguous(&diags, in.Service, p, providers)
					}
				case len(match(externals, p.Parsed)) > 0:
					b.External = true
				case p.Parsed.References(in.Service.TypeParams):
					// bound when the open type is closed at runtime
				default:
					unsatisfied(&diags, in.Service, p, inputs)
				}
			}
			n.Bindings = append(n.Bindings, b)
		}
		g.Nodes = append(g.Nodes, n)
		g.byID[in.Service.ID()] = n
	}
	return g, diags
}

func match(ps []provider, t *typeexpr.Type) []*descriptor.Service {
	var out []*descriptor.Service
	for _, p := range ps {
		if p.provides(t) {
			out = append(out, p.in.Service)
		}
	}
	return out
}

func ambiguous(diags *diag.List, consumer *descriptor.Service, p hierarchy.Param, ps []provider) {
	var ids []string
	for _, pr := range ps {
		if condition.IsTrue(pr.in.Guard) && pr.provides(p.Parsed) {
			ids = append(ids, pr.in.Service.ID())
		}
	}
	if len(ids) < 2 {
		return
	}
	diags.Info(diag.AmbiguousSingle,
		consumer.ID()+" depends on "+p.Type+", provided unconditionally by "+strings.Join(ids, ", ")+"; "+ids[0]+" is used",
		append([]string{consumer.ID(), p.Type}, ids...)...)
}

func unsatisfied(diags *diag.List, consumer *descriptor.Service, p hierarchy.Param, inputs []Input) {
	for _, in := range inputs {
		for _, sk := range in.Service.SkipTypes {
			if _, ok := typeexpr.Unify(sk, p.Parsed, in.Service.TypeParams); ok {
				diags.Warn(diag.SkippedInterface,
					consumer.ID()+" depends on "+p.Type+", which "+in.Service.ID()+" skips",
					consumer.ID(), p.Type)
				return
			}
		}
	}
	diags.Warn(diag.Unsatisfied,
		consumer.ID()+" depends on "+p.Type+", which no descriptor provides",
		consumer.ID(), p.Type)
}

func containsType(set []*typeexpr.Type, t *typeexpr.Type) bool {
	for _, s := range set {
		if typeexpr.Equal(s, t) {
			return true
		}
	}
	return false
}
