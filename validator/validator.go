// Package validator checks a resolved graph for circular dependencies and
// lifetime containment violations.
//
// Every finding is advisory. The container, not wiregen, resolves the object
// graph at runtime, so constructors and registrations are generated whatever
// the validator reports.
package validator

import (
	"strings"

	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/diag"
	"github.com/sghaida/wiregen/graph"
)

// Violation is a consumer holding a dependency that lives shorter than itself.
type Violation struct {
	Consumer           string
	ConsumerLifetime   descriptor.Lifetime
	Dependency         string
	DependencyLifetime descriptor.Lifetime
}

// Report is what one validation found.
type Report struct {
	// Cycles lists each distinct cycle once, rotated to start at its
	// earliest-declared member.
	Cycles     [][]string
	Violations []Violation
}

// Validate walks g in declaration order.
func Validate(g *graph.Graph) (Report, diag.List) {
	var (
		rep   Report
		diags diag.List
	)

	for _, c := range findCycles(g) {
		rep.Cycles = append(rep.Cycles, c)
		path := append(append([]string(nil), c...), c[0])
		diags.Warn(diag.CircularDependency,
			"circular dependency "+strings.Join(path, " -> "),
			c...)
	}

	for _, n := range g.Nodes {
		if n.Service.Exempt() {
			continue
		}
		lt := n.Service.EffectiveLifetime()
		for _, dep := range n.Edges() {
			dlt := dep.EffectiveLifetime()
			if dlt.Rank() >= lt.Rank() {
				continue
			}
			v := Violation{
				Consumer:           n.Service.ID(),
				ConsumerLifetime:   lt,
				Dependency:         dep.ID(),
				DependencyLifetime: dlt,
			}
			rep.Violations = append(rep.Violations, v)
			diags.Warn(diag.LifetimeContainment,
				lt.Title()+" "+v.Consumer+" depends on "+dlt.Title()+" "+v.Dependency+"; the dependency is captured for the consumer's lifetime",
				v.Consumer, v.Dependency)
		}
	}

	return rep, diags
}

// walker enumerates elementary cycles. Each cycle is searched from its
// earliest-declared member only: a search rooted at r never enters a node
// declared before r, so every cycle is found exactly once.
type walker struct {
	g       *graph.Graph
	root    *descriptor.Service
	onStack map[string]bool
	stack   []*descriptor.Service
	seen    map[string]bool
	cycles  [][]string
}

func findCycles(g *graph.Graph) [][]string {
	w := &walker{g: g, seen: map[string]bool{}}
	for _, n := range g.Nodes {
		w.root = n.Service
		w.onStack = map[string]bool{}
		w.visit(n.Service)
	}
	return w.cycles
}

func (w *walker) visit(s *descriptor.Service) {
	n, ok := w.g.Node(s.ID())
	if !ok {
		return
	}

	w.onStack[s.ID()] = true
	w.stack = append(w.stack, s)
	for _, dep := range n.Edges() {
		switch {
		case dep.ID() == w.root.ID():
			w.record(w.stack)
		case dep.Index > w.root.Index && !w.onStack[dep.ID()]:
			w.visit(dep)
		}
	}
	w.stack = w.stack[:len(w.stack)-1]
	delete(w.onStack, s.ID())
}

func (w *walker) record(members []*descriptor.Service) {
	start := 0
	for i, m := range members {
		if m.Index < members[start].Index {
			start = i
		}
	}
	c := make([]string, 0, len(members))
	for i := range members {
		c = append(c, members[(start+i)%len(members)].ID())
	}
	key := strings.Join(c, "\x00")
	if w.seen[key] {
		return
	}
	w.seen[key] = true
	w.cycles = append(w.cycles, c)
}
