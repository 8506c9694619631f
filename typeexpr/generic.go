package typeexpr

import (
	"sort"
	"strings"
)

// Bindings maps type parameter names to the types they stand for.
type Bindings map[string]*Type

// Substitute returns a copy of t with every bare reference to a bound type
// parameter replaced. Unbound parameters stay as they are.
func (t *Type) Substitute(b Bindings) *Type {
	if t == nil {
		return nil
	}
	if t.Kind == Named && len(t.Args) == 0 {
		if r, ok := b[t.Name]; ok {
			return r.Clone()
		}
		return t.Clone()
	}
	c := *t
	c.Key = t.Key.Substitute(b)
	c.Elem = t.Elem.Substitute(b)
	if t.Args != nil {
		c.Args = make([]*Type, len(t.Args))
		for i, a := range t.Args {
			c.Args[i] = a.Substitute(b)
		}
	}
	return &c
}

// References reports whether t mentions any of the given type parameter names.
func (t *Type) References(params []string) bool {
	if t == nil || len(params) == 0 {
		return false
	}
	if t.Kind == Named && len(t.Args) == 0 {
		for _, p := range params {
			if p == t.Name {
				return true
			}
		}
		return false
	}
	for _, a := range t.Args {
		if a.References(params) {
			return true
		}
	}
	return t.Key.References(params) || t.Elem.References(params)
}

// Unify matches pattern against target, treating the names in vars as type
// parameters that may bind to any type. It returns the bindings on success.
//
// A variable bound twice must bind to equal types: Pair[T, T] unifies with
// Pair[int, int] but not with Pair[int, string].
func Unify(pattern, target *Type, vars []string) (Bindings, bool) {
	b := Bindings{}
	if !unify(pattern, target, vars, b) {
		return nil, false
	}
	return b, true
}

func unify(p, t *Type, vars []string, b Bindings) bool {
	if p == nil || t == nil {
		return p == t
	}
	if p.Kind == Named && len(p.Args) == 0 && isVar(p.Name, vars) {
		if prev, ok := b[p.Name]; ok {
			return Equal(prev, t)
		}
		b[p.Name] = t.Clone()
		return true
	}
	if p.Kind != t.Kind || p.Name != t.Name || p.Len != t.Len || p.Dir != t.Dir || len(p.Args) != len(t.Args) {
		return false
	}
	for i := range p.Args {
		if !unify(p.Args[i], t.Args[i], vars, b) {
			return false
		}
	}
	return unify(p.Key, t.Key, vars, b) && unify(p.Elem, t.Elem, vars, b)
}

func isVar(name string, vars []string) bool {
	for _, v := range vars {
		if v == name {
			return true
		}
	}
	return false
}

// Qualifiers returns the package qualifiers t mentions, sorted and unique:
// "map[string]*store.Item[cache.Key]" -> [cache store].
func (t *Type) Qualifiers() []string {
	set := map[string]bool{}
	t.qualifiers(set)
	out := make([]string, 0, len(set))
	for q := range set {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

func (t *Type) qualifiers(set map[string]bool) {
	if t == nil {
		return
	}
	if t.Kind == Named {
		if i := strings.IndexByte(t.Name, '.'); i > 0 {
			set[t.Name[:i]] = true
		}
	}
	for _, a := range t.Args {
		a.qualifiers(set)
	}
	t.Key.qualifiers(set)
	t.Elem.qualifiers(set)
}
