package emit

import (
	"strconv"
	"strings"

	"github.com/sghaida/wiregen/condition"
	"github.com/sghaida/wiregen/descriptor"
)

// guards renders condition expressions as Go boolean expressions over the
// environment name and configuration locals of the registration routine.
type guards struct {
	envName string
	cfg     string
}

// ifCond renders e as the condition of an if statement.
func (g guards) ifCond(e condition.Expr) string {
	if x, ok := e.(condition.AnyOf); ok {
		parts := make([]string, len(x.Values))
		for i, v := range x.Values {
			parts[i] = g.compare(x.Subject, v)
		}
		return strings.Join(parts, " || ")
	}
	return g.expr(e)
}

func (g guards) expr(e condition.Expr) string {
	switch x := e.(type) {
	case nil, condition.True:
		return ""
	case condition.False:
		return "false"
	case condition.Atom:
		s := g.compare(x.Subject, x.Value)
		if x.Op == descriptor.Ne {
			return "!" + s
		}
		return s
	case condition.AnyOf:
		parts := make([]string, len(x.Values))
		for i, v := range x.Values {
			parts[i] = g.compare(x.Subject, v)
		}
		return "(" + strings.Join(parts, " || ") + ")"
	case condition.And:
		parts := make([]string, len(x))
		for i, t := range x {
			parts[i] = g.expr(t)
		}
		return strings.Join(parts, " && ")
	}
	return ""
}

func (g guards) compare(s condition.Subject, v string) string {
	subject := g.envName
	if s.Kind == descriptor.Configuration {
		subject = g.cfg + ".Get(" + strconv.Quote(s.Key) + ")"
	}
	return "strings.EqualFold(" + subject + ", " + strconv.Quote(v) + ")"
}

// subjects reports which runtime inputs e reads.
func subjects(e condition.Expr) (env, cfg bool) {
	visit := func(s condition.Subject) {
		if s.Kind == descriptor.Configuration {
			cfg = true
		} else {
			env = true
		}
	}
	var walk func(condition.Expr)
	walk = func(e condition.Expr) {
		switch x := e.(type) {
		case condition.Atom:
			visit(x.Subject)
		case condition.AnyOf:
			visit(x.Subject)
		case condition.And:
			for _, t := range x {
				walk(t)
			}
		}
	}
	walk(e)
	return env, cfg
}
