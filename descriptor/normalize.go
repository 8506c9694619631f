package descriptor

import (
	"go/token"
	"strconv"
	"strings"
	"unicode"

	"github.com/sghaida/wiregen/typeexpr"
)

// Dep is a dependency request with its type parsed and its name resolved.
type Dep struct {
	Dependency
	Parsed *typeexpr.Type
}

// Service is a validated descriptor with parsed type expressions and defaults applied.
// Index is the declaration order in the input list.
type Service struct {
	Descriptor

	Index     int
	Type      *typeexpr.Type
	BaseType  *typeexpr.Type
	Ifaces    []*typeexpr.Type
	SkipTypes []*typeexpr.Type
	Deps      []Dep
	CtorName  string
}

// ID is the canonical identity string.
func (s *Service) ID() string { return s.Type.String() }

// Normalize validates d and returns the parsed Service.
// Every failure is a *MalformedError; the caller drops that descriptor only.
func Normalize(index int, d Descriptor) (*Service, error) {
	fail := func(where string, err error) (*Service, error) {
		return nil, newMalformed(index, d.Identity, where, err)
	}

	if strings.TrimSpace(d.Identity) == "" {
		return fail("identity", ErrEmptyIdentity)
	}
	ty, err := typeexpr.Parse(d.Identity)
	if err != nil {
		return fail("identity", err)
	}
	if ty.Kind != typeexpr.Named {
		return fail("identity", typeexpr.ErrUnsupported)
	}
	if err := checkTypeParams(ty, d.TypeParams); err != nil {
		return fail("typeParams", err)
	}

	if d.Mode == "" {
		d.Mode = All
	}
	if d.Sharing == "" {
		d.Sharing = Shared
	}
	switch {
	case !d.Lifetime.valid():
		return fail("lifetime", &InvalidValueError{Field: "lifetime", Value: string(d.Lifetime)})
	case d.Mode != All && d.Mode != DirectOnly && d.Mode != Exclusionary:
		return fail("mode", &InvalidValueError{Field: "mode", Value: string(d.Mode)})
	case d.Sharing != Shared && d.Sharing != Separate:
		return fail("sharing", &InvalidValueError{Field: "sharing", Value: string(d.Sharing)})
	}

	s := &Service{
		Descriptor: d,
		Index:      index,
		Type:       ty,
		CtorName:   d.Constructor,
	}
	if s.CtorName == "" {
		s.CtorName = "New" + ty.Ident()
	} else if !token.IsIdentifier(s.CtorName) {
		return fail("constructor", &InvalidNameError{Name: s.CtorName})
	}

	if strings.TrimSpace(d.Base) != "" {
		if s.BaseType, err = typeexpr.Parse(d.Base); err != nil {
			return fail("base", err)
		}
		if s.BaseType.Kind != typeexpr.Named {
			return fail("base", typeexpr.ErrUnsupported)
		}
	}

	if s.Ifaces, err = parseUnique(d.Interfaces); err != nil {
		return fail("interfaces", err)
	}
	if s.SkipTypes, err = parseUnique(d.Skip); err != nil {
		return fail("skip", err)
	}

	conds := make([]Condition, 0, len(d.Conditions))
	for i, c := range d.Conditions {
		nc, err := normalizeCondition(c)
		if err != nil {
			return fail("conditions["+strconv.Itoa(i)+"]", err)
		}
		conds = append(conds, nc)
	}
	s.Descriptor.Conditions = conds

	for i, dep := range d.Dependencies {
		nd, err := normalizeDep(dep)
		if err != nil {
			return fail("dependencies["+strconv.Itoa(i)+"]", err)
		}
		s.Deps = append(s.Deps, nd)
	}

	return s, nil
}

func checkTypeParams(ty *typeexpr.Type, params []string) error {
	if len(params) == 0 {
		return nil
	}
	if len(params) != len(ty.Args) {
		return &TypeParamsError{Identity: ty.String(), Params: params}
	}
	for i, p := range params {
		a := ty.Args[i]
		if a.Kind != typeexpr.Named || len(a.Args) > 0 || a.Name != p {
			return &TypeParamsError{Identity: ty.String(), Params: params}
		}
	}
	return nil
}

func parseUnique(in []string) ([]*typeexpr.Type, error) {
	var out []*typeexpr.Type
	seen := map[string]bool{}
	for _, raw := range in {
		t, err := typeexpr.Parse(raw)
		if err != nil {
			return nil, err
		}
		k := t.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out, nil
}

func normalizeCondition(c Condition) (Condition, error) {
	if c.Op == "" {
		c.Op = Eq
	}
	switch c.Subject {
	case "":
		return c, ErrNoSubject
	case Environment:
		c.Key = ""
	case Configuration:
		c.Key = strings.TrimSpace(c.Key)
		if c.Key == "" {
			return c, ErrNoKey
		}
	default:
		return c, &InvalidValueError{Field: "subject", Value: string(c.Subject)}
	}
	if c.Op != Eq && c.Op != Ne {
		return c, &InvalidValueError{Field: "op", Value: string(c.Op)}
	}
	if len(c.Values) == 0 {
		return c, ErrNoValues
	}
	return c, nil
}

func normalizeDep(d Dependency) (Dep, error) {
	if d.Kind == "" {
		d.Kind = Single
	}
	switch d.Kind {
	case Single, Collection:
	case Config:
		if d.Binding == "" {
			d.Binding = Value
		}
		switch d.Binding {
		case Value, Section, Monitor, Snapshot:
		default:
			return Dep{}, &InvalidValueError{Field: "binding", Value: string(d.Binding)}
		}
	default:
		return Dep{}, &InvalidValueError{Field: "kind", Value: string(d.Kind)}
	}
	if strings.TrimSpace(d.Type) == "" {
		return Dep{}, ErrNoType
	}
	t, err := typeexpr.Parse(d.Type)
	if err != nil {
		return Dep{}, err
	}
	d.Type = t.String()
	if d.Name == "" {
		d.Name = defaultName(d, t)
	} else if !token.IsIdentifier(d.Name) || reserved(d.Name) {
		return Dep{}, &InvalidNameError{Name: d.Name}
	}
	return Dep{Dependency: d, Parsed: t}, nil
}

// defaultName derives a parameter name: "*store.DB" -> "db", collection of
// Handler -> "handlers", config value "Orders:RetryCount" -> "retryCount".
func defaultName(d Dependency, t *typeexpr.Type) string {
	base := identOf(t)
	if d.Kind == Config && d.Binding == Value && d.Path != "" {
		p := d.Path
		if i := strings.LastIndexAny(p, ":."); i >= 0 {
			p = p[i+1:]
		}
		base = p
	}
	name := lowerCamel(sanitize(base))
	if d.Kind == Collection {
		name += "s"
	}
	if name == "" || name == "_" {
		name = "dep"
	}
	if token.IsKeyword(name) || reserved(name) {
		name += "_"
	}
	return name
}

func identOf(t *typeexpr.Type) string {
	for t != nil && t.Kind != typeexpr.Named {
		t = t.Elem
	}
	if t == nil {
		return ""
	}
	return t.Ident()
}

func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

// lowerCamel lowers the leading run of upper-case letters: "DB" -> "db",
// "HTTPClient" -> "httpClient", "Logger" -> "logger".
func lowerCamel(s string) string {
	r := []rune(s)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	if n == 0 {
		return s
	}
	if n > 1 && n < len(r) {
		n-- // first letter of the next word stays upper-case
	}
	for i := 0; i < n; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

// reserved names clash with predeclared identifiers or with the locals the
// emitter uses in generated bodies (s, sp).
func reserved(name string) bool {
	switch name {
	case "string", "int", "bool", "error", "any", "byte", "rune", "float64", "len", "cap", "new", "make", "nil", "s", "sp":
		return true
	}
	return false
}
