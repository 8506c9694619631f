package emit

import (
	"strings"
	"text/template"

	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/hierarchy"
	"github.com/sghaida/wiregen/synth"
	"github.com/sghaida/wiregen/typeexpr"
)

type paramView struct {
	Name string
	Type string
}

type fieldView struct {
	Field string
	Param string
}

type baseView struct {
	Field string
	Call  string
	Args  []string
}

type ctorView struct {
	Name       string
	Doc        string
	TypeParams string
	Result     string
	Literal    string
	Local      string
	Params     []paramView
	Base       *baseView
	Fields     []fieldView

	typeParams []string
}

type ctorFile struct {
	header
	Ctors []ctorView
}

// Constructors renders one constructor per resolved descriptor declared in
// the target package. External descriptors and descriptors naming a type of
// another package are skipped; their constructors live with their types.
//
// Parameters follow hierarchy.Resolved.Params: the base chain root first, and
// within each level service dependencies before configuration-bound ones. The
// base part is forwarded to the base constructor and assigned to the embedded
// base field; the rest is assigned field by field.
func Constructors(res *synth.Result, opts Options) ([]byte, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}

	im := newImports(opts)
	var ctors []ctorView
	for _, u := range res.Units {
		s := u.Service
		if s.External || qualifier(s.Type) != "" {
			continue
		}
		ctors = append(ctors, constructor(im, u.Resolved))
	}

	taken := im.taken()
	for i := range ctors {
		ctors[i].Local = pick("s", ctors[i].rename(taken))
	}

	imps, err := im.resolve()
	if err != nil {
		return nil, err
	}
	return render(ctorTpl, ctorFile{
		header: header{Package: opts.Package, Fingerprint: res.Fingerprint, Imports: imps},
		Ctors:  ctors,
	})
}

func constructor(im *imports, r *hierarchy.Resolved) ctorView {
	s := r.Service
	ty := im.typ(s.Type)
	c := ctorView{
		Name:    s.CtorName,
		Doc:     ty,
		Result:  "*" + ty,
		Literal: "&" + ty + "{}",

		typeParams: s.TypeParams,
	}
	if len(s.TypeParams) > 0 {
		c.TypeParams = "[" + strings.Join(s.TypeParams, ", ") + " any]"
	}

	for _, p := range r.Params() {
		c.Params = append(c.Params, paramView{Name: p.Param, Type: paramType(im, p)})
	}
	if b := r.Base(); b != nil {
		bv := &baseView{Field: b.Type.Ident(), Call: ctorRef(im, b.Service, b.Type)}
		for _, p := range r.Forwarded() {
			bv.Args = append(bv.Args, p.Param)
		}
		c.Base = bv
	}
	for _, p := range r.Own() {
		c.Fields = append(c.Fields, fieldView{Field: p.Name, Param: p.Param})
	}
	return c
}

// rename moves parameters off the package names the file refers to, so the
// body can still reach those packages, and returns every name now in use.
func (c *ctorView) rename(taken map[string]bool) map[string]bool {
	names := map[string]bool{}
	for q := range taken {
		names[q] = true
	}
	for _, tp := range c.typeParams {
		names[tp] = true
	}
	for _, p := range c.Params {
		if !taken[p.Name] {
			names[p.Name] = true
		}
	}

	moved := map[string]string{}
	for i, p := range c.Params {
		if taken[p.Name] {
			c.Params[i].Name = pick(p.Name, names)
			moved[p.Name] = c.Params[i].Name
		}
	}
	if len(moved) == 0 {
		return names
	}
	if c.Base != nil {
		for i, a := range c.Base.Args {
			if n, ok := moved[a]; ok {
				c.Base.Args[i] = n
			}
		}
	}
	for i, f := range c.Fields {
		if n, ok := moved[f.Param]; ok {
			c.Fields[i].Param = n
		}
	}
	return names
}

// paramType is the Go type of a constructor parameter.
func paramType(im *imports, p hierarchy.Param) string {
	t := im.typ(p.Parsed)
	switch {
	case p.Kind == descriptor.Collection:
		return "[]" + t
	case p.Kind == descriptor.Config && p.Binding == descriptor.Monitor:
		im.di = true
		return "*di.Monitor[" + t + "]"
	case p.Kind == descriptor.Config && p.Binding == descriptor.Snapshot:
		im.di = true
		return "*di.Snapshot[" + t + "]"
	default:
		return t
	}
}

// ctorRef is how the generated package refers to the constructor of s
// instantiated at ty: "NewCache", "store.NewCache", "NewRepository[User]".
func ctorRef(im *imports, s *descriptor.Service, ty *typeexpr.Type) string {
	name := s.CtorName
	if q := qualifier(s.Type); q != "" {
		im.qual(q)
		name = q + "." + name
	}
	if len(s.TypeParams) > 0 && len(ty.Args) > 0 {
		args := make([]string, len(ty.Args))
		for i, a := range ty.Args {
			args[i] = im.typ(a)
		}
		name += "[" + strings.Join(args, ", ") + "]"
	}
	return name
}

// qualifier is the package qualifier of a named type's head, or "".
func qualifier(t *typeexpr.Type) string {
	h := t.Head()
	if i := strings.IndexByte(h, '.'); i > 0 {
		return h[:i]
	}
	return ""
}

var ctorTpl = template.Must(template.New("constructors").Parse(headerTpl + `
{{- range .Ctors }}
{{ $c := . }}
// {{ .Name }} constructs {{ .Doc }}.
func {{ .Name }}{{ .TypeParams }}(
{{- range $i, $p := .Params }}{{ if $i }}, {{ end }}{{ $p.Name }} {{ $p.Type }}{{ end -}}
) {{ .Result }} {
	{{ .Local }} := {{ .Literal }}
{{- with .Base }}
	{{ $c.Local }}.{{ .Field }} = *{{ .Call }}({{ range $i, $a := .Args }}{{ if $i }}, {{ end }}{{ $a }}{{ end }})
{{- end }}
{{- range .Fields }}
	{{ $c.Local }}.{{ .Field }} = {{ .Param }}
{{- end }}
	return {{ .Local }}
}
{{- end }}
`))
