package emit

import (
	"strconv"
	"text/template"

	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/hierarchy"
	"github.com/sghaida/wiregen/plan"
	"github.com/sghaida/wiregen/synth"
)

type regEntry struct {
	Open     bool
	Redirect bool
	Lifetime string
	Service  string
	Impl     string
	Call     string
	Args     []string
}

type regGroup struct {
	Guard   string
	Entries []regEntry

	desc *descriptor.Service
}

type regFile struct {
	header
	Routine string
	MarkKey string

	R, Env, EnvName, Cfg, SP string

	ReadEnv bool
	ReadCfg bool
	Groups  []regGroup
}

// Registration renders the registration routine:
//
//	func RegisterServices(r di.Registrar, env di.Environment)
//
// The routine marks itself on the registrar and returns early when it already
// ran. Entries are registered in plan order; consecutive entries of one
// guarded descriptor share one if block. The environment name and the
// configuration are read once, and only when a guard needs them.
func Registration(res *synth.Result, opts Options) ([]byte, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}

	im := newImports(opts)
	im.di = true
	units := map[*descriptor.Service]*hierarchy.Resolved{}
	for _, u := range res.Units {
		units[u.Service] = u.Resolved
	}

	// first pass: collect every qualifier so locals can avoid them
	var readEnv, readCfg bool
	for _, e := range res.Plan.Entries {
		entry(im, "sp", e, units[e.Descriptor])
		env, cfg := subjects(e.Guard)
		readEnv = readEnv || env
		readCfg = readCfg || cfg
	}
	if readEnv || readCfg {
		im.std["strings"] = true
	}

	taken := im.taken()
	f := regFile{
		Routine: opts.routine(),
		MarkKey: opts.Package + "." + opts.routine(),
		R:       pick("r", taken),
		Env:     pick("env", taken),
		EnvName: pick("envName", taken),
		Cfg:     pick("cfg", taken),
		SP:      pick("sp", taken),
		ReadEnv: readEnv,
		ReadCfg: readCfg,
	}
	g := guards{envName: f.EnvName, cfg: f.Cfg}

	for _, e := range res.Plan.Entries {
		n := len(f.Groups)
		if n == 0 || f.Groups[n-1].desc != e.Descriptor {
			f.Groups = append(f.Groups, regGroup{desc: e.Descriptor, Guard: g.ifCond(e.Guard)})
			n++
		}
		f.Groups[n-1].Entries = append(f.Groups[n-1].Entries, entry(im, f.SP, e, units[e.Descriptor]))
	}

	imps, err := im.resolve()
	if err != nil {
		return nil, err
	}
	f.header = header{Package: opts.Package, Fingerprint: res.Fingerprint, Imports: imps}
	return render(regTpl, f)
}

func entry(im *imports, sp string, e plan.Entry, r *hierarchy.Resolved) regEntry {
	re := regEntry{
		Open:     e.Open,
		Lifetime: e.Lifetime.Title(),
	}
	if e.Open {
		// open registrations are named, not referenced
		re.Service = e.Service.String()
		re.Impl = e.Implementation.String()
		re.Redirect = e.Kind == plan.InterfaceFactory
		return re
	}
	re.Service = im.typ(e.Service)
	re.Impl = im.typ(e.Implementation)
	switch e.Kind {
	case plan.InterfaceFactory:
		re.Redirect = true
	default:
		re.Call = ctorRef(im, e.Descriptor, e.Descriptor.Type)
		if r != nil {
			for _, p := range r.Params() {
				re.Args = append(re.Args, argument(im, sp, p))
			}
		}
	}
	return re
}

// argument is the factory expression supplying one constructor parameter.
func argument(im *imports, sp string, p hierarchy.Param) string {
	t := im.typ(p.Parsed)
	switch p.Kind {
	case descriptor.Collection:
		return "di.All[" + t + "](" + sp + ")"
	case descriptor.Config:
		fn := "Value"
		switch p.Binding {
		case descriptor.Section:
			fn = "Section"
		case descriptor.Monitor:
			fn = "MonitorOf"
		case descriptor.Snapshot:
			fn = "SnapshotOf"
		}
		return "di." + fn + "[" + t + "](" + sp + ", " + strconv.Quote(p.Path) + ")"
	default:
		return "di.Get[" + t + "](" + sp + ")"
	}
}

var regTpl = template.Must(template.New("registration").Parse(headerTpl + `
// {{ .Routine }} registers the services of this package. Calling it again on
// the same registrar is a no-op.
func {{ .Routine }}({{ .R }} di.Registrar, {{ .Env }} di.Environment) {
	if !{{ .R }}.Mark({{ printf "%q" .MarkKey }}) {
		return
	}
{{- if .ReadEnv }}
	{{ .EnvName }} := {{ .Env }}.Name()
{{- end }}
{{- if .ReadCfg }}
	{{ .Cfg }} := {{ .Env }}.Config()
{{- end }}
{{- range .Groups }}
{{- "\n" }}
{{- if .Guard }}
	if {{ .Guard }} {
{{- end }}
{{- range .Entries }}
{{- if and .Open .Redirect }}
	{{ $.R }}.RedirectOpen(di.{{ .Lifetime }}, {{ printf "%q" .Service }}, {{ printf "%q" .Impl }})
{{- else if .Open }}
	{{ $.R }}.RegisterOpen(di.{{ .Lifetime }}, {{ printf "%q" .Service }}, {{ printf "%q" .Impl }})
{{- else }}
	{{ $.R }}.Register(di.{{ .Lifetime }}, di.TypeOf[{{ .Service }}](), func({{ $.SP }} di.Resolver) (any, error) {
{{- if .Redirect }}
		return {{ $.SP }}.Resolve(di.TypeOf[{{ .Impl }}]())
{{- else if .Args }}
		return {{ .Call }}(
{{- range .Args }}
			{{ . }},
{{- end }}
		), nil
{{- else }}
		return {{ .Call }}(), nil
{{- end }}
	})
{{- end }}
{{- end }}
{{- if .Guard }}
	}
{{- end }}
{{- end }}
}
`))
