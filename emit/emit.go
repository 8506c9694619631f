// Package emit renders the Go source of a synthesis pass: one file of
// constructors and one file holding the registration routine.
//
// Both files start with a header carrying the descriptor fingerprint and are
// run through go/format, so the same descriptors always produce the same bytes.
// Package qualifiers used by descriptor types ("store.DB") are resolved against
// Options.Imports; only imports the generated code references are written.
package emit

import (
	"bytes"
	"errors"
	"go/format"
	"go/token"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/sghaida/wiregen/internal/gomod"
	"github.com/sghaida/wiregen/typeexpr"
)

// DefaultRoutine is the name of the registration routine when none is configured.
const DefaultRoutine = "RegisterServices"

var (
	// ErrNoPackage is returned when Options.Package is not a Go identifier.
	ErrNoPackage = errors.New("emit: package name must be a Go identifier")
	// ErrNoRuntime is returned when Options.DIImport is empty.
	ErrNoRuntime = errors.New("emit: di runtime import path is required")
)

// Options controls rendering.
type Options struct {
	// Package is the package clause of both files.
	Package string
	// Routine names the registration routine. Empty means DefaultRoutine.
	Routine string
	// DIImport is the import path of the di runtime package.
	DIImport string
	// Imports are the candidates package qualifiers are resolved against,
	// typically the imports of the package's hand-written files followed by
	// those of a previous output.
	Imports []gomod.Import
}

func (o Options) routine() string {
	if strings.TrimSpace(o.Routine) == "" {
		return DefaultRoutine
	}
	return o.Routine
}

func (o Options) check() error {
	if !token.IsIdentifier(o.Package) {
		return ErrNoPackage
	}
	if strings.TrimSpace(o.DIImport) == "" {
		return ErrNoRuntime
	}
	if !token.IsIdentifier(o.routine()) {
		return &InvalidNameError{Name: o.routine()}
	}
	return nil
}

// InvalidNameError reports a configured name that is not a Go identifier.
type InvalidNameError struct{ Name string }

func (e *InvalidNameError) Error() string {
	return "emit: " + strconv.Quote(e.Name) + " is not a valid identifier"
}

// UnresolvedImportError lists package qualifiers no candidate import provides.
type UnresolvedImportError struct {
	Qualifiers []string
}

func (e *UnresolvedImportError) Error() string {
	return "emit: no import found for package qualifier(s) " + strings.Join(e.Qualifiers, ", ")
}

// FormatError is returned when the rendered source does not format. Source
// holds the unformatted text so it can be inspected.
type FormatError struct {
	Source []byte
	cause  error
}

func (e *FormatError) Error() string {
	if e.cause == nil {
		return "emit: generated source does not format"
	}
	return "emit: generated source does not format: " + e.cause.Error()
}

func (e *FormatError) Unwrap() error { return e.cause }

// stdlib resolves qualifiers of common standard library packages that the
// package sources do not import themselves.
var stdlib = map[string]string{
	"context": "context",
	"fs":      "io/fs",
	"http":    "net/http",
	"io":      "io",
	"slog":    "log/slog",
	"sql":     "database/sql",
	"time":    "time",
	"url":     "net/url",
}

// imports collects the qualifiers a file references and resolves them.
type imports struct {
	opts  Options
	quals map[string]bool
	di    bool
	std   map[string]bool
}

func newImports(opts Options) *imports {
	return &imports{opts: opts, quals: map[string]bool{}, std: map[string]bool{}}
}

// typ records the qualifiers of t and returns its source form.
func (im *imports) typ(t *typeexpr.Type) string {
	for _, q := range t.Qualifiers() {
		im.quals[q] = true
	}
	return t.String()
}

// qual records a bare qualifier, e.g. of a constructor in another package.
func (im *imports) qual(q string) {
	if q != "" {
		im.quals[q] = true
	}
}

// taken is every package name the file refers to.
func (im *imports) taken() map[string]bool {
	out := map[string]bool{"di": true}
	for q := range im.quals {
		out[q] = true
	}
	for p := range im.std {
		out[p] = true
	}
	return out
}

func (im *imports) resolve() ([]gomod.Import, error) {
	var required []gomod.Import
	if im.di {
		runtime := gomod.Import{Path: im.opts.DIImport}
		if runtime.Qualifier() != "di" {
			runtime.Name = "di"
		}
		required = append(required, runtime)
	}
	for p := range im.std {
		required = append(required, gomod.Import{Path: p})
	}

	var missing []string
	for q := range im.quals {
		if q == "di" {
			continue
		}
		if gi, ok := gomod.Lookup(im.opts.Imports, q); ok {
			required = append(required, gi)
			continue
		}
		if p, ok := stdlib[q]; ok {
			required = append(required, gomod.Import{Path: p})
			continue
		}
		missing = append(missing, q)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &UnresolvedImportError{Qualifiers: missing}
	}
	return gomod.Merge(required), nil
}

// pick returns base, or base with the smallest numeric suffix not in taken,
// and marks it taken.
func pick(base string, taken map[string]bool) string {
	name := base
	for n := 2; taken[name]; n++ {
		name = base + strconv.Itoa(n)
	}
	taken[name] = true
	return name
}

type header struct {
	Package     string
	Fingerprint string
	Imports     []gomod.Import
}

const headerTpl = `// Code generated by wiregen; DO NOT EDIT.
// Descriptors-SHA256: {{.Fingerprint}}

package {{.Package}}
{{- if .Imports }}

import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)
{{- end }}
`

func render(tpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, &FormatError{Source: buf.Bytes(), cause: err}
	}
	return src, nil
}
