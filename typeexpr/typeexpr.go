// Package typeexpr parses and manipulates Go type expressions given as text.
//
// Descriptors name types the way Go source does: "Logger", "*store.DB",
// "Repository[User]", "map[string][]Handler". Parsing goes through go/parser so
// the accepted grammar is exactly Go's; the resulting tree is reduced to the
// handful of shapes a service type can take.
package typeexpr

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// Kind is the shape of a type expression.
type Kind int

const (
	Named Kind = iota
	Pointer
	Slice
	Array
	Map
	Chan
)

// ChanDir mirrors ast.ChanDir for channel types.
type ChanDir int

const (
	Both ChanDir = iota
	SendOnly
	RecvOnly
)

// ErrUnsupported is returned for expressions that are valid Go but cannot name a service type.
var ErrUnsupported = errors.New("typeexpr: unsupported type expression")

// Type is a parsed type expression.
//
// Named types carry their (possibly package-qualified) Name and generic Args.
// Pointer, Slice, Array and Chan use Elem; Map uses Key and Elem.
type Type struct {
	Kind Kind
	Name string
	Args []*Type
	Key  *Type
	Elem *Type
	Len  string
	Dir  ChanDir
}

// ParseError reports the text that failed to parse.
type ParseError struct {
	Text  string
	cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("typeexpr: cannot parse %q: %v", e.Text, e.cause)
}

func (e *ParseError) Unwrap() error { return e.cause }

// Parse parses a Go type expression.
func Parse(text string) (*Type, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ParseError{Text: text, cause: errors.New("empty")}
	}
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return nil, &ParseError{Text: text, cause: err}
	}
	t, err := fromAST(expr)
	if err != nil {
		return nil, &ParseError{Text: text, cause: err}
	}
	return t, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(text string) *Type {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Canonical parses text and prints it back in canonical form.
func Canonical(text string) (string, error) {
	t, err := Parse(text)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

func fromAST(e ast.Expr) (*Type, error) {
	switch x := e.(type) {
	case *ast.Ident:
		return &Type{Kind: Named, Name: x.Name}, nil
	case *ast.SelectorExpr:
		pkg, ok := x.X.(*ast.Ident)
		if !ok {
			return nil, ErrUnsupported
		}
		return &Type{Kind: Named, Name: pkg.Name + "." + x.Sel.Name}, nil
	case *ast.ParenExpr:
		return fromAST(x.X)
	case *ast.IndexExpr:
		return generic(x.X, []ast.Expr{x.Index})
	case *ast.IndexListExpr:
		return generic(x.X, x.Indices)
	case *ast.StarExpr:
		elem, err := fromAST(x.X)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: Pointer, Elem: elem}, nil
	case *ast.ArrayType:
		elem, err := fromAST(x.Elt)
		if err != nil {
			return nil, err
		}
		if x.Len == nil {
			return &Type{Kind: Slice, Elem: elem}, nil
		}
		lit, ok := x.Len.(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			return nil, ErrUnsupported
		}
		return &Type{Kind: Array, Len: lit.Value, Elem: elem}, nil
	case *ast.MapType:
		key, err := fromAST(x.Key)
		if err != nil {
			return nil, err
		}
		val, err := fromAST(x.Value)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: Map, Key: key, Elem: val}, nil
	case *ast.ChanType:
		elem, err := fromAST(x.Value)
		if err != nil {
			return nil, err
		}
		dir := Both
		switch x.Dir {
		case ast.SEND:
			dir = SendOnly
		case ast.RECV:
			dir = RecvOnly
		}
		return &Type{Kind: Chan, Dir: dir, Elem: elem}, nil
	case *ast.InterfaceType:
		if x.Methods == nil || len(x.Methods.List) == 0 {
			return &Type{Kind: Named, Name: "any"}, nil
		}
		return nil, ErrUnsupported
	default:
		return nil, ErrUnsupported
	}
}

func generic(head ast.Expr, indices []ast.Expr) (*Type, error) {
	t, err := fromAST(head)
	if err != nil {
		return nil, err
	}
	if t.Kind != Named || len(t.Args) > 0 {
		return nil, ErrUnsupported
	}
	for _, idx := range indices {
		a, err := fromAST(idx)
		if err != nil {
			return nil, err
		}
		t.Args = append(t.Args, a)
	}
	return t, nil
}

// String prints the canonical form of t.
func (t *Type) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Type) write(sb *strings.Builder) {
	if t == nil {
		return
	}
	switch t.Kind {
	case Named:
		sb.WriteString(t.Name)
		if len(t.Args) > 0 {
			sb.WriteByte('[')
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				a.write(sb)
			}
			sb.WriteByte(']')
		}
	case Pointer:
		sb.WriteByte('*')
		t.Elem.write(sb)
	case Slice:
		sb.WriteString("[]")
		t.Elem.write(sb)
	case Array:
		sb.WriteString("[" + t.Len + "]")
		t.Elem.write(sb)
	case Map:
		sb.WriteString("map[")
		t.Key.write(sb)
		sb.WriteByte(']')
		t.Elem.write(sb)
	case Chan:
		switch t.Dir {
		case SendOnly:
			sb.WriteString("chan<- ")
		case RecvOnly:
			sb.WriteString("<-chan ")
		default:
			sb.WriteString("chan ")
		}
		t.Elem.write(sb)
	}
}

// Head returns the name of a named type without its generic arguments.
// Pointers are looked through. Other shapes return "".
func (t *Type) Head() string {
	switch {
	case t == nil:
		return ""
	case t.Kind == Named:
		return t.Name
	case t.Kind == Pointer:
		return t.Elem.Head()
	default:
		return ""
	}
}

// Ident returns the unqualified identifier of Head: "store.Cache" -> "Cache".
func (t *Type) Ident() string {
	h := t.Head()
	if i := strings.LastIndexByte(h, '.'); i >= 0 {
		return h[i+1:]
	}
	return h
}

// Clone returns a deep copy.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	c := *t
	c.Key = t.Key.Clone()
	c.Elem = t.Elem.Clone()
	if t.Args != nil {
		c.Args = make([]*Type, len(t.Args))
		for i, a := range t.Args {
			c.Args[i] = a.Clone()
		}
	}
	return &c
}

// Equal reports structural equality.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Name != b.Name || a.Len != b.Len || a.Dir != b.Dir || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !Equal(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return Equal(a.Key, b.Key) && Equal(a.Elem, b.Elem)
}
