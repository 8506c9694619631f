// Package gomod locates modules and infers the import paths generated code needs.
//
// Rules implemented:
//
// (1) Package qualifiers used in descriptor types ("store.DB") are resolved
//     against the imports of the hand-written files in the target package.
// (2) Imports of a previous generated output are kept as a fallback source.
// (3) The di runtime path comes from the package sources when they already
//     import it (lets a project fork the runtime), otherwise from the go.mod
//     of the module containing wiregen itself.
//
// Notes:
//   - Generated files (*.gen.go, *_gen.go) are never scanned so outputs are not
//     fed back into inference.
package gomod

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"
)

// Error is returned when a module or import cannot be located.
type Error struct{ msg string }

func (e *Error) Error() string { return "gomod: " + e.msg }

// Import is one import spec.
type Import struct {
	Name string // optional alias, e.g. "config"
	Path string // import path or stdlib package, e.g. "context"
}

var majorSuffix = regexp.MustCompile(`^v[0-9]+$`)

// Qualifier is the name the import is referred to by in source: the alias
// when set, otherwise the last path element (a major-version element such as
// "v2" is looked through).
func (i Import) Qualifier() string {
	if i.Name != "" {
		return i.Name
	}
	parts := strings.Split(i.Path, "/")
	last := parts[len(parts)-1]
	if len(parts) > 1 && majorSuffix.MatchString(last) {
		last = parts[len(parts)-2]
	}
	return last
}

// FindModule walks up from startDir to the nearest go.mod and returns its
// directory and module path.
func FindModule(startDir string) (root string, path string, err error) {
	dir := startDir
	for {
		gomod := filepath.Join(dir, "go.mod")
		if fileExists(gomod) {
			b, rerr := os.ReadFile(gomod)
			if rerr != nil {
				return "", "", rerr
			}
			mf, perr := modfile.ParseLax(gomod, b, nil)
			if perr != nil {
				return "", "", perr
			}
			if mf.Module == nil || strings.TrimSpace(mf.Module.Mod.Path) == "" {
				return "", "", &Error{msg: "go.mod missing module directive at " + filepath.ToSlash(gomod)}
			}
			return dir, mf.Module.Mod.Path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", &Error{msg: "could not find go.mod starting from " + filepath.ToSlash(startDir)}
}

// ImportPathForDir returns the import path of dir inside the module rooted at root.
func ImportPathForDir(root, modPath, dir string) (string, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)

	if rel == "." {
		return modPath, nil
	}
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", &Error{msg: "directory is outside module root: dir=" + filepath.ToSlash(dir) + " root=" + filepath.ToSlash(root)}
	}
	return modPath + "/" + rel, nil
}

// ScanPackage reads the imports of every hand-written .go file in pkgDir,
// keeping aliases. Test files and generated files are skipped; files that do
// not parse are ignored.
func ScanPackage(pkgDir string) []Import {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil
	}

	var out []Import
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if generatedName(name) {
			continue
		}
		out = append(out, ReadFile(filepath.Join(pkgDir, name))...)
	}
	return Merge(out)
}

func generatedName(name string) bool {
	return strings.HasSuffix(name, ".gen.go") || strings.Contains(name, ".gen.") || strings.HasSuffix(name, "_gen.go")
}

// ReadFile returns the imports of one Go file, or nil when it is missing or
// does not parse.
func ReadFile(path string) []Import {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.ImportsOnly)
	if err != nil {
		return nil
	}

	out := make([]Import, 0, len(f.Imports))
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := ""
		if imp.Name != nil {
			name = imp.Name.Name
		}
		out = append(out, Import{Name: name, Path: p})
	}
	return out
}

// Find picks an import by alias first, then by path suffix.
func Find(imports []Import, alias, suffix string) (Import, bool) {
	if alias != "" {
		for _, gi := range imports {
			if gi.Name == alias {
				return gi, true
			}
		}
	}
	if suffix != "" {
		for _, gi := range imports {
			if strings.HasSuffix(gi.Path, suffix) {
				return gi, true
			}
		}
	}
	return Import{}, false
}

// Lookup returns the first import referred to as qualifier. Blank and dot
// imports never match.
func Lookup(imports []Import, qualifier string) (Import, bool) {
	for _, gi := range imports {
		if gi.Name == "_" || gi.Name == "." {
			continue
		}
		if gi.Qualifier() == qualifier {
			return gi, true
		}
	}
	return Import{}, false
}

// Merge concatenates the lists, drops exact duplicates and sorts by path then
// alias. Earlier lists do not take precedence: the result is a set.
func Merge(lists ...[]Import) []Import {
	type key struct {
		path string
		name string
	}
	seen := map[key]bool{}
	var out []Import
	for _, l := range lists {
		for _, gi := range l {
			k := key{path: gi.Path, name: gi.Name}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, gi)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// RuntimeImport computes the import path of a package of the module that
// contains this generator, e.g. RuntimeImport("di").
func RuntimeImport(rel string) (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", &Error{msg: "cannot infer runtime import: runtime.Caller failed"}
	}
	root, modPath, err := FindModule(filepath.Dir(thisFile))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(rel) == "" {
		rel = "di"
	}
	if !dirExists(filepath.Join(root, filepath.FromSlash(rel))) {
		return "", &Error{msg: "expected runtime package dir at " + filepath.ToSlash(filepath.Join(root, rel))}
	}
	return modPath + "/" + filepath.ToSlash(rel), nil
}

// InferRuntime prefers a di import already present in the package sources and
// falls back to RuntimeImport.
func InferRuntime(scanned []Import) (string, error) {
	if gi, ok := Find(scanned, "di", "/di"); ok {
		return gi.Path, nil
	}
	return RuntimeImport("di")
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
