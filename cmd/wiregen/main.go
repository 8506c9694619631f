package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sghaida/wiregen/config"
	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/diag"
	"github.com/sghaida/wiregen/emit"
	"github.com/sghaida/wiregen/internal/gomod"
	"github.com/sghaida/wiregen/synth"
)

// Options are the command line flags. Flags override the configuration file.
type Options struct {
	Config      string            `short:"c" long:"config" description:"generator configuration file (yaml or json); defaults to ./wiregen.yaml when present"`
	Descriptors []string          `short:"d" long:"descriptors" description:"descriptor file; repeat to merge files in order"`
	Package     string            `short:"p" long:"package" description:"package clause of the generated files"`
	Routine     string            `short:"r" long:"routine" description:"name of the registration routine"`
	CtorsOut    string            `long:"ctors-out" description:"constructors output file"`
	RegOut      string            `long:"reg-out" description:"registration output file"`
	DIImport    string            `long:"di-import" description:"import path of the di runtime"`
	Imports     map[string]string `short:"i" long:"import" description:"qualifier:path of a package used in descriptor types"`
	Strict      bool              `long:"strict-single" description:"note single dependencies with several unconditional providers"`
	Parallelism int               `short:"j" long:"parallelism" description:"descriptors resolved in parallel (0 = GOMAXPROCS)"`
	Werror      bool              `long:"werror" description:"exit non-zero when warnings are reported"`
	Explain     bool              `long:"explain" description:"print a summary of the registration plan"`
	Verbose     bool              `short:"v" long:"verbose" description:"debug logging"`
	NoColor     bool              `long:"no-color" description:"disable colored diagnostics"`
}

// FailedError is returned when the pass reported errors, or warnings under --werror.
// The outputs are written either way.
type FailedError struct {
	Errors   int
	Warnings int
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("wiregen: %d error(s), %d warning(s)", e.Errors, e.Warnings)
}

func run(ctx context.Context, args []string, w io.Writer) error {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}

	cfg, err := loadConfig(&opts)
	if err != nil {
		return err
	}

	log, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ds, err := descriptor.LoadAll(cfg.Descriptors...)
	if err != nil {
		return err
	}
	log.Debug("descriptors loaded", zap.Int("count", len(ds)), zap.Strings("files", cfg.Descriptors))

	res, err := synth.Synthesize(ctx, ds, synth.Options{
		StrictSingle: cfg.StrictSingle,
		Parallelism:  cfg.Parallelism,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	eo, err := emitOptions(cfg)
	if err != nil {
		return err
	}
	log.Debug("imports resolved", zap.String("di", eo.DIImport), zap.Int("candidates", len(eo.Imports)))

	if err := generate(cfg.ConstructorsOut, func() ([]byte, error) { return emit.Constructors(res, eo) }); err != nil {
		return err
	}
	if err := generate(cfg.RegistrationOut, func() ([]byte, error) { return emit.Registration(res, eo) }); err != nil {
		return err
	}
	log.Info("outputs written", zap.String("constructors", cfg.ConstructorsOut), zap.String("registration", cfg.RegistrationOut))

	printDiagnostics(w, res.Diagnostics, opts.NoColor)
	if opts.Explain {
		fmt.Fprint(w, res.Explain())
	}

	errs, warns := res.Diagnostics.Count(diag.Error), res.Diagnostics.Count(diag.Warning)
	if errs > 0 || (cfg.Werror && warns > 0) {
		return &FailedError{Errors: errs, Warnings: warns}
	}
	return nil
}

// loadConfig reads the configuration file, applies flag overrides and
// defaults, and resolves every path against the file's directory.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg := &config.Config{}
	path := opts.Config
	if path == "" {
		if st, err := os.Stat(config.DefaultFile); err == nil && !st.IsDir() {
			path = config.DefaultFile
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	abs := func(p string) string {
		if p == "" {
			return ""
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return p
		}
		return a
	}
	if len(opts.Descriptors) > 0 {
		cfg.Descriptors = nil
		for _, d := range opts.Descriptors {
			cfg.Descriptors = append(cfg.Descriptors, abs(d))
		}
	}
	if opts.CtorsOut != "" {
		cfg.ConstructorsOut = abs(opts.CtorsOut)
	}
	if opts.RegOut != "" {
		cfg.RegistrationOut = abs(opts.RegOut)
	}
	if opts.Package != "" {
		cfg.Package = opts.Package
	}
	if opts.Routine != "" {
		cfg.Routine = opts.Routine
	}
	if opts.DIImport != "" {
		cfg.DIImport = opts.DIImport
	}
	for q, p := range opts.Imports {
		if cfg.Imports == nil {
			cfg.Imports = map[string]string{}
		}
		cfg.Imports[q] = p
	}
	cfg.StrictSingle = cfg.StrictSingle || opts.Strict
	cfg.Werror = cfg.Werror || opts.Werror
	if opts.Parallelism != 0 {
		cfg.Parallelism = opts.Parallelism
	}

	config.ApplyDefaults(cfg)
	for i, d := range cfg.Descriptors {
		cfg.Descriptors[i] = cfg.Path(d)
	}
	cfg.ConstructorsOut = cfg.Path(cfg.ConstructorsOut)
	cfg.RegistrationOut = cfg.Path(cfg.RegistrationOut)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// emitOptions resolves imports the way a developer would: configured imports
// first, then the imports of the package's own files, then those of the
// previous outputs.
func emitOptions(cfg *config.Config) (emit.Options, error) {
	pkgDir := filepath.Dir(cfg.RegistrationOut)
	scanned := gomod.ScanPackage(pkgDir)

	var candidates []gomod.Import
	candidates = append(candidates, cfg.ImportList()...)
	candidates = append(candidates, scanned...)
	candidates = append(candidates, gomod.ReadFile(cfg.RegistrationOut)...)
	candidates = append(candidates, gomod.ReadFile(cfg.ConstructorsOut)...)

	runtime := strings.TrimSpace(cfg.DIImport)
	if runtime == "" {
		var err error
		if runtime, err = gomod.InferRuntime(scanned); err != nil {
			return emit.Options{}, fmt.Errorf("wiregen: cannot infer di runtime import, set diImport: %w", err)
		}
	}
	return emit.Options{
		Package:  cfg.Package,
		Routine:  cfg.Routine,
		DIImport: runtime,
		Imports:  candidates,
	}, nil
}

// generate renders and writes one output. Source that does not format is
// still written, unformatted, so it can be inspected.
func generate(out string, render func() ([]byte, error)) error {
	src, err := render()
	var fe *emit.FormatError
	if errors.As(err, &fe) {
		if werr := write(out, fe.Source); werr != nil {
			return werr
		}
		return fmt.Errorf("%s: %w", filepath.ToSlash(out), err)
	}
	if err != nil {
		return err
	}
	return write(out, src)
}

func write(out string, src []byte) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, src, 0o644)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.DisableStacktrace = true
	return zc.Build()
}

func printDiagnostics(w io.Writer, list diag.List, noColor bool) {
	paint := map[diag.Severity]*color.Color{
		diag.Info:    color.New(color.FgCyan),
		diag.Warning: color.New(color.FgYellow, color.Bold),
		diag.Error:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range paint {
		if noColor {
			c.DisableColor()
		}
	}
	for _, d := range list {
		label := paint[d.Severity].Sprint(d.Severity.String())
		fmt.Fprintf(w, "%s %s: %s\n", label, d.Code, d.Message)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stderr)
	var fe *flags.Error
	if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
		fmt.Fprintln(os.Stdout, fe.Message)
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
