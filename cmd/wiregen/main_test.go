package main

import (
	"bytes"
	"context"
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/wiregen/config"
	"github.com/sghaida/wiregen/diag"
	"github.com/sghaida/wiregen/emit"
)

type pkgHarness struct {
	t   *testing.T
	dir string
}

func newPkg(t *testing.T) *pkgHarness {
	t.Helper()
	return &pkgHarness{t: t, dir: t.TempDir()}
}

func (p *pkgHarness) write(rel, content string) string {
	p.t.Helper()
	path := filepath.Join(p.dir, rel)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (p *pkgHarness) out(rel string) string {
	return filepath.Join(p.dir, rel)
}

func (p *pkgHarness) read(rel string) string {
	p.t.Helper()
	b, err := os.ReadFile(p.out(rel))
	require.NoError(p.t, err)
	return string(b)
}

// shopPkg lays out a package with the shop descriptors, a hand-written source
// file importing the runtime and a configuration file.
func shopPkg(t *testing.T) *pkgHarness {
	t.Helper()
	p := newPkg(t)
	shop, err := os.ReadFile(filepath.Join("testdata", "shop.yaml"))
	require.NoError(t, err)
	p.write("shop/services.yaml", string(shop))
	p.write("shop/shop.go", `package shop

import (
	"database/sql"

	"github.com/sghaida/wiregen/di"
)

var _ *sql.DB
var _ di.Registrar
`)
	p.write("shop/wiregen.yaml", "descriptors: [services.yaml]\n")
	return p
}

func mustParse(t *testing.T, src string) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), "gen.go", src, parser.ParseComments)
	require.NoError(t, err, src)
}

// -------------------------
// run
// -------------------------

func TestRun_FlagAndConfigErrors(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	empty := p.write("empty.yaml", "package: x\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown_flag", args: []string{"--wat"}, wantErr: "unknown flag"},
		{name: "missing_config_file", args: []string{"-c", p.out("missing.yaml")}, wantErr: "config: read"},
		{name: "no_descriptors", args: []string{"-c", empty}, wantErr: config.ErrNoDescriptors.Error()},
		{name: "missing_descriptor_file", args: []string{"-c", empty, "-d", p.out("nope.yaml")}, wantErr: "descriptor: read"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := run(context.Background(), tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), []string{"--help"}, &bytes.Buffer{})
	var fe *flags.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, flags.ErrHelp, fe.Type)
}

func TestRun_GeneratesShop(t *testing.T) {
	t.Parallel()

	p := shopPkg(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-c", p.out("shop/wiregen.yaml"), "--no-color", "--explain"}, &out))

	ctors := p.read("shop/" + config.DefaultConstructorsOut)
	reg := p.read("shop/" + config.DefaultRegistrationOut)
	mustParse(t, ctors)
	mustParse(t, reg)

	assert.Contains(t, ctors, "package shop\n")
	assert.Contains(t, ctors, "func NewOrderService(db *sql.DB, timer Timer, discounts []Discount, orderOptions OrderOptions) *OrderService {")
	assert.Contains(t, reg, `"github.com/sghaida/wiregen/di"`)
	assert.Contains(t, reg, "func RegisterServices(r di.Registrar, env di.Environment) {")
	assert.Contains(t, reg, `if strings.EqualFold(envName, "Production") || strings.EqualFold(envName, "Staging") {`)
	assert.Contains(t, reg, `if strings.EqualFold(cfg.Get("Features:Loyalty"), "on") {`)
	assert.Contains(t, reg, "r.Register(di.Singleton, di.TypeOf[*OrderWorker]()")

	assert.Contains(t, out.String(), "info WG302: sql.DB is external and is not registered\n")
	assert.Contains(t, out.String(), "OrderService: Scoped\n")

	// a second run over unchanged descriptors is byte-identical
	require.NoError(t, run(context.Background(), []string{"-c", p.out("shop/wiregen.yaml"), "--no-color"}, &bytes.Buffer{}))
	assert.Equal(t, ctors, p.read("shop/"+config.DefaultConstructorsOut))
	assert.Equal(t, reg, p.read("shop/"+config.DefaultRegistrationOut))
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	p := shopPkg(t)
	args := []string{
		"-c", p.out("shop/wiregen.yaml"),
		"-p", "wiring",
		"-r", "Register",
		"--reg-out", p.out("gen/registration.gen.go"),
		"--ctors-out", p.out("gen/constructors.gen.go"),
		"--di-import", "example.com/fork/di",
		"--no-color",
	}
	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))

	reg := p.read("gen/registration.gen.go")
	assert.Contains(t, reg, "package wiring\n")
	assert.Contains(t, reg, `"example.com/fork/di"`)
	assert.Contains(t, reg, `if !r.Mark("wiring.Register") {`)
	assert.Contains(t, p.read("gen/constructors.gen.go"), "package wiring\n")
}

func TestRun_WarningsAndErrors(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	p.write("svc/services.yaml", `
- identity: Mailer
  dependencies:
    - type: Transport
`)
	p.write("svc/wiregen.yaml", "descriptors: [services.yaml]\ndiImport: example.com/di\n")
	cfgPath := p.out("svc/wiregen.yaml")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-c", cfgPath, "--no-color"}, &out))
	assert.Contains(t, out.String(), "warning WG201: Mailer depends on Transport, which no descriptor provides")

	err := run(context.Background(), []string{"-c", cfgPath, "--werror"}, &bytes.Buffer{})
	var fe *FailedError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FailedError{Errors: 0, Warnings: 1}, *fe)

	p.write("svc/broken.yaml", "- identity: \"[]Mailer\"\n")
	err = run(context.Background(), []string{"-c", cfgPath, "-d", p.out("svc/services.yaml"), "-d", p.out("svc/broken.yaml")}, &bytes.Buffer{})
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 1, fe.Errors)
	assert.FileExists(t, p.out("svc/"+config.DefaultRegistrationOut), "outputs are written even when the pass reports errors")
}

func TestRun_UnresolvedQualifier(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	p.write("svc/services.yaml", "- identity: Mailer\n  dependencies:\n    - type: \"*smtp.Client\"\n")
	p.write("svc/wiregen.yaml", "descriptors: [services.yaml]\ndiImport: example.com/di\n")

	err := run(context.Background(), []string{"-c", p.out("svc/wiregen.yaml")}, &bytes.Buffer{})
	var uie *emit.UnresolvedImportError
	require.True(t, errors.As(err, &uie))
	assert.Equal(t, []string{"smtp"}, uie.Qualifiers)

	require.NoError(t, run(context.Background(), []string{"-c", p.out("svc/wiregen.yaml"), "-i", "smtp:net/smtp"}, &bytes.Buffer{}))
	assert.Contains(t, p.read("svc/"+config.DefaultConstructorsOut), `"net/smtp"`)
}

// -------------------------
// helpers
// -------------------------

func TestGenerate_FormatErrorWritesRaw(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	out := p.out("x/bad.gen.go")
	raw := []byte("package x\nfunc {")
	err := generate(out, func() ([]byte, error) {
		return nil, &emit.FormatError{Source: raw}
	})
	require.Error(t, err)
	assert.Equal(t, string(raw), p.read("x/bad.gen.go"))

	boom := errors.New("boom")
	assert.ErrorIs(t, generate(p.out("x/other.go"), func() ([]byte, error) { return nil, boom }), boom)
	assert.NoFileExists(t, p.out("x/other.go"))
}

func TestPrintDiagnostics(t *testing.T) {
	t.Parallel()

	var list diag.List
	list.Info(diag.ExternalService, "sql.DB is external and is not registered", "sql.DB")
	list.Warn(diag.CircularDependency, "circular dependency A -> B -> A", "A", "B")

	var out bytes.Buffer
	printDiagnostics(&out, list, true)
	assert.Equal(t,
		"info WG302: sql.DB is external and is not registered\n"+
			"warning WG401: circular dependency A -> B -> A\n",
		out.String())
}
