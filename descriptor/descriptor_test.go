package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveLifetime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Descriptor
		want Lifetime
	}{
		{name: "unset_defaults_to_scoped", d: Descriptor{}, want: Scoped},
		{name: "declared_wins", d: Descriptor{Lifetime: Transient}, want: Transient},
		{name: "hosted_unset_is_singleton", d: Descriptor{Hosted: true}, want: Singleton},
		{name: "hosted_overrides_declared", d: Descriptor{Hosted: true, Lifetime: Scoped}, want: Singleton},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.d.EffectiveLifetime())
		})
	}
}

func TestLifetimeRankAndTitle(t *testing.T) {
	t.Parallel()

	assert.Greater(t, Singleton.Rank(), Scoped.Rank())
	assert.Greater(t, Scoped.Rank(), Transient.Rank())
	assert.Equal(t, Scoped.Rank(), Unset.Rank())
	assert.Equal(t, "Singleton", Singleton.Title())
	assert.Equal(t, "Unset", Unset.Title())
}

func TestNormalize_Defaults(t *testing.T) {
	t.Parallel()

	s, err := Normalize(3, Descriptor{
		Identity:   "orders.Service",
		Interfaces: []string{"Orders", "Orders", "io.Closer"},
		Dependencies: []Dependency{
			{Type: "*store.DB"},
			{Kind: Collection, Type: "Handler"},
			{Kind: Config, Type: "int", Path: "Orders:RetryCount"},
			{Kind: Config, Type: "OrdersOptions", Path: "Orders", Binding: Monitor},
			{Type: "HTTPClient"},
			{Type: "Map"},
		},
		Conditions: []Condition{{Subject: Environment, Key: "ignored", Values: []string{"Production"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, s.Index)
	assert.Equal(t, "orders.Service", s.ID())
	assert.Equal(t, "NewService", s.CtorName)
	assert.Equal(t, All, s.Mode)
	assert.Equal(t, Shared, s.Sharing)
	assert.Len(t, s.Ifaces, 2)

	names := []string{}
	for _, d := range s.Deps {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"db", "handlers", "retryCount", "ordersOptions", "httpClient", "map_"}, names)
	assert.Equal(t, Single, s.Deps[0].Kind)
	assert.Equal(t, Value, s.Deps[2].Binding)

	require.Len(t, s.Conditions, 1)
	assert.Equal(t, Eq, s.Conditions[0].Op)
	assert.Empty(t, s.Conditions[0].Key)
}

func TestNormalize_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Descriptor
		want error
	}{
		{name: "empty_identity", d: Descriptor{Identity: " "}, want: ErrEmptyIdentity},
		{name: "no_subject", d: Descriptor{Identity: "A", Conditions: []Condition{{Values: []string{"x"}}}}, want: ErrNoSubject},
		{name: "config_without_key", d: Descriptor{Identity: "A", Conditions: []Condition{{Subject: Configuration, Values: []string{"x"}}}}, want: ErrNoKey},
		{name: "no_values", d: Descriptor{Identity: "A", Conditions: []Condition{{Subject: Environment}}}, want: ErrNoValues},
		{name: "dep_without_type", d: Descriptor{Identity: "A", Dependencies: []Dependency{{Name: "x"}}}, want: ErrNoType},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(0, tt.d)
			require.Error(t, err)
			var me *MalformedError
			require.True(t, errors.As(err, &me))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalize_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		d     Descriptor
		field string
	}{
		{name: "lifetime", d: Descriptor{Identity: "A", Lifetime: "forever"}, field: "lifetime"},
		{name: "mode", d: Descriptor{Identity: "A", Mode: "some"}, field: "mode"},
		{name: "sharing", d: Descriptor{Identity: "A", Sharing: "pooled"}, field: "sharing"},
		{name: "subject", d: Descriptor{Identity: "A", Conditions: []Condition{{Subject: "moon", Values: []string{"x"}}}}, field: "subject"},
		{name: "op", d: Descriptor{Identity: "A", Conditions: []Condition{{Subject: Environment, Op: "lt", Values: []string{"x"}}}}, field: "op"},
		{name: "kind", d: Descriptor{Identity: "A", Dependencies: []Dependency{{Kind: "lazy", Type: "X"}}}, field: "kind"},
		{name: "binding", d: Descriptor{Identity: "A", Dependencies: []Dependency{{Kind: Config, Type: "X", Binding: "live"}}}, field: "binding"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(0, tt.d)
			var ive *InvalidValueError
			require.True(t, errors.As(err, &ive), "got %v", err)
			assert.Equal(t, tt.field, ive.Field)
		})
	}
}

func TestNormalize_TypeParams(t *testing.T) {
	t.Parallel()

	_, err := Normalize(0, Descriptor{Identity: "Repository[T]", TypeParams: []string{"T"}})
	require.NoError(t, err)

	_, err = Normalize(0, Descriptor{Identity: "Repository[T]", TypeParams: []string{"T", "K"}})
	var tpe *TypeParamsError
	require.True(t, errors.As(err, &tpe))

	_, err = Normalize(0, Descriptor{Identity: "Repository[User]", TypeParams: []string{"T"}})
	require.True(t, errors.As(err, &tpe))
}

func TestNormalize_Names(t *testing.T) {
	t.Parallel()

	_, err := Normalize(0, Descriptor{Identity: "A", Constructor: "make a"})
	var ine *InvalidNameError
	require.True(t, errors.As(err, &ine))

	_, err = Normalize(0, Descriptor{Identity: "A", Dependencies: []Dependency{{Type: "X", Name: "sp"}}})
	require.True(t, errors.As(err, &ine))

	s, err := Normalize(0, Descriptor{Identity: "A", Constructor: "BuildA"})
	require.NoError(t, err)
	assert.Equal(t, "BuildA", s.CtorName)
}

func TestMalformedError_Message(t *testing.T) {
	t.Parallel()

	err := newMalformed(4, "", "identity", ErrEmptyIdentity)
	assert.Equal(t, "malformed descriptor #4 (identity): descriptor: empty identity", err.Error())

	err = newMalformed(0, "A", "", ErrNoType)
	assert.Equal(t, "malformed descriptor A: descriptor: dependency has no type", err.Error())
}

func TestUnmarshalText_Aliases(t *testing.T) {
	t.Parallel()

	var s Subject
	require.NoError(t, s.UnmarshalText([]byte(" ENV ")))
	assert.Equal(t, Environment, s)

	var o Operator
	require.NoError(t, o.UnmarshalText([]byte("!=")))
	assert.Equal(t, Ne, o)

	var l Lifetime
	require.NoError(t, l.UnmarshalText([]byte("Unset")))
	assert.Equal(t, Unset, l)
}

const yamlDoc = `
services:
  - identity: Clock
    lifetime: Singleton
    interfaces: [Timer]
  - identity: OrderService
    lifetime: scoped
    mode: All
    sharing: Separate
    interfaces: [Orders]
    dependencies:
      - type: Timer
      - kind: collection
        type: Handler
      - kind: config
        type: OrdersOptions
        path: Orders
        binding: section
    conditions:
      - subject: environment
        op: "!="
        values: [Test]
`

const jsonDoc = `{"services":[
 {"identity":"Clock","lifetime":"singleton","interfaces":["Timer"]},
 {"identity":"OrderService","lifetime":"Scoped","mode":"all","sharing":"separate","interfaces":["Orders"],
  "dependencies":[{"type":"Timer"},{"kind":"collection","type":"Handler"},
   {"kind":"config","type":"OrdersOptions","path":"Orders","binding":"section"}],
  "conditions":[{"subject":"env","op":"ne","values":["Test"]}]}
]}`

func TestDecode_YAMLAndJSONAgree(t *testing.T) {
	t.Parallel()

	fromYAML, err := Decode([]byte(yamlDoc), YAML)
	require.NoError(t, err)
	fromJSON, err := Decode([]byte(jsonDoc), JSON)
	require.NoError(t, err)

	require.Len(t, fromYAML, 2)
	assert.Equal(t, fromJSON, fromYAML)
	assert.Equal(t, Fingerprint(fromJSON), Fingerprint(fromYAML))
	assert.Equal(t, Separate, fromYAML[1].Sharing)
	assert.Equal(t, Ne, fromYAML[1].Conditions[0].Op)
}

func TestDecode_BareListsAndEmpty(t *testing.T) {
	t.Parallel()

	ds, err := Decode([]byte(`[{"identity":"A"}]`), JSON)
	require.NoError(t, err)
	assert.Equal(t, []Descriptor{{Identity: "A"}}, ds)

	ds, err = Decode([]byte("- identity: A\n"), YAML)
	require.NoError(t, err)
	assert.Equal(t, []Descriptor{{Identity: "A"}}, ds)

	ds, err = Decode([]byte("  \n"), YAML)
	require.NoError(t, err)
	assert.Nil(t, ds)

	_, err = Decode([]byte(`{`), JSON)
	require.Error(t, err)

	_, err = Decode([]byte(`x`), "toml")
	var ive *InvalidValueError
	require.True(t, errors.As(err, &ive))
}

func TestLoadAll_Order(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(a, []byte("services:\n  - identity: A\n  - identity: B\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`[{"identity":"C"}]`), 0o644))

	ds, err := LoadAll(a, b)
	require.NoError(t, err)
	ids := []string{}
	for _, d := range ds {
		ids = append(ids, d.Identity)
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids)

	_, err = LoadAll(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, JSON, FormatOf("x/services.JSON"))
	assert.Equal(t, YAML, FormatOf("services.yml"))
	assert.Equal(t, YAML, FormatOf("services"))
}
