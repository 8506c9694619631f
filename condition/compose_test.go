package condition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/wiregen/descriptor"
)

func env(op descriptor.Operator, vals ...string) descriptor.Condition {
	return descriptor.Condition{Subject: descriptor.Environment, Op: op, Values: vals}
}

func cfg(key string, op descriptor.Operator, vals ...string) descriptor.Condition {
	return descriptor.Condition{Subject: descriptor.Configuration, Key: key, Op: op, Values: vals}
}

func TestCompose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		conds []descriptor.Condition
		want  string
	}{
		{name: "none_is_true", conds: nil, want: "true"},
		{name: "single_eq", conds: []descriptor.Condition{cfg("Flag", descriptor.Eq, "enabled")}, want: `config["Flag"] == "enabled"`},
		{name: "single_ne", conds: []descriptor.Condition{cfg("Flag", descriptor.Ne, "enabled")}, want: `config["Flag"] != "enabled"`},
		{
			name:  "eq_and_ne_same_value_is_false",
			conds: []descriptor.Condition{cfg("Flag", descriptor.Eq, "enabled"), cfg("Flag", descriptor.Ne, "enabled")},
			want:  "false",
		},
		{
			name:  "eq_a_and_eq_b_is_false",
			conds: []descriptor.Condition{env(descriptor.Eq, "Development"), env(descriptor.Eq, "Production")},
			want:  "false",
		},
		{
			name:  "case_insensitive_contradiction",
			conds: []descriptor.Condition{cfg("flag", descriptor.Eq, "ON"), cfg("FLAG", descriptor.Ne, "on")},
			want:  "false",
		},
		{
			name:  "case_insensitive_same_value_merges",
			conds: []descriptor.Condition{env(descriptor.Eq, "Production"), env(descriptor.Eq, "production")},
			want:  `environment == "Production"`,
		},
		{
			name:  "ne_implied_by_eq_dropped",
			conds: []descriptor.Condition{env(descriptor.Ne, "Test"), env(descriptor.Eq, "Production")},
			want:  `environment == "Production"`,
		},
		{
			name:  "two_ne_kept",
			conds: []descriptor.Condition{env(descriptor.Ne, "Test"), env(descriptor.Ne, "Staging"), env(descriptor.Ne, "test")},
			want:  `environment != "Test" && environment != "Staging"`,
		},
		{
			name:  "any_of_narrowed_by_ne",
			conds: []descriptor.Condition{env(descriptor.Eq, "Dev", "Staging", "Prod"), env(descriptor.Ne, "Prod")},
			want:  `(environment == "Dev" || environment == "Staging")`,
		},
		{
			name:  "any_of_intersected_to_one",
			conds: []descriptor.Condition{env(descriptor.Eq, "Dev", "Staging"), env(descriptor.Eq, "staging", "Prod")},
			want:  `environment == "Staging"`,
		},
		{
			name:  "any_of_outside_set_is_false",
			conds: []descriptor.Condition{env(descriptor.Eq, "Dev", "Staging"), env(descriptor.Eq, "Prod")},
			want:  "false",
		},
		{
			name:  "none_of_covers_any_of",
			conds: []descriptor.Condition{env(descriptor.Eq, "Dev", "Staging"), env(descriptor.Ne, "dev", "staging")},
			want:  "false",
		},
		{
			name: "different_subjects_keep_order",
			conds: []descriptor.Condition{
				cfg("Cache:Mode", descriptor.Eq, "redis"),
				env(descriptor.Ne, "Test"),
				cfg("Flag", descriptor.Eq, "enabled"),
			},
			want: `config["Cache:Mode"] == "redis" && environment != "Test" && config["Flag"] == "enabled"`,
		},
		{
			name:  "different_keys_do_not_conflict",
			conds: []descriptor.Condition{cfg("A", descriptor.Eq, "1"), cfg("B", descriptor.Ne, "1")},
			want:  `config["A"] == "1" && config["B"] != "1"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Compose(tt.conds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCompose_Malformed(t *testing.T) {
	t.Parallel()

	_, err := Compose([]descriptor.Condition{{Values: []string{"x"}}})
	assert.ErrorIs(t, err, descriptor.ErrNoSubject)

	_, err = Compose([]descriptor.Condition{cfg(" ", descriptor.Eq, "x")})
	assert.ErrorIs(t, err, descriptor.ErrNoKey)

	_, err = Compose([]descriptor.Condition{env(descriptor.Eq)})
	assert.ErrorIs(t, err, descriptor.ErrNoValues)
}

// The composed guard must agree with the naive conjunction on every input,
// and a False guard must mean no input satisfies the conjunction.
func TestCompose_EquivalentToConjunction(t *testing.T) {
	t.Parallel()

	envs := []string{"", "Dev", "dev", "Staging", "Prod", "Test"}
	flags := []string{"", "on", "ON", "off", "enabled"}

	sets := [][]descriptor.Condition{
		{env(descriptor.Eq, "Dev", "Prod"), env(descriptor.Ne, "prod")},
		{env(descriptor.Ne, "Test"), cfg("Flag", descriptor.Eq, "on")},
		{cfg("Flag", descriptor.Eq, "on"), cfg("flag", descriptor.Ne, "ON")},
		{cfg("Flag", descriptor.Ne, "off"), cfg("Flag", descriptor.Ne, "enabled"), env(descriptor.Eq, "Staging")},
		{env(descriptor.Eq, "Dev"), env(descriptor.Eq, "Dev", "Staging"), cfg("Flag", descriptor.Eq, "enabled", "on")},
	}

	naive := func(conds []descriptor.Condition, in Inputs) bool {
		for _, c := range conds {
			got := in.Environment
			if c.Subject == descriptor.Configuration {
				got = in.Config(c.Key)
			}
			match := false
			for _, v := range c.Values {
				if strings.EqualFold(got, v) {
					match = true
				}
			}
			if c.Op == descriptor.Ne {
				match = !match
			}
			if !match {
				return false
			}
		}
		return true
	}

	for i, conds := range sets {
		g, err := Compose(conds)
		require.NoError(t, err)
		anyTrue := false
		for _, e := range envs {
			for _, f := range flags {
				f := f
				in := Inputs{Environment: e, Config: func(string) string { return f }}
				want := naive(conds, in)
				anyTrue = anyTrue || want
				assert.Equal(t, want, Eval(g, in), "set %d env=%q flag=%q guard=%s", i, e, f, g)
			}
		}
		assert.Equal(t, !anyTrue, IsFalse(g), "set %d guard=%s", i, g)
	}
}

func TestEval_Basics(t *testing.T) {
	t.Parallel()

	assert.True(t, Eval(nil, Inputs{}))
	assert.True(t, Eval(True{}, Inputs{}))
	assert.False(t, Eval(False{}, Inputs{}))
	assert.True(t, IsTrue(nil))
	assert.False(t, IsTrue(False{}))

	a := Atom{Subject: Subject{Kind: descriptor.Configuration, Key: "K"}, Op: descriptor.Eq, Value: "v"}
	assert.False(t, Eval(a, Inputs{}), "nil config reads as empty")
	assert.True(t, Eval(a, Inputs{Config: func(k string) string {
		if k == "K" {
			return "V"
		}
		return ""
	}}))
}
