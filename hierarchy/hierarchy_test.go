package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/diag"
	"github.com/sghaida/wiregen/typeexpr"
)

func services(t *testing.T, ds ...descriptor.Descriptor) []*descriptor.Service {
	t.Helper()
	out := make([]*descriptor.Service, len(ds))
	for i, d := range ds {
		s, err := descriptor.Normalize(i, d)
		require.NoError(t, err)
		out[i] = s
	}
	return out
}

func paramNames(ps []Param) []string {
	out := []string{}
	for _, p := range ps {
		out = append(out, p.Param)
	}
	return out
}

func paramTypes(ps []Param) []string {
	out := []string{}
	for _, p := range ps {
		out = append(out, p.Type)
	}
	return out
}

func TestResolve_ThreeLevelChain(t *testing.T) {
	t.Parallel()

	svcs := services(t,
		descriptor.Descriptor{Identity: "Leaf", Base: "Middle", Dependencies: []descriptor.Dependency{{Type: "Mailer"}}},
		descriptor.Descriptor{Identity: "Middle", Base: "Root", Dependencies: []descriptor.Dependency{{Type: "Cache"}}},
		descriptor.Descriptor{Identity: "Root", Dependencies: []descriptor.Dependency{{Type: "Logger"}}},
	)
	r, diags := Resolve(NewArena(svcs), svcs[0])
	assert.Empty(t, diags)

	require.Len(t, r.Levels, 3)
	assert.Equal(t, "Root", r.Levels[0].Type.String())
	assert.Equal(t, "Middle", r.Base().Type.String())
	assert.Equal(t, "Leaf", r.Leaf().Type.String())

	assert.Equal(t, []string{"logger", "cache", "mailer"}, paramNames(r.Params()))
	assert.Equal(t, []string{"logger", "cache"}, paramNames(r.Forwarded()))
	assert.Equal(t, []string{"mailer"}, paramNames(r.Own()))
	assert.Nil(t, r.ExternalBase)
	assert.Nil(t, r.Cycle)
}

func TestResolve_ConfigAfterServicesPerLevel(t *testing.T) {
	t.Parallel()

	svcs := services(t,
		descriptor.Descriptor{Identity: "Child", Base: "Parent", Dependencies: []descriptor.Dependency{
			{Kind: descriptor.Config, Type: "int", Path: "Child:Limit"},
			{Type: "Clock"},
		}},
		descriptor.Descriptor{Identity: "Parent", Dependencies: []descriptor.Dependency{
			{Kind: descriptor.Config, Type: "ParentOptions", Path: "Parent", Binding: descriptor.Section},
			{Type: "Logger"},
		}},
	)
	r, _ := Resolve(NewArena(svcs), svcs[0])
	assert.Equal(t, []string{"logger", "parentOptions", "clock", "limit"}, paramNames(r.Params()))
	assert.Equal(t, []string{"logger", "parentOptions"}, paramNames(r.Forwarded()))
}

func TestResolve_GenericSubstitution(t *testing.T) {
	t.Parallel()

	svcs := services(t,
		descriptor.Descriptor{Identity: "UserRepository", Base: "CachedRepository[User]"},
		descriptor.Descriptor{
			Identity: "CachedRepository[E]", TypeParams: []string{"E"}, Base: "Repository[E, int]",
			Dependencies: []descriptor.Dependency{{Type: "Cache[E]"}},
		},
		descriptor.Descriptor{
			Identity: "Repository[T, ID]", TypeParams: []string{"T", "ID"},
			Dependencies: []descriptor.Dependency{{Type: "Store[T]"}, {Type: "map[ID]*T", Name: "index"}},
		},
	)
	a := NewArena(svcs)

	r, diags := Resolve(a, svcs[0])
	assert.Empty(t, diags)
	require.Len(t, r.Levels, 3)
	assert.Equal(t, "Repository[User, int]", r.Levels[0].Type.String())
	assert.Equal(t, "CachedRepository[User]", r.Base().Type.String())
	assert.Equal(t, []string{"Store[User]", "map[int]*User", "Cache[User]"}, paramTypes(r.Params()))

	// open at the root: parameters stay open
	r, _ = Resolve(a, svcs[1])
	assert.Equal(t, "Repository[E, int]", r.Base().Type.String())
	assert.Equal(t, []string{"Store[E]", "map[int]*E", "Cache[E]"}, paramTypes(r.Params()))

	// the base itself is untouched by the walks above
	assert.Equal(t, "Store[T]", svcs[2].Deps[0].Type)
}

func TestResolve_ExternalBase(t *testing.T) {
	t.Parallel()

	svcs := services(t,
		descriptor.Descriptor{Identity: "Leaf", Base: "Middle", Dependencies: []descriptor.Dependency{{Type: "A"}}},
		descriptor.Descriptor{Identity: "Middle", Base: "framework.Controller", Dependencies: []descriptor.Dependency{{Type: "B"}}},
		descriptor.Descriptor{Identity: "Vendor", External: true},
		descriptor.Descriptor{Identity: "Adapter", Base: "Vendor"},
	)
	a := NewArena(svcs)

	r, diags := Resolve(a, svcs[0])
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ExternalBase, diags[0].Code)
	assert.Equal(t, diag.Info, diags[0].Severity)
	assert.Equal(t, "framework.Controller", r.ExternalBase.String())
	assert.Equal(t, []string{"b", "a"}, paramNames(r.Params()))

	r, diags = Resolve(a, svcs[3])
	require.Len(t, diags, 1)
	assert.Len(t, r.Levels, 1, "external descriptors are not walked into")
}

func TestResolve_InheritanceCycle(t *testing.T) {
	t.Parallel()

	svcs := services(t,
		descriptor.Descriptor{Identity: "A", Base: "B", Dependencies: []descriptor.Dependency{{Type: "X"}}},
		descriptor.Descriptor{Identity: "B", Base: "A", Dependencies: []descriptor.Dependency{{Type: "Y"}}},
	)
	r, diags := Resolve(NewArena(svcs), svcs[0])
	require.Len(t, diags, 1)
	assert.Equal(t, diag.InheritanceCycle, diags[0].Code)
	assert.Equal(t, []string{"A", "B", "A"}, r.Cycle)
	assert.Len(t, r.Levels, 1)
	assert.Nil(t, r.Base())
	assert.Equal(t, []string{"x"}, paramNames(r.Params()))
}

func TestResolve_RepeatedNamesAreNotMerged(t *testing.T) {
	t.Parallel()

	svcs := services(t,
		descriptor.Descriptor{Identity: "Derived", Base: "Base", Dependencies: []descriptor.Dependency{{Type: "Repo"}, {Type: "Repo", Name: "repo2"}}},
		descriptor.Descriptor{Identity: "Base", Dependencies: []descriptor.Dependency{{Type: "Repo"}}},
	)
	r, _ := Resolve(NewArena(svcs), svcs[0])
	ps := r.Params()
	assert.Equal(t, []string{"repo", "repo2", "repo22"}, paramNames(ps))
	assert.Equal(t, "repo", ps[1].Name, "field names stay as declared")
	assert.Equal(t, "repo2", ps[2].Name)
}

func TestArena_LookupByArity(t *testing.T) {
	t.Parallel()

	svcs := services(t,
		descriptor.Descriptor{Identity: "Box"},
		descriptor.Descriptor{Identity: "Box[T]", TypeParams: []string{"T"}},
	)
	a := NewArena(append(svcs, nil))

	s, b, ok := a.Lookup(svcs[1].Type.Substitute(typeexpr.Bindings{"T": svcs[0].Type}))
	require.True(t, ok)
	assert.Equal(t, "Box[T]", s.ID())
	assert.Equal(t, "Box", b["T"].String())

	s, _, ok = a.Lookup(svcs[0].Type)
	require.True(t, ok)
	assert.Equal(t, "Box", s.ID())
}
