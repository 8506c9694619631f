// Package synth runs one synthesis pass over a descriptor list.
//
// A pass validates every descriptor, then resolves each one independently
// (base chain and guard) in parallel. Once every descriptor is resolved the
// pass builds the dependency graph, validates it and plans the registrations.
// Results are collected by declaration index, so the output does not depend
// on scheduling.
//
// A pass shares nothing with any other pass and may run concurrently with
// others on disjoint inputs.
package synth

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sghaida/wiregen/condition"
	"github.com/sghaida/wiregen/descriptor"
	"github.com/sghaida/wiregen/diag"
	"github.com/sghaida/wiregen/graph"
	"github.com/sghaida/wiregen/hierarchy"
	"github.com/sghaida/wiregen/plan"
	"github.com/sghaida/wiregen/validator"
)

// Options tunes a pass. The zero value is usable.
type Options struct {
	// StrictSingle notes single requests with several unconditional providers.
	StrictSingle bool
	// Parallelism bounds per-descriptor resolution. Zero means GOMAXPROCS.
	Parallelism int
	// Logger receives debug output. Nil means no logging.
	Logger *zap.Logger
}

// Unit is one successfully resolved descriptor.
type Unit = graph.Input

// Result is everything a pass produced.
type Result struct {
	// Fingerprint is the SHA-256 of the canonical descriptor JSON.
	Fingerprint string
	// Units holds the valid descriptors in declaration order.
	Units       []Unit
	Graph       *graph.Graph
	Report      validator.Report
	Plan        *plan.Plan
	Diagnostics diag.List
}

// Unit returns the unit with the given identity.
func (r *Result) Unit(id string) (Unit, bool) {
	for _, u := range r.Units {
		if u.Service.ID() == id {
			return u, true
		}
	}
	return Unit{}, false
}

type slot struct {
	unit  Unit
	diags diag.List
	err   error
}

// Synthesize runs a pass. The only error it returns is the context's, in
// which case the pass is discarded; every other finding is a diagnostic.
func Synthesize(ctx context.Context, ds []descriptor.Descriptor, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("synthesis pass started", zap.Int("descriptors", len(ds)))

	res := &Result{Fingerprint: descriptor.Fingerprint(ds)}

	services := make([]*descriptor.Service, len(ds))
	seen := map[string]int{}
	for i, d := range ds {
		s, err := descriptor.Normalize(i, d)
		if err != nil {
			res.malformed(log, d.Identity, err)
			continue
		}
		if first, dup := seen[s.ID()]; dup {
			res.malformed(log, s.ID(), descriptor.Duplicate(i, s.ID(), first))
			continue
		}
		seen[s.ID()] = i
		services[i] = s
	}

	arena := hierarchy.NewArena(services)
	slots := make([]slot, len(services))

	n := opts.Parallelism
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	for i, s := range services {
		if s == nil {
			continue
		}
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = resolve(arena, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, sl := range slots {
		if services[i] == nil {
			continue
		}
		res.Diagnostics.Append(sl.diags)
		if sl.err != nil {
			res.malformed(log, services[i].ID(), sl.err)
			continue
		}
		res.Units = append(res.Units, sl.unit)
	}

	var diags diag.List
	res.Graph, diags = graph.Build(res.Units, graph.Options{StrictSingle: opts.StrictSingle})
	res.Diagnostics.Append(diags)

	res.Report, diags = validator.Validate(res.Graph)
	res.Diagnostics.Append(diags)

	res.Plan, diags = plan.Synthesize(res.Units)
	res.Diagnostics.Append(diags)

	for _, u := range res.Units {
		if u.NeverActive() {
			log.Debug("descriptor never active", zap.String("type", u.Service.ID()))
		}
	}

	res.Diagnostics.Sort()
	log.Debug("synthesis pass finished",
		zap.Int("units", len(res.Units)),
		zap.Int("entries", len(res.Plan.Entries)),
		zap.Int("warnings", res.Diagnostics.Count(diag.Warning)),
		zap.Int("errors", res.Diagnostics.Count(diag.Error)),
	)
	return res, nil
}

func resolve(arena *hierarchy.Arena, s *descriptor.Service) (sl slot) {
	defer func() {
		if r := recover(); r != nil {
			sl = slot{err: fmt.Errorf("synth: resolving %s: %v", s.ID(), r)}
		}
	}()

	r, diags := hierarchy.Resolve(arena, s)
	guard, err := condition.Compose(s.Conditions)
	if err != nil {
		return slot{err: err}
	}
	return slot{unit: Unit{Service: s, Resolved: r, Guard: guard}, diags: diags}
}

func (r *Result) malformed(log *zap.Logger, id string, err error) {
	log.Debug("descriptor dropped", zap.String("type", id), zap.Error(err))
	if strings.TrimSpace(id) == "" {
		r.Diagnostics.Error(diag.Malformed, err.Error())
		return
	}
	r.Diagnostics.Error(diag.Malformed, err.Error(), id)
}

// Explain returns a human-friendly summary of the plan.
func (r *Result) Explain() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "descriptors: %s\n", r.Fingerprint)
	for _, u := range r.Units {
		s := u.Service
		switch {
		case s.External:
			fmt.Fprintf(&sb, "%s: external\n", s.ID())
			continue
		case u.NeverActive():
			fmt.Fprintf(&sb, "%s: never active\n", s.ID())
			continue
		}
		fmt.Fprintf(&sb, "%s: %s", s.ID(), s.EffectiveLifetime().Title())
		if !condition.IsTrue(u.Guard) {
			fmt.Fprintf(&sb, " when %s", u.Guard)
		}
		sb.WriteString("\n")
		for _, b := range r.Graph.Dependencies(s.ID()) {
			fmt.Fprintf(&sb, "  - %s %s => %s\n", b.Param.Param, b.Type, describe(b))
		}
		for _, e := range r.Plan.For(s.ID()) {
			fmt.Fprintf(&sb, "  + %s %s\n", e.Kind, e.Service)
		}
	}
	for _, c := range r.Report.Cycles {
		fmt.Fprintf(&sb, "cycle: %s -> %s\n", strings.Join(c, " -> "), c[0])
	}
	return sb.String()
}

func describe(b graph.Binding) string {
	switch {
	case b.Kind == descriptor.Config:
		path := b.Path
		if path == "" {
			path = "<root>"
		}
		return string(b.Binding) + " " + path
	case b.External:
		return "external"
	case b.Kind == descriptor.Collection:
		ids := make([]string, len(b.Targets))
		for i, t := range b.Targets {
			ids[i] = t.ID()
		}
		return "[" + strings.Join(ids, ", ") + "]"
	case len(b.Targets) == 0:
		return "unbound"
	default:
		return b.Targets[0].ID()
	}
}
