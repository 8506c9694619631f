package di

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Registration is one recorded Register call.
type Registration struct {
	Lifetime Lifetime
	Service  reflect.Type
	Factory  Factory
}

// OpenRegistration is one recorded RegisterOpen or RedirectOpen call.
type OpenRegistration struct {
	Lifetime       Lifetime
	Service        string
	Implementation string
	// Redirect is set for RedirectOpen: Implementation names the open
	// registration the view resolves through.
	Redirect bool
}

// Recorder is an in-memory Registrar. It keeps every call in order and can
// resolve what was registered, which is enough to exercise generated routines
// in tests.
type Recorder struct {
	mu         sync.Mutex
	regs       []Registration
	open       []OpenRegistration
	marks      map[string]bool
	singletons map[int]any
}

func NewRecorder() *Recorder {
	return &Recorder{marks: map[string]bool{}, singletons: map[int]any{}}
}

// Register implements Registrar.
func (r *Recorder) Register(l Lifetime, service reflect.Type, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, Registration{Lifetime: l, Service: service, Factory: f})
}

// RegisterOpen implements Registrar.
func (r *Recorder) RegisterOpen(l Lifetime, service, implementation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = append(r.open, OpenRegistration{Lifetime: l, Service: service, Implementation: implementation})
}

// RedirectOpen implements Registrar.
func (r *Recorder) RedirectOpen(l Lifetime, service, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = append(r.open, OpenRegistration{Lifetime: l, Service: service, Implementation: target, Redirect: true})
}

// Mark implements Registrar.
func (r *Recorder) Mark(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.marks[key] {
		return false
	}
	r.marks[key] = true
	return true
}

// Registrations returns a copy of the recorded Register calls.
func (r *Recorder) Registrations() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Registration(nil), r.regs...)
}

// Open returns a copy of the recorded open-generic calls, in call order.
func (r *Recorder) Open() []OpenRegistration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OpenRegistration(nil), r.open...)
}

// NewScope starts a resolution scope. Singletons are shared by every scope of
// the recorder; scoped instances by one scope only.
func (r *Recorder) NewScope(cfg Config) *Scope {
	if cfg == nil {
		cfg = NewMapConfig()
	}
	return &Scope{rec: r, cfg: cfg, cache: map[int]any{}}
}

// Scope resolves registrations of a Recorder. It is not safe for concurrent use.
type Scope struct {
	rec       *Recorder
	cfg       Config
	cache     map[int]any
	resolving []reflect.Type
}

// Config implements Resolver.
func (s *Scope) Config() Config { return s.cfg }

// Resolve implements Resolver.
func (s *Scope) Resolve(t reflect.Type) (any, error) {
	for i, reg := range s.rec.Registrations() {
		if reg.Service == t {
			return s.instance(i, reg)
		}
	}
	return nil, NotRegisteredError{Type: t}
}

// ResolveAll implements Resolver.
func (s *Scope) ResolveAll(t reflect.Type) ([]any, error) {
	out := []any{}
	for i, reg := range s.rec.Registrations() {
		if reg.Service != t {
			continue
		}
		v, err := s.instance(i, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Scope) instance(i int, reg Registration) (any, error) {
	switch reg.Lifetime {
	case Singleton:
		s.rec.mu.Lock()
		v, ok := s.rec.singletons[i]
		s.rec.mu.Unlock()
		if ok {
			return v, nil
		}
	case Scoped:
		if v, ok := s.cache[i]; ok {
			return v, nil
		}
	}

	v, err := s.construct(reg)
	if err != nil {
		return nil, err
	}

	switch reg.Lifetime {
	case Singleton:
		s.rec.mu.Lock()
		s.rec.singletons[i] = v
		s.rec.mu.Unlock()
	case Scoped:
		s.cache[i] = v
	}
	return v, nil
}

// construct runs the factory and converts panics raised by Get and friends
// back into errors.
func (s *Scope) construct(reg Registration) (v any, err error) {
	if reg.Factory == nil {
		return nil, ErrNilFactory
	}
	for _, t := range s.resolving {
		if t == reg.Service {
			chain := append(append([]reflect.Type(nil), s.resolving...), reg.Service)
			return nil, CircularError{Chain: chain}
		}
	}
	s.resolving = append(s.resolving, reg.Service)
	defer func() {
		s.resolving = s.resolving[:len(s.resolving)-1]
		if rec := recover(); rec != nil {
			v = nil
			if e, ok := rec.(error); ok {
				err = fmt.Errorf("%w: %w", ErrFactoryPanic, e)
				return
			}
			err = fmt.Errorf("%w: %v", ErrFactoryPanic, rec)
		}
	}()
	return reg.Factory(s)
}

// IsNotRegistered reports whether err is, or wraps, a NotRegisteredError.
func IsNotRegistered(err error) bool {
	var nre NotRegisteredError
	return errors.As(err, &nre)
}
