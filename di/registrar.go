package di

import (
	"reflect"
	"strconv"
)

// Lifetime is how long a registered instance lives.
type Lifetime int

const (
	// Singleton instances live as long as the container.
	Singleton Lifetime = iota
	// Scoped instances live as long as one scope (typically one request).
	Scoped
	// Transient instances are constructed on every resolution.
	Transient
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	case Transient:
		return "Transient"
	default:
		return "Lifetime(" + strconv.Itoa(int(l)) + ")"
	}
}

// Factory constructs one service. It resolves its own dependencies through sp.
type Factory func(sp Resolver) (any, error)

// Registrar receives the registrations of a generated routine.
//
// Expected usage, as generated:
//
//	func RegisterServices(r di.Registrar, env di.Environment) {
//		if !r.Mark("app.RegisterServices") {
//			return
//		}
//		r.Register(di.Scoped, di.TypeOf[*OrderService](), func(sp di.Resolver) (any, error) {
//			return NewOrderService(di.Get[Timer](sp)), nil
//		})
//	}
type Registrar interface {
	// Register adds a factory for service with the given lifetime.
	Register(l Lifetime, service reflect.Type, f Factory)
	// RegisterOpen adds an open-generic mapping. Both sides are type names
	// with their parameters left open, e.g. "Store[T]" and "*MemoryStore[T]".
	RegisterOpen(l Lifetime, service, implementation string)
	// RedirectOpen adds an open-generic view that resolves through the open
	// registration of target, so every view shares target's instance within
	// its lifetime.
	RedirectOpen(l Lifetime, service, target string)
	// Mark records that a registration routine ran. It returns false when key
	// was already marked, so a routine can run at most once per registrar.
	Mark(key string) bool
}

// Resolver resolves registered services while a factory runs.
type Resolver interface {
	// Resolve returns the first registration for t.
	Resolve(t reflect.Type) (any, error)
	// ResolveAll returns every registration for t, in registration order.
	ResolveAll(t reflect.Type) ([]any, error)
	// Config is the configuration accessor of the container.
	Config() Config
}

// Environment is what a generated routine reads its guards from.
type Environment interface {
	// Name is the active environment name, e.g. "Production".
	Name() string
	Config() Config
}

// StaticEnvironment is a fixed Environment.
type StaticEnvironment struct {
	EnvName string
	Cfg     Config
}

// NewEnvironment returns an Environment with the given name and configuration.
// A nil cfg reads as empty.
func NewEnvironment(name string, cfg Config) StaticEnvironment {
	if cfg == nil {
		cfg = NewMapConfig()
	}
	return StaticEnvironment{EnvName: name, Cfg: cfg}
}

// Name implements Environment.
func (e StaticEnvironment) Name() string { return e.EnvName }

// Config implements Environment.
func (e StaticEnvironment) Config() Config { return e.Cfg }

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
