package di

import (
	"sync"
)

// Get resolves T inside a factory. It panics with the resolution error; the
// container running the factory turns the panic back into an error.
func Get[T any](sp Resolver) T {
	v, err := sp.Resolve(TypeOf[T]())
	if err != nil {
		panic(err)
	}
	t, ok := v.(T)
	if !ok {
		panic(WrongTypeError{Want: TypeOf[T](), Got: v})
	}
	return t
}

// All resolves every registration of T, in registration order. No
// registration yields an empty slice.
func All[T any](sp Resolver) []T {
	vs, err := sp.ResolveAll(TypeOf[T]())
	if err != nil {
		panic(err)
	}
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		t, ok := v.(T)
		if !ok {
			panic(WrongTypeError{Want: TypeOf[T](), Got: v})
		}
		out = append(out, t)
	}
	return out
}

// Value binds the single configuration key at path.
func Value[T any](sp Resolver, path string) T {
	return bind[T](sp.Config(), path)
}

// Section binds the configuration section at path into a T.
// An empty path binds the whole configuration.
func Section[T any](sp Resolver, path string) T {
	return bind[T](sp.Config(), path)
}

// MonitorOf returns a live view of the section at path.
func MonitorOf[T any](sp Resolver, path string) *Monitor[T] {
	return &Monitor[T]{cfg: sp.Config(), path: path}
}

// SnapshotOf binds the section at path once, when the consumer is constructed.
func SnapshotOf[T any](sp Resolver, path string) *Snapshot[T] {
	return &Snapshot[T]{value: bind[T](sp.Config(), path)}
}

// Monitor re-reads its section on every call to Current, so changes to the
// underlying configuration are observed.
type Monitor[T any] struct {
	cfg  Config
	path string

	mu   sync.Mutex
	last T
}

// Current binds the section as it is now. When binding fails the last good
// value is returned with the error.
func (m *Monitor[T]) Current() (T, error) {
	var v T
	if err := m.cfg.Bind(m.path, &v); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.last, err
	}
	m.mu.Lock()
	m.last = v
	m.mu.Unlock()
	return v, nil
}

// Snapshot holds the section as it was when the consumer was constructed.
type Snapshot[T any] struct {
	value T
}

// Value returns the bound section.
func (s *Snapshot[T]) Value() T { return s.value }

func bind[T any](cfg Config, path string) T {
	var v T
	if err := cfg.Bind(path, &v); err != nil {
		panic(err)
	}
	return v
}
