package di

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrFactoryPanic is returned when a factory panics while constructing a service.
	ErrFactoryPanic = errors.New("di: panic during construction")

	// ErrNilFactory is returned when a registration carries no factory.
	ErrNilFactory = errors.New("di: nil factory")

	// ErrConfigShape is returned by Bind when one key holds both a value and a section.
	ErrConfigShape = errors.New("di: config key holds both a value and a section")
)

// NotRegisteredError is returned when nothing is registered for a type.
type NotRegisteredError struct{ Type reflect.Type }

// Error implements the error interface.
func (e NotRegisteredError) Error() string {
	// Example: di: *app.OrderService not registered
	return "di: " + typeName(e.Type) + " not registered"
}

// WrongTypeError is returned when a resolved value does not have the requested type.
type WrongTypeError struct {
	Want reflect.Type
	Got  any
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	return "di: want " + typeName(e.Want) + ", got " + typeName(reflect.TypeOf(e.Got))
}

// CircularError is returned when resolving a type requires itself.
type CircularError struct{ Chain []reflect.Type }

// Error implements the error interface.
func (e CircularError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, t := range e.Chain {
		parts[i] = typeName(t)
	}
	return "di: circular dependency " + strings.Join(parts, " -> ")
}

// BindError is returned when configuration cannot be bound into a value.
type BindError struct {
	Path  string
	cause error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return "di: bind config " + strconv.Quote(e.Path) + ": " + e.cause.Error()
}

// Unwrap returns the underlying decode error.
func (e *BindError) Unwrap() error { return e.cause }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
