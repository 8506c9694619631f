package descriptor

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrEmptyIdentity is returned for a descriptor without a type name.
	ErrEmptyIdentity = errors.New("descriptor: empty identity")

	// ErrNoSubject is returned for a condition atom that compares nothing.
	ErrNoSubject = errors.New("descriptor: condition has no subject")

	// ErrNoKey is returned for a configuration condition without a key.
	ErrNoKey = errors.New("descriptor: configuration condition has no key")

	// ErrNoValues is returned for a condition without values.
	ErrNoValues = errors.New("descriptor: condition has no values")

	// ErrNoType is returned for a dependency without a requested type.
	ErrNoType = errors.New("descriptor: dependency has no type")

	// ErrDuplicate is returned for the second descriptor with an identity already declared.
	ErrDuplicate = errors.New("descriptor: duplicate identity")
)

// InvalidValueError reports an enumeration field holding an unknown value.
type InvalidValueError struct {
	Field string
	Value string
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return "descriptor: invalid " + e.Field + " " + strconv.Quote(e.Value)
}

// TypeParamsError reports a mismatch between declared type parameters and the identity.
type TypeParamsError struct {
	Identity string
	Params   []string
}

// Error implements the error interface.
func (e *TypeParamsError) Error() string {
	return fmt.Sprintf("descriptor: type parameters %v do not match identity %s", e.Params, e.Identity)
}

// InvalidNameError reports a dependency name that is not a Go identifier.
type InvalidNameError struct{ Name string }

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return "descriptor: dependency name " + strconv.Quote(e.Name) + " is not an identifier"
}

// MalformedError wraps the reason a single descriptor was rejected.
// The pass fails closed for that descriptor only.
type MalformedError struct {
	Index    int
	Identity string
	Where    string
	cause    error
}

func newMalformed(index int, identity, where string, cause error) error {
	return &MalformedError{Index: index, Identity: identity, Where: where, cause: cause}
}

// Duplicate reports the descriptor at index redeclaring an identity first seen at first.
func Duplicate(index int, identity string, first int) error {
	return newMalformed(index, identity, "identity, first declared at #"+strconv.Itoa(first), ErrDuplicate)
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	id := e.Identity
	if id == "" {
		id = "#" + strconv.Itoa(e.Index)
	}
	if e.Where == "" {
		return fmt.Sprintf("malformed descriptor %s: %v", id, e.cause)
	}
	return fmt.Sprintf("malformed descriptor %s (%s): %v", id, e.Where, e.cause)
}

// Unwrap returns the underlying cause.
func (e *MalformedError) Unwrap() error { return e.cause }
