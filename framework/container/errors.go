package container

import (
	"errors"
	"fmt"
)

var (
	// ErrBindingResolution matches every *BindingResolutionError.
	ErrBindingResolution = errors.New("container: binding resolution failed")

	ErrNotBound           = errors.New("no binding registered")
	ErrAliasCycle         = errors.New("alias cycle")
	ErrCircularDependency = errors.New("circular dependency")
	ErrNotInstantiable    = errors.New("target is not instantiable")
	ErrTypeMismatch       = errors.New("resolved value has unexpected type")
)

// BindingResolutionError is returned when the container cannot produce a value.
// It is fatal to the current Make call only.
type BindingResolutionError struct {
	Abstract string
	Err      error
}

func (e *BindingResolutionError) Error() string {
	return fmt.Sprintf("container: cannot resolve [%s]: %v", e.Abstract, e.Err)
}

func (e *BindingResolutionError) Unwrap() []error {
	return []error{ErrBindingResolution, e.Err}
}
