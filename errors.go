package mfekernel

import (
	"errors"
	"fmt"
	"strings"
)

// Container errors
var (
	// Registration errors
	ErrServiceAlreadyRegistered = errors.New("service already registered")
	ErrInvalidServiceProvider   = errors.New("invalid service provider")
	ErrContainerDisposed        = errors.New("container disposed")

	// Resolution errors
	ErrServiceNotFound     = errors.New("service not found")
	ErrCircularDependency  = errors.New("circular dependency detected")
	ErrServiceCreateFailed = errors.New("service creation failed")
	ErrServiceNil          = errors.New("service is nil")
	ErrServiceWrongType    = errors.New("service doesn't satisfy required type")

	// Disposal errors
	ErrServiceDisposeFailed = errors.New("service dispose failed")
)

// CircularDependencyError carries the resolution path that closed the cycle.
// It matches ErrCircularDependency with errors.Is.
type CircularDependencyError struct {
	// Path lists service names from the first occurrence of the repeated
	// name to its repetition, e.g. [a b a].
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("%s: cycle: %s", ErrCircularDependency, strings.Join(e.Path, " -> "))
}

// Is reports whether target is ErrCircularDependency.
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// IsErrCircularDependency checks if an error is a circular dependency error.
func IsErrCircularDependency(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}

func newCircularDependencyError(stack []string, name string) *CircularDependencyError {
	start := 0
	for i, n := range stack {
		if n == name {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	path = append(path, stack[start:]...)
	path = append(path, name)
	return &CircularDependencyError{Path: path}
}
