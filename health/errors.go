package health

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates invalid construction input.
	ErrInvalidConfig = errors.New("health: invalid configuration")

	// ErrDuplicateDependency indicates a dependency name is already registered.
	ErrDuplicateDependency = errors.New("health: dependency already registered")

	// ErrUnknownDependency indicates a dependency name is not registered.
	ErrUnknownDependency = errors.New("health: dependency not registered")

	// ErrUnhealthy indicates a check finished with the dependency unhealthy.
	ErrUnhealthy = errors.New("health: dependency unhealthy")

	// ErrNotOK indicates the probe replied but its payload reported a failure.
	ErrNotOK = errors.New("health: probe reported not ok")

	// ErrAlreadyPolling indicates Poll was called while a session is active.
	ErrAlreadyPolling = errors.New("health: already polling")
)

// UnhealthyError is returned by checks that leave a dependency unhealthy.
// Summary is the dependency's state after the check.
type UnhealthyError struct {
	Summary Summary
	Cause   error
}

func (e *UnhealthyError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("health: dependency %q is unhealthy", e.Summary.Name)
	}
	return fmt.Sprintf("health: dependency %q is unhealthy: %v", e.Summary.Name, e.Cause)
}

// Unwrap exposes ErrUnhealthy and the probe failure to errors.Is.
func (e *UnhealthyError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUnhealthy}
	}
	return []error{ErrUnhealthy, e.Cause}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
