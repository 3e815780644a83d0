package nn

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching with errors.Is.
var (
	// ErrConfiguration marks an invalid layer configuration.
	ErrConfiguration = errors.New("nn: invalid configuration")

	// ErrPrecondition marks inputs that violate a convolution backend's
	// documented constraints.
	ErrPrecondition = errors.New("nn: backend precondition violated")
)

// ConfigurationError reports an invalid layer configuration: mismatched
// shapes, zero-area pooling, unknown names or an unsupported combination
// of border mode and backend.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("nn: invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("nn: invalid configuration: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PreconditionViolation reports the specific constraint of a convolution
// backend that the input or filters do not satisfy. It is returned before
// any numeric work is attempted.
type PreconditionViolation struct {
	Backend    BackendKind
	Constraint string
	Detail     string
}

func (e *PreconditionViolation) Error() string {
	return fmt.Sprintf("nn: %s backend requires %s: %s", e.Backend, e.Constraint, e.Detail)
}

// Is reports whether target is ErrPrecondition or ErrConfiguration: a
// backend constraint is a configuration the chosen backend cannot run.
func (e *PreconditionViolation) Is(target error) bool {
	return target == ErrPrecondition || target == ErrConfiguration
}
