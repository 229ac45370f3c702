package domain

import "fmt"

// ValidationError reports malformed user input (filter, sort or template
// fields). It is recoverable: the caller surfaces it as a field-level
// message and the operation never reaches the executor.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// NewValidationError builds a field-level validation failure.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InvalidConfigurationError reports a configuration referencing a column the
// registry does not know. With a correctly generated UI this cannot happen,
// so it is treated as a hard failure and never retried.
type InvalidConfigurationError struct {
	Column ColumnID
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("report configuration references unknown column %q", e.Column)
}

// DataAccessError wraps a store failure during execution or persistence.
// Reports are user-initiated, so retrying is left to the user, not the
// engine.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed during %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}
