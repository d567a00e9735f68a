package domain

import "fmt"

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrUpstreamStatus is returned when the dashboard API answers with a
// non-success status. Client errors (4xx) are never retried.
type ErrUpstreamStatus struct {
	Service    string
	StatusCode int
}

func (e *ErrUpstreamStatus) Error() string {
	return fmt.Sprintf("%s API returned status %d", e.Service, e.StatusCode)
}

// Retryable reports whether another attempt could succeed.
func (e *ErrUpstreamStatus) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnavailable indicates an optional feature is not configured.
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured", e.Feature)
}
