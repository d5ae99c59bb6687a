package services

import "fmt"

// Error taxonomy for the equivalence workflow. Controllers discriminate with
// errors.As and map to 400 / 409 / 502 / 500.

// ValidationError rejects a request before any write happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// ConflictError means the target slot already has an active adjustment, or a
// resource is busy while one is pending. Nothing was written.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// SolverError wraps a failed, timed-out or malformed solver exchange. Always
// retryable; any partially written state has been cleaned up.
type SolverError struct {
	Reason string
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver failed: %s: %v", e.Reason, e.Err)
	}
	return "solver failed: " + e.Reason
}

func (e *SolverError) Unwrap() error { return e.Err }

// PersistenceError means a store write failed after a successful solve. The
// solved quantities are discarded; a retry re-runs the whole workflow.
type PersistenceError struct {
	Step string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed at %s: %v", e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
