package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the negotiation domain; callers match with errors.Is.
var (
	// ErrValidation marks malformed input data, rejected before processing.
	ErrValidation = errors.New("validation error")
	// ErrRetrievalUnavailable means the knowledge backend is unreachable or
	// timed out; generation degrades to an empty rationale.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrGenerationTimeout means the reasoning backend did not answer in time;
	// rationale falls back to the deterministic template.
	ErrGenerationTimeout = errors.New("generation timeout")
	// ErrInfeasibleTerm marks a single candidate term that violates policy bounds.
	ErrInfeasibleTerm = errors.New("infeasible term")
	// ErrNoFeasibleProposal means no candidate survived the feasibility checks.
	ErrNoFeasibleProposal = errors.New("no feasible proposal")
	// ErrConcurrencyConflict marks a second active session on the same obligation.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrInputRejected marks user input blocked by a guardrail.
	ErrInputRejected = errors.New("input rejected")
)

// ValidationError carries the offending field for API error payloads.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError constructs a field-level validation failure.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
