/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As and never need string checks.

ERROR CATEGORIES:
  1. Insufficient balance - requested days exceed what the LIFO breakdown
     can supply; the enclosing transaction rolls back, nothing is applied
  2. State conflict - an operation's required source status does not match
     the request's current status; no mutation performed
  3. Not found - referenced employee/request/grant period does not exist
  4. Validation - malformed input (negative day counts, bad hire date,
     projected balance over the accumulation cap); rejected before any lock

  None of these are fatal. The only fatal condition is loss of the
  underlying store, which surfaces as a plain storage error from the
  TxStore and aborts the current transaction with no partial effect.

USAGE:
  var ibe *leave.InsufficientBalanceError
  if errors.As(err, &ibe) {
      render(ibe.Requested, ibe.Available)
  }
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a deduction cannot be fully
	// satisfied by the employee's usable grant periods.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrStateConflict is returned when a lifecycle transition is attempted
	// from the wrong source status.
	ErrStateConflict = errors.New("request state conflict")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRequestNotFound is returned when a referenced request doesn't exist.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrGrantNotFound is returned when a referenced grant period doesn't exist.
	ErrGrantNotFound = errors.New("grant record not found")

	// ErrValidation is returned for malformed input, before any lock is taken.
	ErrValidation = errors.New("validation failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a balance shortage with enough detail for
// the caller to render an actionable message.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	RequestID  RequestID
	Requested  Days
	Available  Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: requested %s days, available %s days",
		e.EmployeeID, e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// StateConflictError reports a lifecycle transition attempted from the wrong
// source status.
type StateConflictError struct {
	RequestID RequestID
	Required  RequestStatus
	Current   RequestStatus
	Operation string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s request %s: requires status %q, current status %q",
		e.Operation, e.RequestID, e.Required, e.Current)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrGrantNotFound)
}

// IsClientError returns true if the error is due to invalid client input or
// a request the engine legitimately refused. These map to 4xx at the API.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrValidation) ||
		IsNotFound(err)
}
