/*
errors.go - Error types for the transfer engine

PURPOSE:
  All engine error types in one place. Callers distinguish four
  categories: validation (field-level, aggregated), not-found,
  consistency (chain/shape violations), and persistence.

ERROR CATEGORIES:
  1. ValidationError  - malformed input; lists every violated rule
  2. Not-found        - missing player or club reference
  3. ConsistencyError - the event would break the history chain or mix
                        loan and transfer shapes
  4. Persistence      - underlying store failure, wrapped

USAGE:
  Validation and consistency errors are recoverable by the caller and
  carry enough detail for per-field display:

    var verr *transfer.ValidationError
    if errors.As(err, &verr) { ... verr.Fields ... }

    if errors.Is(err, transfer.ErrPlayerNotFound) { ... }
*/
package transfer

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPlayerNotFound is returned when a referenced player doesn't exist.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrClubNotFound is returned when a referenced club doesn't exist.
	ErrClubNotFound = errors.New("club not found")

	// ErrClubNameTaken is returned when creating a club whose name is
	// already registered (names are unique, case-insensitive).
	ErrClubNameTaken = errors.New("club name already taken")
)

// =============================================================================
// VALIDATION ERROR - Aggregated field violations
// =============================================================================

// FieldError is a single violated rule, addressable to an input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violated rule, not just the first,
// so a caller can re-prompt with all problems at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// errOrNil collapses an empty collector to nil so callers can return it
// directly.
func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// =============================================================================
// CONSISTENCY ERROR - Chain and event-shape violations
// =============================================================================

type ConsistencyKind string

const (
	// ConsistencySameClub: the destination equals the resolved source.
	ConsistencySameClub ConsistencyKind = "same_club_transfer"

	// ConsistencyLoanFee: an event carries both a fee and a loan-end.
	ConsistencyLoanFee ConsistencyKind = "loan_fee_exclusive"

	// ConsistencyLoanEndBeforeDate: loan-end precedes the event date.
	ConsistencyLoanEndBeforeDate ConsistencyKind = "loan_end_before_event"

	// ConsistencyBrokenChain: a stored event's source doesn't match the
	// prior event's resolved club (only reachable when auditing stored
	// data, never from the append path).
	ConsistencyBrokenChain ConsistencyKind = "broken_chain"
)

// ConsistencyError reports an event that would violate a ledger
// invariant. These are caller-recoverable, like validation errors.
type ConsistencyError struct {
	Kind    ConsistencyKind
	Message string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newConsistencyError(kind ConsistencyKind, format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid input and
// the caller can fix and retry.
func IsClientError(err error) bool {
	var verr *ValidationError
	var cerr *ConsistencyError
	return errors.As(err, &verr) || errors.As(err, &cerr) ||
		errors.Is(err, ErrClubNameTaken)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrClubNotFound)
}
