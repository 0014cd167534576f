/*
validate.go - Input validation for players, transfers, and value points

PURPOSE:
  Pure structural/semantic validation of candidate inputs. Returns a
  normalized, typed value or a ValidationError listing every violated
  rule. No side effects; existence checks against the store happen in
  the append engine, not here.

RULE SPLIT:
  Required-ness and range rules are ValidationError. Rules about the
  relationship between an event and the chain (same club, fee/loan-end
  exclusion, loan-end ordering) are ConsistencyError and live with the
  append engine - they describe events, not fields.
*/
package transfer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUTS
// =============================================================================

// PlayerInput is a candidate player registration. ClubID/CurrentValue
// optionally seed an initial affiliation event and value point.
type PlayerInput struct {
	FirstName    string
	LastName     string
	YearOfBirth  int
	Position     Position
	ClubID       *uuid.UUID
	CurrentValue *decimal.Decimal
	// Date of the initial affiliation/value, defaulting to today.
	Date *Date
}

// TransferInput is a candidate history event. The source club is never
// part of the input - it is resolved from the chain.
type TransferInput struct {
	Date        Date
	Type        EventType
	ToClubID    *uuid.UUID
	MarketValue decimal.Decimal
	Fee         *decimal.Decimal
	LoanEnd     *Date
}

// ValueInput is a candidate standalone value sample.
type ValueInput struct {
	Date  Date
	Value decimal.Decimal
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidatePlayer checks a registration input, collecting every violation.
func ValidatePlayer(in PlayerInput) error {
	verr := &ValidationError{}

	if strings.TrimSpace(in.FirstName) == "" {
		verr.add("firstName", "first name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		verr.add("lastName", "last name is required")
	}
	if in.YearOfBirth < 1900 {
		verr.add("yearOfBirth", "year of birth must be 1900 or later")
	} else if in.YearOfBirth > time.Now().UTC().Year() {
		verr.add("yearOfBirth", "year of birth cannot be in the future")
	}
	if !in.Position.Valid() {
		verr.add("position", "position must be one of GK, DF, MF, CF")
	}
	if in.CurrentValue != nil && in.CurrentValue.IsNegative() {
		verr.add("currentValue", "current value must be 0 or higher")
	}

	return verr.errOrNil()
}

// ValidateTransfer checks the field-level rules of a candidate event.
func ValidateTransfer(in TransferInput) error {
	verr := &ValidationError{}

	if in.Date.IsZero() {
		verr.add("date", "date is required")
	}
	if !in.Type.Valid() {
		verr.add("type", "type must be TRANSFER or LOAN")
	}
	if in.MarketValue.IsNegative() {
		verr.add("marketValue", "market value must be 0 or higher")
	}
	if in.Fee != nil && in.Fee.IsNegative() {
		verr.add("fee", "fee must be 0 or higher")
	}

	switch in.Type {
	case EventLoan:
		if in.LoanEnd == nil {
			verr.add("loanEnd", "loan end date is required for a loan")
		}
		if in.ToClubID == nil {
			verr.add("clubId", "a loan requires a destination club")
		}
		if in.Fee != nil {
			verr.add("fee", "a loan cannot carry a fee")
		}
	case EventTransfer:
		if in.LoanEnd != nil {
			verr.add("loanEnd", "loan end date is only valid for a loan")
		}
	}

	return verr.errOrNil()
}

// ValidateValue checks a standalone value sample.
func ValidateValue(in ValueInput) error {
	verr := &ValidationError{}

	if in.Date.IsZero() {
		verr.add("date", "date is required")
	}
	if in.Value.IsNegative() {
		verr.add("value", "value must be 0 or higher")
	}

	return verr.errOrNil()
}

// checkEventShape enforces the mutual-exclusion invariants on a
// candidate event after field validation passed. These violations are
// consistency errors: the fields are individually fine but the event
// mixes the transfer and loan shapes.
func checkEventShape(in TransferInput) error {
	if in.Fee != nil && in.LoanEnd != nil {
		return newConsistencyError(ConsistencyLoanFee,
			"an event cannot carry both a fee and a loan end date")
	}
	if in.Type == EventLoan && in.LoanEnd != nil && in.LoanEnd.Before(in.Date) {
		return newConsistencyError(ConsistencyLoanEndBeforeDate,
			"loan end %s precedes event date %s", in.LoanEnd, in.Date)
	}
	return nil
}
