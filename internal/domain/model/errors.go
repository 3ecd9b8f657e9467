package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Category sentinels – match with errors.Is
// ---------------------------------------------------------------------------

var (
	// ErrNotFound covers missing loans, periods and endorsements.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput covers malformed requests: non-positive amounts,
	// duplicate schedules, unsupported loan types.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStateConflict is returned when the request is well formed but the
	// ledger is in a state that forbids it.
	ErrStateConflict = errors.New("state conflict")

	// ErrConcurrencyConflict is returned on lock timeouts and version
	// mismatches. Callers may retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ---------------------------------------------------------------------------
// Structured errors
// ---------------------------------------------------------------------------

// LoanNotFoundError is returned when no loan carries the given ID.
type LoanNotFoundError struct {
	LoanID string
}

func (e *LoanNotFoundError) Error() string { return fmt.Sprintf("loan %s not found", e.LoanID) }
func (e *LoanNotFoundError) Unwrap() error { return ErrNotFound }

// PeriodNotFoundError is returned for an unknown collection period reference.
type PeriodNotFoundError struct {
	PeriodRef string
}

func (e *PeriodNotFoundError) Error() string {
	return fmt.Sprintf("collection period %s not found", e.PeriodRef)
}
func (e *PeriodNotFoundError) Unwrap() error { return ErrNotFound }

// EndorsementNotFoundError is returned for an unknown endorsement ID.
type EndorsementNotFoundError struct {
	EndorsementID string
}

func (e *EndorsementNotFoundError) Error() string {
	return fmt.Sprintf("penalty endorsement %s not found", e.EndorsementID)
}
func (e *EndorsementNotFoundError) Unwrap() error { return ErrNotFound }

// InvalidAmountError is returned for amounts that must be positive but are not.
type InvalidAmountError struct {
	Field  string
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s must be positive, got %s", e.Field, e.Amount.String())
}
func (e *InvalidAmountError) Unwrap() error { return ErrInvalidInput }

// DuplicateScheduleError is returned when a loan already has periods.
type DuplicateScheduleError struct {
	LoanID string
}

func (e *DuplicateScheduleError) Error() string {
	return fmt.Sprintf("schedule already exists for loan %s", e.LoanID)
}
func (e *DuplicateScheduleError) Unwrap() error { return ErrInvalidInput }

// UnsupportedLoanTypeError is returned for loan types without a scheduling rule.
type UnsupportedLoanTypeError struct {
	LoanType string
}

func (e *UnsupportedLoanTypeError) Error() string {
	return fmt.Sprintf("unsupported loan type %q", e.LoanType)
}
func (e *UnsupportedLoanTypeError) Unwrap() error { return ErrInvalidInput }

// ValidationError is a field-level input failure that has no dedicated type.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// PenaltyAlreadyAppliedError is returned on a second penalty for one period.
type PenaltyAlreadyAppliedError struct {
	PeriodRef string
	Penalty   decimal.Decimal
}

func (e *PenaltyAlreadyAppliedError) Error() string {
	return fmt.Sprintf("penalty of %s already applied to period %s", e.Penalty.StringFixed(2), e.PeriodRef)
}
func (e *PenaltyAlreadyAppliedError) Unwrap() error { return ErrStateConflict }

// EndorsementResolvedError is returned when resolving a non-pending endorsement.
type EndorsementResolvedError struct {
	EndorsementID string
	Status        string
}

func (e *EndorsementResolvedError) Error() string {
	return fmt.Sprintf("endorsement %s already %s", e.EndorsementID, e.Status)
}
func (e *EndorsementResolvedError) Unwrap() error { return ErrStateConflict }

// LoanClosedError is returned for mutations against a closed loan.
type LoanClosedError struct {
	LoanID string
}

func (e *LoanClosedError) Error() string { return fmt.Sprintf("loan %s is closed", e.LoanID) }
func (e *LoanClosedError) Unwrap() error { return ErrStateConflict }

// PeriodStateError is returned when a period's state forbids the operation.
type PeriodStateError struct {
	PeriodRef string
	Status    string
	Reason    string
}

func (e *PeriodStateError) Error() string {
	return fmt.Sprintf("period %s (%s): %s", e.PeriodRef, e.Status, e.Reason)
}
func (e *PeriodStateError) Unwrap() error { return ErrStateConflict }

// DuplicateSettlementError is returned when a gateway settlement was already
// posted to the ledger.
type DuplicateSettlementError struct {
	SettlementID string
}

func (e *DuplicateSettlementError) Error() string {
	return fmt.Sprintf("settlement %s already applied", e.SettlementID)
}
func (e *DuplicateSettlementError) Unwrap() error { return ErrStateConflict }

// IsDuplicateSettlement reports whether err is a DuplicateSettlementError.
func IsDuplicateSettlement(err error) bool {
	var dup *DuplicateSettlementError
	return errors.As(err, &dup)
}

// ConcurrencyConflictError is returned when another writer holds or changed the loan.
type ConcurrencyConflictError struct {
	LoanID string
	Reason string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of loan %s: %s", e.LoanID, e.Reason)
}
func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrencyConflict }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool { return errors.Is(err, ErrConcurrencyConflict) }

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput returns true if the error is due to invalid client input.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsStateConflict returns true if the ledger state forbids the operation.
func IsStateConflict(err error) bool { return errors.Is(err, ErrStateConflict) }
