package valueobject

import "fmt"

// ---------------------------------------------------------------------------
// LoanStatus – immutable value object
// ---------------------------------------------------------------------------

// LoanStatus is the aggregate state folded from a loan's periods.
type LoanStatus struct {
	value string
}

const (
	loanStatusActive = "ACTIVE"
	loanStatusClosed = "CLOSED"
)

var (
	LoanStatusActive = LoanStatus{value: loanStatusActive}
	LoanStatusClosed = LoanStatus{value: loanStatusClosed}
)

var validLoanStatuses = map[string]LoanStatus{
	loanStatusActive: LoanStatusActive,
	loanStatusClosed: LoanStatusClosed,
}

// NewLoanStatus creates a LoanStatus from a raw string.
func NewLoanStatus(s string) (LoanStatus, error) {
	v, ok := validLoanStatuses[s]
	if !ok {
		return LoanStatus{}, fmt.Errorf("invalid loan status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s LoanStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s LoanStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s LoanStatus) Equal(other LoanStatus) bool { return s.value == other.value }

// IsClosed reports whether the loan is fully settled.
func (s LoanStatus) IsClosed() bool { return s.value == loanStatusClosed }

// ---------------------------------------------------------------------------
// EndorsementStatus – immutable value object
// ---------------------------------------------------------------------------

// EndorsementStatus represents the review stage of a penalty endorsement.
type EndorsementStatus struct {
	value string
}

const (
	endorsementStatusPending  = "PENDING"
	endorsementStatusApproved = "APPROVED"
	endorsementStatusRejected = "REJECTED"
)

var (
	EndorsementStatusPending  = EndorsementStatus{value: endorsementStatusPending}
	EndorsementStatusApproved = EndorsementStatus{value: endorsementStatusApproved}
	EndorsementStatusRejected = EndorsementStatus{value: endorsementStatusRejected}
)

var validEndorsementStatuses = map[string]EndorsementStatus{
	endorsementStatusPending:  EndorsementStatusPending,
	endorsementStatusApproved: EndorsementStatusApproved,
	endorsementStatusRejected: EndorsementStatusRejected,
}

// NewEndorsementStatus creates an EndorsementStatus from a raw string.
func NewEndorsementStatus(s string) (EndorsementStatus, error) {
	v, ok := validEndorsementStatuses[s]
	if !ok {
		return EndorsementStatus{}, fmt.Errorf("invalid endorsement status: %q", s)
	}
	return v, nil
}

// String returns the string representation.
func (s EndorsementStatus) String() string { return s.value }

// IsZero returns true when not initialised.
func (s EndorsementStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses match.
func (s EndorsementStatus) Equal(other EndorsementStatus) bool { return s.value == other.value }

// IsTerminal reports whether a reviewer has already resolved the endorsement.
func (s EndorsementStatus) IsTerminal() bool {
	return s.value == endorsementStatusApproved || s.value == endorsementStatusRejected
}
