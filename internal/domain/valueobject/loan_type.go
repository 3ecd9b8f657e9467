package valueobject

import "fmt"

// LoanType selects the scheduling and allocation rules applied to a loan.
type LoanType struct {
	value string
}

const (
	loanTypeFixedTerm = "FIXED_TERM"
	loanTypeOpenTerm  = "OPEN_TERM"
)

var (
	// LoanTypeFixedTerm is repaid in equal flat-rate installments.
	LoanTypeFixedTerm = LoanType{value: loanTypeFixedTerm}
	// LoanTypeOpenTerm bills interest on the outstanding principal one period at a time.
	LoanTypeOpenTerm = LoanType{value: loanTypeOpenTerm}
)

var validLoanTypes = map[string]LoanType{
	loanTypeFixedTerm: LoanTypeFixedTerm,
	loanTypeOpenTerm:  LoanTypeOpenTerm,
}

// NewLoanType creates a LoanType from a raw string.
func NewLoanType(s string) (LoanType, error) {
	v, ok := validLoanTypes[s]
	if !ok {
		return LoanType{}, fmt.Errorf("invalid loan type: %q", s)
	}
	return v, nil
}

func (t LoanType) String() string            { return t.value }
func (t LoanType) IsZero() bool              { return t.value == "" }
func (t LoanType) Equal(other LoanType) bool { return t.value == other.value }
func (t LoanType) IsFixedTerm() bool         { return t.value == loanTypeFixedTerm }
func (t LoanType) IsOpenTerm() bool          { return t.value == loanTypeOpenTerm }
