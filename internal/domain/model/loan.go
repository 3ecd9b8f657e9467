package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

// Ledger precision: amounts are whole cents below MaxAmount, rates carry at
// most RateDecimals places below MaxInterestRate.
var (
	MaxAmount       = decimal.RequireFromString("10000000000000000")
	MaxInterestRate = decimal.NewFromInt(100_000)
)

const RateDecimals = 4

// Credit score bounds and starting value.
var (
	MinCreditScore     = decimal.Zero
	MaxCreditScore     = decimal.NewFromInt(10)
	InitialCreditScore = MaxCreditScore
)

// ---------------------------------------------------------------------------
// Loan aggregate root
// ---------------------------------------------------------------------------

// Loan is an immutable aggregate. Mutations return a new copy.
type Loan struct {
	id            string
	applicationID string
	borrowerID    string
	loanType      valueobject.LoanType
	principal     decimal.Decimal
	interestRate  decimal.Decimal
	termPeriods   int
	currency      money.Currency
	disbursedAt   time.Time

	paidAmount         decimal.Decimal
	outstandingBalance decimal.Decimal
	creditScore        decimal.Decimal
	status             valueobject.LoanStatus
	version            int
	createdAt          time.Time
	updatedAt          time.Time
	domainEvents       []event.DomainEvent
}

// LoanTerms are the fixed disbursement terms of a loan.
type LoanTerms struct {
	ID            string
	ApplicationID string
	BorrowerID    string
	Type          valueobject.LoanType
	Principal     decimal.Decimal
	InterestRate  decimal.Decimal // percent per period
	TermPeriods   int             // FixedTerm only
	Currency      money.Currency
	DisbursedAt   time.Time
}

// LoanState is the mutable ledger state restored from persistence.
type LoanState struct {
	PaidAmount         decimal.Decimal
	OutstandingBalance decimal.Decimal
	CreditScore        decimal.Decimal
	Status             valueobject.LoanStatus
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PaymentPosting summarises one ApplyPayment call against the loan.
type PaymentPosting struct {
	PeriodRef        string
	Method           valueobject.PaymentMethod
	Amount           decimal.Decimal // gross amount offered
	Applied          decimal.Decimal // amount taken by periods and principal
	BalanceReduction decimal.Decimal // amount the outstanding balance drops by
	PaymentRefs      []string
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoan validates terms and opens an ACTIVE loan. FixedTerm loans start
// owing the flat-rate total payable; OpenTerm loans start owing the principal.
func NewLoan(terms LoanTerms, now time.Time) (Loan, error) {
	if terms.ID == "" {
		return Loan{}, &ValidationError{Field: "loan_id", Message: "is required"}
	}
	if terms.BorrowerID == "" {
		return Loan{}, &ValidationError{Field: "borrower_id", Message: "is required"}
	}
	if terms.Type.IsZero() {
		return Loan{}, &UnsupportedLoanTypeError{LoanType: terms.Type.String()}
	}
	if !terms.Principal.IsPositive() {
		return Loan{}, &InvalidAmountError{Field: "principal", Amount: terms.Principal}
	}
	if terms.InterestRate.IsNegative() {
		return Loan{}, &ValidationError{Field: "interest_rate", Message: "must not be negative"}
	}
	if err := checkStorable(terms); err != nil {
		return Loan{}, err
	}
	if terms.Currency == (money.Currency{}) {
		terms.Currency = money.PHP
	}
	if terms.DisbursedAt.IsZero() {
		terms.DisbursedAt = now
	}

	var balance decimal.Decimal
	switch {
	case terms.Type.IsFixedTerm():
		if terms.TermPeriods <= 0 {
			return Loan{}, &ValidationError{Field: "term_periods", Message: "must be positive for fixed-term loans"}
		}
		balance = FixedTermTotalPayable(terms.Principal, terms.InterestRate, terms.TermPeriods)
		if !money.SplitEvenly(balance, terms.TermPeriods)[0].IsPositive() {
			return Loan{}, errInstallmentTooSmall(balance, terms.TermPeriods)
		}
	case terms.Type.IsOpenTerm():
		terms.TermPeriods = 0
		balance = terms.Principal
	default:
		return Loan{}, &UnsupportedLoanTypeError{LoanType: terms.Type.String()}
	}

	loan := Loan{
		id:                 terms.ID,
		applicationID:      terms.ApplicationID,
		borrowerID:         terms.BorrowerID,
		loanType:           terms.Type,
		principal:          terms.Principal,
		interestRate:       terms.InterestRate,
		termPeriods:        terms.TermPeriods,
		currency:           terms.Currency,
		disbursedAt:        terms.DisbursedAt,
		paidAmount:         decimal.Zero,
		outstandingBalance: balance,
		creditScore:        InitialCreditScore,
		status:             valueobject.LoanStatusActive,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}

	loan.domainEvents = append(loan.domainEvents, event.NewLoanDisbursed(
		loan.id, loan.borrowerID, loan.applicationID, loan.loanType.String(),
		loan.principal, loan.interestRate, loan.termPeriods,
		balance, loan.currency.Code(), loan.disbursedAt, now,
	))

	return loan, nil
}

// checkStorable rejects values the Postgres columns would round.
func checkStorable(terms LoanTerms) error {
	switch {
	case money.HasSubCents(terms.Principal):
		return &ValidationError{Field: "principal", Message: "must be in whole cents"}
	case !terms.Principal.LessThan(MaxAmount):
		return &ValidationError{Field: "principal", Message: "must be below " + MaxAmount.String()}
	case !terms.InterestRate.Equal(terms.InterestRate.Round(RateDecimals)):
		return &ValidationError{Field: "interest_rate", Message: "must have at most 4 decimal places"}
	case !terms.InterestRate.LessThan(MaxInterestRate):
		return &ValidationError{Field: "interest_rate", Message: "must be below " + MaxInterestRate.String()}
	}
	return nil
}

// ReconstructLoan rebuilds a Loan aggregate from persistence.
func ReconstructLoan(terms LoanTerms, state LoanState) Loan {
	return Loan{
		id:                 terms.ID,
		applicationID:      terms.ApplicationID,
		borrowerID:         terms.BorrowerID,
		loanType:           terms.Type,
		principal:          terms.Principal,
		interestRate:       terms.InterestRate,
		termPeriods:        terms.TermPeriods,
		currency:           terms.Currency,
		disbursedAt:        terms.DisbursedAt,
		paidAmount:         state.PaidAmount,
		outstandingBalance: state.OutstandingBalance,
		creditScore:        state.CreditScore,
		status:             state.Status,
		version:            state.Version,
		createdAt:          state.CreatedAt,
		updatedAt:          state.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// RecordPayment posts an allocated payment and emits PaymentApplied.
func (l Loan) RecordPayment(p PaymentPosting, now time.Time) (Loan, error) {
	if l.status.IsClosed() {
		return l, &LoanClosedError{LoanID: l.id}
	}
	if p.Applied.IsNegative() || p.BalanceReduction.IsNegative() {
		return l, errors.New("payment posting amounts must not be negative")
	}
	if p.Applied.GreaterThan(p.Amount) {
		return l, errors.New("applied amount exceeds the payment")
	}
	if p.BalanceReduction.GreaterThan(l.outstandingBalance) {
		return l, errors.New("balance reduction exceeds outstanding balance")
	}

	next := l
	next.paidAmount = l.paidAmount.Add(p.Applied)
	next.outstandingBalance = l.outstandingBalance.Sub(p.BalanceReduction)
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewPaymentApplied(
		l.id, l.borrowerID, p.PeriodRef, p.Method.String(),
		p.Amount, p.Applied, p.Amount.Sub(p.Applied), next.outstandingBalance,
		p.PaymentRefs, now,
	))
	return next, nil
}

// AddPenalty raises the outstanding balance by an approved penalty.
func (l Loan) AddPenalty(periodRef, endorsementID string, rate, amount decimal.Decimal, now time.Time) (Loan, error) {
	if l.status.IsClosed() {
		return l, &LoanClosedError{LoanID: l.id}
	}
	if !amount.IsPositive() {
		return l, &InvalidAmountError{Field: "penalty", Amount: amount}
	}

	next := l
	next.outstandingBalance = l.outstandingBalance.Add(amount)
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewPenaltyApplied(
		l.id, l.borrowerID, periodRef, endorsementID, rate, amount, next.outstandingBalance, now,
	))
	return next, nil
}

// WithCreditScore sets the score, clamped to [0, 10].
func (l Loan) WithCreditScore(score decimal.Decimal, now time.Time) Loan {
	next := l
	next.creditScore = money.Clamp(score, MinCreditScore, MaxCreditScore)
	next.updatedAt = now
	return next
}

// WithStatus applies a derived status. Moving to CLOSED emits LoanClosed.
func (l Loan) WithStatus(status valueobject.LoanStatus, now time.Time) Loan {
	if l.status.Equal(status) {
		return l
	}
	next := l
	next.status = status
	next.updatedAt = now
	if status.IsClosed() {
		next.domainEvents = copyEvents(l.domainEvents)
		next.domainEvents = append(next.domainEvents, event.NewLoanClosed(
			l.id, l.borrowerID, l.paidAmount, l.creditScore, now,
		))
	}
	return next
}

// ---------------------------------------------------------------------------
// Derived values
// ---------------------------------------------------------------------------

// InterestPerPeriod is principal * rate / 100, unrounded.
func (l Loan) InterestPerPeriod() decimal.Decimal {
	return l.principal.Mul(l.interestRate).Div(money.Hundred)
}

// PrincipalOutstanding is the open-term principal still owed: the balance
// less any penalty posted but not yet settled.
func (l Loan) PrincipalOutstanding(unpaidPenalty decimal.Decimal) decimal.Decimal {
	return money.NonNegative(l.outstandingBalance.Sub(unpaidPenalty))
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l Loan) ID() string                          { return l.id }
func (l Loan) ApplicationID() string               { return l.applicationID }
func (l Loan) BorrowerID() string                  { return l.borrowerID }
func (l Loan) Type() valueobject.LoanType          { return l.loanType }
func (l Loan) Principal() decimal.Decimal          { return l.principal }
func (l Loan) InterestRate() decimal.Decimal       { return l.interestRate }
func (l Loan) TermPeriods() int                    { return l.termPeriods }
func (l Loan) Currency() money.Currency            { return l.currency }
func (l Loan) DisbursedAt() time.Time              { return l.disbursedAt }
func (l Loan) PaidAmount() decimal.Decimal         { return l.paidAmount }
func (l Loan) OutstandingBalance() decimal.Decimal { return l.outstandingBalance }
func (l Loan) CreditScore() decimal.Decimal        { return l.creditScore }
func (l Loan) Status() valueobject.LoanStatus      { return l.status }
func (l Loan) Version() int                        { return l.version }
func (l Loan) CreatedAt() time.Time                { return l.createdAt }
func (l Loan) UpdatedAt() time.Time                { return l.updatedAt }
func (l Loan) DomainEvents() []event.DomainEvent   { return l.domainEvents }

// Terms returns the disbursement terms for persistence.
func (l Loan) Terms() LoanTerms {
	return LoanTerms{
		ID:            l.id,
		ApplicationID: l.applicationID,
		BorrowerID:    l.borrowerID,
		Type:          l.loanType,
		Principal:     l.principal,
		InterestRate:  l.interestRate,
		TermPeriods:   l.termPeriods,
		Currency:      l.currency,
		DisbursedAt:   l.disbursedAt,
	}
}

// ClearEvents returns a copy with an empty event list.
func (l Loan) ClearEvents() Loan {
	next := l
	next.domainEvents = nil
	return next
}

func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if src == nil {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}
