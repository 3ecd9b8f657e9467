package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
)

// PaymentRecord is an append-only ledger line: one per period touched by a payment.
type PaymentRecord struct {
	ref              string
	loanID           string
	borrowerID       string
	periodRef        string
	sequence         int
	amount           decimal.Decimal
	interestPortion  decimal.Decimal
	penaltyPortion   decimal.Decimal
	principalPortion decimal.Decimal
	method           valueobject.PaymentMethod
	balanceAfter     decimal.Decimal
	priorStatus      valueobject.PeriodStatus
	receivedBy       string
	paidAt           time.Time
}

// PaymentLine is the input for a new record, and the persisted shape.
type PaymentLine struct {
	Ref              string
	LoanID           string
	BorrowerID       string
	PeriodRef        string
	Sequence         int
	Amount           decimal.Decimal
	InterestPortion  decimal.Decimal
	PenaltyPortion   decimal.Decimal
	PrincipalPortion decimal.Decimal
	Method           valueobject.PaymentMethod
	BalanceAfter     decimal.Decimal
	PriorStatus      valueobject.PeriodStatus
	ReceivedBy       string
	PaidAt           time.Time
}

// NewPaymentRecord validates a line and assigns a fresh reference when empty.
func NewPaymentRecord(line PaymentLine) (PaymentRecord, error) {
	if line.PeriodRef == "" || line.LoanID == "" {
		return PaymentRecord{}, &ValidationError{Field: "period_ref", Message: "is required"}
	}
	if line.Amount.IsNegative() {
		return PaymentRecord{}, &InvalidAmountError{Field: "amount", Amount: line.Amount}
	}
	if line.Ref == "" {
		line.Ref = NewPaymentRef(line.PeriodRef, line.PaidAt)
	}
	return ReconstructPaymentRecord(line), nil
}

// ReconstructPaymentRecord rebuilds a record from persistence.
func ReconstructPaymentRecord(line PaymentLine) PaymentRecord {
	return PaymentRecord{
		ref:              line.Ref,
		loanID:           line.LoanID,
		borrowerID:       line.BorrowerID,
		periodRef:        line.PeriodRef,
		sequence:         line.Sequence,
		amount:           line.Amount,
		interestPortion:  line.InterestPortion,
		penaltyPortion:   line.PenaltyPortion,
		principalPortion: line.PrincipalPortion,
		method:           line.Method,
		balanceAfter:     line.BalanceAfter,
		priorStatus:      line.PriorStatus,
		receivedBy:       line.ReceivedBy,
		paidAt:           line.PaidAt,
	}
}

func (r PaymentRecord) Ref() string                           { return r.ref }
func (r PaymentRecord) LoanID() string                        { return r.loanID }
func (r PaymentRecord) BorrowerID() string                    { return r.borrowerID }
func (r PaymentRecord) PeriodRef() string                     { return r.periodRef }
func (r PaymentRecord) Sequence() int                         { return r.sequence }
func (r PaymentRecord) Amount() decimal.Decimal               { return r.amount }
func (r PaymentRecord) InterestPortion() decimal.Decimal      { return r.interestPortion }
func (r PaymentRecord) PenaltyPortion() decimal.Decimal       { return r.penaltyPortion }
func (r PaymentRecord) PrincipalPortion() decimal.Decimal     { return r.principalPortion }
func (r PaymentRecord) Method() valueobject.PaymentMethod     { return r.method }
func (r PaymentRecord) BalanceAfter() decimal.Decimal         { return r.balanceAfter }
func (r PaymentRecord) PriorStatus() valueobject.PeriodStatus { return r.priorStatus }
func (r PaymentRecord) ReceivedBy() string                    { return r.receivedBy }
func (r PaymentRecord) PaidAt() time.Time                     { return r.paidAt }

// Line returns the persisted shape.
func (r PaymentRecord) Line() PaymentLine {
	return PaymentLine{
		Ref:              r.ref,
		LoanID:           r.loanID,
		BorrowerID:       r.borrowerID,
		PeriodRef:        r.periodRef,
		Sequence:         r.sequence,
		Amount:           r.amount,
		InterestPortion:  r.interestPortion,
		PenaltyPortion:   r.penaltyPortion,
		PrincipalPortion: r.principalPortion,
		Method:           r.method,
		BalanceAfter:     r.balanceAfter,
		PriorStatus:      r.priorStatus,
		ReceivedBy:       r.receivedBy,
		PaidAt:           r.paidAt,
	}
}
