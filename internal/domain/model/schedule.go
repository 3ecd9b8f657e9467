package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/pkg/clock"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

// FixedTermTotalPayable is principal + principal*rate/100*term, rounded to
// cents once so the ledger never carries fractions of a cent.
func FixedTermTotalPayable(principal, ratePercent decimal.Decimal, term int) decimal.Decimal {
	interest := principal.Mul(ratePercent).Div(money.Hundred).Mul(decimal.NewFromInt(int64(term)))
	return money.RoundCents(principal.Add(interest))
}

// BuildSchedule creates the initial periods of a freshly disbursed loan.
// FixedTerm loans get every installment up front, rounded to cents with the
// last one absorbing the residue. OpenTerm loans get a single interest period.
func BuildSchedule(loan Loan, now time.Time) ([]CollectionPeriod, error) {
	switch {
	case loan.Type().IsFixedTerm():
		total := FixedTermTotalPayable(loan.Principal(), loan.InterestRate(), loan.TermPeriods())
		installments := money.SplitEvenly(total, loan.TermPeriods())
		if len(installments) > 0 && !installments[0].IsPositive() {
			return nil, errInstallmentTooSmall(total, loan.TermPeriods())
		}
		periods := make([]CollectionPeriod, 0, len(installments))
		for i, amount := range installments {
			p, err := NewCollectionPeriod(
				loan.ID(), loan.BorrowerID(), i+1,
				clock.AddMonths(loan.DisbursedAt(), i+1),
				amount, decimal.Zero, loan.InterestRate(), now,
			)
			if err != nil {
				return nil, err
			}
			periods = append(periods, p)
		}
		return periods, nil

	case loan.Type().IsOpenTerm():
		p, err := NewCollectionPeriod(
			loan.ID(), loan.BorrowerID(), 1,
			clock.AddMonths(loan.DisbursedAt(), 1),
			money.PercentOf(loan.Principal(), loan.InterestRate()),
			loan.Principal(), loan.InterestRate(), now,
		)
		if err != nil {
			return nil, err
		}
		return []CollectionPeriod{p}, nil

	default:
		return nil, &UnsupportedLoanTypeError{LoanType: loan.Type().String()}
	}
}

// NextOpenTermPeriod rolls an open-term loan into its next billing cycle,
// billing interest on what principal remains and due one month after prev.
func NextOpenTermPeriod(loan Loan, prev CollectionPeriod, principalOutstanding decimal.Decimal, now time.Time) (CollectionPeriod, error) {
	if !loan.Type().IsOpenTerm() {
		return CollectionPeriod{}, &UnsupportedLoanTypeError{LoanType: loan.Type().String()}
	}
	p, err := NewCollectionPeriod(
		loan.ID(), loan.BorrowerID(), prev.Sequence()+1,
		clock.AddMonths(prev.DueDate(), 1),
		money.PercentOf(principalOutstanding, loan.InterestRate()),
		principalOutstanding, loan.InterestRate(), now,
	)
	if err != nil {
		return CollectionPeriod{}, err
	}
	return p.MarkGenerated(now), nil
}

func errInstallmentTooSmall(total decimal.Decimal, term int) error {
	return &ValidationError{
		Field:   "term_periods",
		Message: fmt.Sprintf("%d installments of %s would be under 0.01 each", term, total.StringFixed(2)),
	}
}
