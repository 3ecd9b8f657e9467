package model

import (
	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

// feeBand is an inclusive principal range with either a percentage or a flat fee.
type feeBand struct {
	min, max decimal.Decimal
	percent  decimal.Decimal
	flat     decimal.Decimal
}

var serviceFeeBands = []feeBand{
	{min: decimal.NewFromInt(10_000), max: decimal.NewFromInt(20_000), percent: decimal.NewFromInt(5)},
	{min: decimal.NewFromInt(25_000), max: decimal.NewFromInt(40_000), flat: decimal.NewFromInt(1_000)},
	{min: decimal.NewFromInt(50_000), max: decimal.NewFromInt(500_000), percent: decimal.NewFromInt(3)},
}

// ServiceFee returns the disbursement fee for a principal. Principals that
// fall between bands carry no fee.
func ServiceFee(principal money.Money) money.Money {
	p := principal.Amount()
	for _, b := range serviceFeeBands {
		if p.LessThan(b.min) || p.GreaterThan(b.max) {
			continue
		}
		if b.percent.IsPositive() {
			return money.New(money.PercentOf(p, b.percent), principal.Currency())
		}
		return money.New(b.flat, principal.Currency())
	}
	return money.Zero(principal.Currency())
}

// DisbursementQuote is what a borrower is told before release.
type DisbursementQuote struct {
	LoanType          valueobject.LoanType
	Principal         money.Money
	ServiceFee        money.Money
	PreviousBalance   money.Money
	NetReleased       money.Money
	InterestPerPeriod money.Money
	TotalInterest     money.Money // zero for OpenTerm
	TotalPayable      money.Money // zero for OpenTerm
	Installment       money.Money // zero for OpenTerm
}

// QuoteDisbursement prices a prospective loan. previousBalance is an unpaid
// balance from an earlier loan deducted from the release on a re-loan.
func QuoteDisbursement(
	loanType valueobject.LoanType, principal money.Money, ratePercent decimal.Decimal,
	term int, previousBalance money.Money,
) (DisbursementQuote, error) {
	if !principal.IsPositive() {
		return DisbursementQuote{}, &InvalidAmountError{Field: "principal", Amount: principal.Amount()}
	}
	if ratePercent.IsNegative() {
		return DisbursementQuote{}, &ValidationError{Field: "interest_rate", Message: "must not be negative"}
	}
	if previousBalance.Currency() == (money.Currency{}) {
		previousBalance = money.Zero(principal.Currency())
	}
	if previousBalance.Amount().IsNegative() {
		return DisbursementQuote{}, &ValidationError{Field: "previous_balance", Message: "must not be negative"}
	}

	fee := ServiceFee(principal)
	net, err := principal.Subtract(fee)
	if err != nil {
		return DisbursementQuote{}, err
	}
	net, err = net.Subtract(previousBalance)
	if err != nil {
		return DisbursementQuote{}, &ValidationError{Field: "previous_balance", Message: err.Error()}
	}

	cur := principal.Currency()
	q := DisbursementQuote{
		LoanType:          loanType,
		Principal:         principal,
		ServiceFee:        fee,
		PreviousBalance:   previousBalance,
		NetReleased:       net,
		InterestPerPeriod: money.New(money.PercentOf(principal.Amount(), ratePercent), cur),
		TotalInterest:     money.Zero(cur),
		TotalPayable:      money.Zero(cur),
		Installment:       money.Zero(cur),
	}

	switch {
	case loanType.IsFixedTerm():
		if term <= 0 {
			return DisbursementQuote{}, &ValidationError{Field: "term_periods", Message: "must be positive for fixed-term loans"}
		}
		total := FixedTermTotalPayable(principal.Amount(), ratePercent, term)
		q.TotalPayable = money.New(total, cur)
		q.TotalInterest = money.New(total.Sub(principal.Amount()), cur)
		q.Installment = money.New(money.SplitEvenly(total, term)[0], cur)
	case loanType.IsOpenTerm():
	default:
		return DisbursementQuote{}, &UnsupportedLoanTypeError{LoanType: loanType.String()}
	}

	return q, nil
}
