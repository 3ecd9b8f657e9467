package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

// Penalty rates by tier, as fractions of the period amount.
var (
	PastDuePenaltyRate = decimal.RequireFromString("0.02")
	OverduePenaltyRate = decimal.RequireFromString("0.05")
)

// PenaltyQuote is the rate and amount a tier implies for a period.
type PenaltyQuote struct {
	Tier   valueobject.PeriodStatus
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// PenaltyCalculator prices and posts late penalties.
type PenaltyCalculator struct{}

// NewPenaltyCalculator returns a calculator.
func NewPenaltyCalculator() *PenaltyCalculator {
	return &PenaltyCalculator{}
}

// RateFor returns 0.02 for PAST_DUE, 0.05 for OVERDUE and zero otherwise.
func (c *PenaltyCalculator) RateFor(tier valueobject.PeriodStatus) decimal.Decimal {
	switch {
	case tier.Equal(valueobject.PeriodStatusPastDue):
		return PastDuePenaltyRate
	case tier.Equal(valueobject.PeriodStatusOverdue):
		return OverduePenaltyRate
	default:
		return decimal.Zero
	}
}

// Quote prices a penalty from the period's current tier, rounded to cents.
func (c *PenaltyCalculator) Quote(period model.CollectionPeriod) PenaltyQuote {
	rate := c.RateFor(period.Status())
	return PenaltyQuote{
		Tier:   period.Status(),
		Rate:   rate,
		Amount: money.RoundCents(period.PeriodAmount().Mul(rate)),
	}
}

// Apply prices the penalty from the tier the period is in now and posts it
// to both the period and the loan. A zero quote changes nothing.
func (c *PenaltyCalculator) Apply(
	loan model.Loan, period model.CollectionPeriod, endorsementID string, now time.Time,
) (model.Loan, model.CollectionPeriod, PenaltyQuote, error) {
	if period.HasPenalty() {
		return loan, period, PenaltyQuote{}, &model.PenaltyAlreadyAppliedError{PeriodRef: period.Ref(), Penalty: period.Penalty()}
	}

	q := c.Quote(period)
	if !q.Amount.IsPositive() {
		return loan, period, q, nil
	}

	nextPeriod, err := period.ApplyPenalty(q.Rate, q.Amount, now)
	if err != nil {
		return loan, period, PenaltyQuote{}, err
	}
	nextLoan, err := loan.AddPenalty(period.Ref(), endorsementID, q.Rate, q.Amount, now)
	if err != nil {
		return loan, period, PenaltyQuote{}, err
	}
	return nextLoan, nextPeriod, q, nil
}
