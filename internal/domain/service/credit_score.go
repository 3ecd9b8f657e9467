package service

import (
	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

var (
	onTimeDelta  = decimal.RequireFromString("0.5")
	pastDueDelta = decimal.RequireFromString("-0.5")
	overdueDelta = decimal.RequireFromString("-1.5")
)

// CreditScoreDelta maps the tier a period was in before a payment to a score change.
//
//	UNPAID   +0.5
//	PAST_DUE -0.5
//	OVERDUE  -1.5
//	other     0
func CreditScoreDelta(prior valueobject.PeriodStatus) decimal.Decimal {
	switch {
	case prior.Equal(valueobject.PeriodStatusUnpaid):
		return onTimeDelta
	case prior.Equal(valueobject.PeriodStatusPastDue):
		return pastDueDelta
	case prior.Equal(valueobject.PeriodStatusOverdue):
		return overdueDelta
	default:
		return decimal.Zero
	}
}

// AdjustCreditScore applies the delta for prior to score and clamps the
// result to [0, 10]. The raw delta is returned alongside.
func AdjustCreditScore(score decimal.Decimal, prior valueobject.PeriodStatus) (next, delta decimal.Decimal) {
	delta = CreditScoreDelta(prior)
	next = money.Clamp(score.Add(delta), model.MinCreditScore, model.MaxCreditScore)
	return next, delta
}
