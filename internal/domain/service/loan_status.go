package service

import (
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
)

// DeriveLoanStatus folds a loan's periods into its aggregate status: CLOSED
// iff at least one period exists and every period is PAID.
func DeriveLoanStatus(periods []model.CollectionPeriod) valueobject.LoanStatus {
	if len(periods) == 0 {
		return valueobject.LoanStatusActive
	}
	for _, p := range periods {
		if !p.Status().IsPaid() {
			return valueobject.LoanStatusActive
		}
	}
	return valueobject.LoanStatusClosed
}
