package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

func dec(s string) decimal.Decimal { return testutil.Dec(s) }

// scheduled disburses a loan and builds its opening schedule, with the
// disbursement events already drained.
func scheduled(t *testing.T, lt valueobject.LoanType, principal, rate string, term int) (model.Loan, []model.CollectionPeriod) {
	t.Helper()
	loan, err := model.NewLoan(model.LoanTerms{
		ID:           "L00001",
		BorrowerID:   testutil.TestBorrowerID,
		Type:         lt,
		Principal:    dec(principal),
		InterestRate: dec(rate),
		TermPeriods:  term,
		DisbursedAt:  testutil.TestDisbursedAt,
	}, testutil.TestDisbursedAt)
	require.NoError(t, err)

	periods, err := model.BuildSchedule(loan, testutil.TestDisbursedAt)
	require.NoError(t, err)
	return loan.ClearEvents(), periods
}

func escalate(t *testing.T, p model.CollectionPeriod, to valueobject.PeriodStatus) model.CollectionPeriod {
	t.Helper()
	next, ok := p.Escalate(to, 10, p.DueDate().Add(10*24*time.Hour))
	require.True(t, ok)
	return next.ClearEvents()
}

func eventTypes(evts []event.DomainEvent) []string {
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.EventType())
	}
	return out
}
