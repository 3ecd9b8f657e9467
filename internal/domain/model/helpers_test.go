package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

func dec(s string) decimal.Decimal { return testutil.Dec(s) }

func fixedTermLoan(t *testing.T, principal, rate string, term int) model.Loan {
	t.Helper()
	loan, err := model.NewLoan(model.LoanTerms{
		ID:            "L00001",
		ApplicationID: "APP-1",
		BorrowerID:    testutil.TestBorrowerID,
		Type:          valueobject.LoanTypeFixedTerm,
		Principal:     dec(principal),
		InterestRate:  dec(rate),
		TermPeriods:   term,
		DisbursedAt:   testutil.TestDisbursedAt,
	}, testutil.TestDisbursedAt)
	require.NoError(t, err)
	return loan
}

func openTermLoan(t *testing.T, principal, rate string) model.Loan {
	t.Helper()
	loan, err := model.NewLoan(model.LoanTerms{
		ID:           "L00002",
		BorrowerID:   testutil.TestBorrowerID,
		Type:         valueobject.LoanTypeOpenTerm,
		Principal:    dec(principal),
		InterestRate: dec(rate),
		DisbursedAt:  testutil.TestDisbursedAt,
	}, testutil.TestDisbursedAt)
	require.NoError(t, err)
	return loan
}

func eventTypes(evts []event.DomainEvent) []string {
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.EventType())
	}
	return out
}
