package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

func TestLoanRowToModel(t *testing.T) {
	now := testutil.TestDisbursedAt

	t.Run("restores terms and state", func(t *testing.T) {
		loan, err := loanRow{
			id: "L00042", borrowerID: testutil.TestBorrowerID, loanType: "FIXED_TERM",
			principal: testutil.Dec("20000"), interestRate: testutil.Dec("7"), termPeriods: 8,
			currency: "PHP", disbursedAt: now,
			paidAmount: testutil.Dec("3900"), outstanding: testutil.Dec("27300"), creditScore: testutil.Dec("9.5"),
			status: "ACTIVE", version: 3, createdAt: now, updatedAt: now,
		}.toModel()

		require.NoError(t, err)
		assert.Equal(t, "L00042", loan.ID())
		assert.True(t, loan.Type().IsFixedTerm())
		assert.Equal(t, "PHP", loan.Currency().Code())
		assert.Equal(t, 3, loan.Version())
		testutil.AssertDecimal(t, "27300", loan.OutstandingBalance())
		testutil.AssertDecimal(t, "9.5", loan.CreditScore())
	})

	tests := []struct {
		name string
		row  loanRow
	}{
		{"unknown loan type", loanRow{loanType: "BALLOON", status: "ACTIVE", currency: "PHP"}},
		{"unknown status", loanRow{loanType: "OPEN_TERM", status: "FROZEN", currency: "PHP"}},
		{"bad currency", loanRow{loanType: "OPEN_TERM", status: "ACTIVE", currency: "pesos"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.row.toModel()
			assert.Error(t, err)
		})
	}
}

func TestPeriodRowToModel(t *testing.T) {
	due := testutil.TestDisbursedAt.AddDate(0, 1, 0)
	state := model.PeriodState{
		Ref: "L00001-C1", LoanID: "L00001", BorrowerID: testutil.TestBorrowerID, Sequence: 1,
		DueDate:      due,
		PeriodAmount: testutil.Dec("3900"), PrincipalSnapshot: testutil.Dec("20000"), InterestRate: testutil.Dec("7"),
		PaidAmount: testutil.Dec("1000"), PeriodBalance: testutil.Dec("2900"),
		Penalty: testutil.Dec("0"), PenaltyRate: testutil.Dec("0"),
		StatusChangedAt: due, CreatedAt: due, UpdatedAt: due,
	}

	t.Run("nullable timestamps", func(t *testing.T) {
		paidAt := due.Add(time.Hour)
		p, err := periodRow{state: state, status: "PARTIAL", lastPaidAt: pgTime{t: paidAt}}.toModel()

		require.NoError(t, err)
		assert.Equal(t, valueobject.PeriodStatusPartial, p.Status())
		assert.Equal(t, paidAt, p.LastPaidAt())
		assert.True(t, p.LastReminderAt().IsZero())
	})

	t.Run("rejects a row that breaks conservation", func(t *testing.T) {
		broken := state
		broken.PeriodBalance = testutil.Dec("3000")

		_, err := periodRow{state: broken, status: "PARTIAL"}.toModel()

		assert.True(t, errors.Is(err, model.ErrConservation))
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		_, err := periodRow{state: state, status: "LATE"}.toModel()
		assert.Error(t, err)
	})
}

func TestPgTime(t *testing.T) {
	var pt pgTime
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.FixedZone("PHT", 8*3600))

	require.NoError(t, pt.Scan(at))
	assert.Equal(t, time.UTC, pt.Time().Location())
	assert.True(t, at.Equal(pt.Time()))

	require.NoError(t, pt.Scan(nil))
	assert.True(t, pt.Time().IsZero())

	assert.Error(t, pt.Scan("2025-03-01"))
	assert.Nil(t, nullTime(time.Time{}))
	assert.Equal(t, at, nullTime(at))
}
