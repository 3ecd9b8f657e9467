package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/application/usecase"
	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

func (h *harness) generateSchedule() *usecase.GenerateScheduleUseCase {
	return usecase.NewGenerateScheduleUseCase(h.store, h.locker, h.publisher, h.notices, h.clock, h.logger)
}

func fixedTermRequest() dto.GenerateScheduleRequest {
	return dto.GenerateScheduleRequest{
		ApplicationID: "APP-1",
		BorrowerID:    testutil.TestBorrowerID,
		LoanType:      "FIXED_TERM",
		Principal:     testutil.Dec("20000"),
		InterestRate:  testutil.Dec("7"),
		TermPeriods:   8,
		DisbursedAt:   testutil.TestDisbursedAt,
	}
}

func TestGenerateSchedule_Execute(t *testing.T) {
	t.Run("books a fixed-term loan with eight installments", func(t *testing.T) {
		h := newHarness(t)

		resp, err := h.generateSchedule().Execute(context.Background(), fixedTermRequest())

		require.NoError(t, err)
		assert.Equal(t, "L00001", resp.Loan.ID)
		assert.Equal(t, "ACTIVE", resp.Loan.Status)
		assert.Equal(t, "PHP", resp.Loan.Currency)
		testutil.AssertDecimal(t, "31200", resp.Loan.OutstandingBalance)
		testutil.AssertDecimal(t, "10", resp.Loan.CreditScore)
		require.Len(t, resp.Periods, 8)
		testutil.AssertDecimal(t, "3900", resp.Periods[7].PeriodAmount)
		assert.Equal(t, "UNPAID", resp.Periods[0].Status)

		assert.Len(t, h.loans.savedLoans, 1)
		assert.Len(t, h.periods.periods, 8)
		assert.Equal(t, []string{"L00001"}, h.locker.locked)
		assert.Zero(t, h.locker.held)
		assert.Equal(t, []string{event.TypeLoanDisbursed}, h.publisher.types())
		assert.Len(t, h.notices.notices, 32)
		assert.Equal(t, port.DueNotice{
			PeriodRef:  "L00001-C1",
			DaysBefore: 3,
			At:         testutil.TestDisbursedAt.AddDate(0, 1, -3),
		}, h.notices.notices[0])
	})

	t.Run("books an open-term loan with the supplied id", func(t *testing.T) {
		h := newHarness(t)
		req := dto.GenerateScheduleRequest{
			LoanID:       "L00042",
			BorrowerID:   testutil.TestBorrowerID,
			LoanType:     "open_term",
			Principal:    testutil.Dec("50000"),
			InterestRate: testutil.Dec("5"),
			DisbursedAt:  testutil.TestDisbursedAt,
		}

		resp, err := h.generateSchedule().Execute(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "L00042", resp.Loan.ID)
		assert.Equal(t, 0, resp.Loan.TermPeriods)
		require.Len(t, resp.Periods, 1)
		assert.Equal(t, "L00042-C1", resp.Periods[0].Ref)
		testutil.AssertDecimal(t, "2500", resp.Periods[0].PeriodAmount)
		testutil.AssertDecimal(t, "50000", resp.Loan.OutstandingBalance)
	})

	t.Run("skips notices already in the past", func(t *testing.T) {
		h := newHarness(t)
		h.clock.Set(testutil.TestDisbursedAt.AddDate(0, 1, -2))

		_, err := h.generateSchedule().Execute(context.Background(), fixedTermRequest())

		require.NoError(t, err)
		assert.Len(t, h.notices.notices, 30)
	})

	t.Run("rejects a duplicate schedule", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "L00007", valueobject.LoanTypeFixedTerm, "1000", "5", 2)
		req := fixedTermRequest()
		req.LoanID = "L00007"

		_, err := h.generateSchedule().Execute(context.Background(), req)

		var dup *model.DuplicateScheduleError
		require.ErrorAs(t, err, &dup)
		assert.True(t, model.IsInvalidInput(err))
		assert.Empty(t, h.publisher.publishedEvents)
	})

	t.Run("rejects invalid terms", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(r *dto.GenerateScheduleRequest)
		}{
			{"unknown type", func(r *dto.GenerateScheduleRequest) { r.LoanType = "BALLOON" }},
			{"zero principal", func(r *dto.GenerateScheduleRequest) { r.Principal = testutil.Dec("0") }},
			{"negative rate", func(r *dto.GenerateScheduleRequest) { r.InterestRate = testutil.Dec("-1") }},
			{"no term", func(r *dto.GenerateScheduleRequest) { r.TermPeriods = 0 }},
			{"bad currency", func(r *dto.GenerateScheduleRequest) { r.Currency = "PESO" }},
			{"no borrower", func(r *dto.GenerateScheduleRequest) { r.BorrowerID = "" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t)
				req := fixedTermRequest()
				tt.mutate(&req)

				_, err := h.generateSchedule().Execute(context.Background(), req)

				require.Error(t, err)
				assert.True(t, model.IsInvalidInput(err), "got %v", err)
				assert.Empty(t, h.loans.savedLoans)
			})
		}
	})

	t.Run("fails when loan save fails", func(t *testing.T) {
		h := newHarness(t)
		h.loans.saveFunc = func(ctx context.Context, loan model.Loan) error {
			return fmt.Errorf("database unavailable")
		}

		_, err := h.generateSchedule().Execute(context.Background(), fixedTermRequest())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "save loan")
		assert.Empty(t, h.publisher.publishedEvents)
		assert.Empty(t, h.notices.notices)
	})

	t.Run("fails when the lock cannot be taken", func(t *testing.T) {
		h := newHarness(t)
		h.locker.lockFunc = func(ctx context.Context, loanID string) (func(), error) {
			return nil, &model.ConcurrencyConflictError{LoanID: loanID, Reason: "lock timeout"}
		}

		_, err := h.generateSchedule().Execute(context.Background(), fixedTermRequest())

		assert.True(t, model.IsRetryable(err))
		assert.Contains(t, err.Error(), "lock loan")
	})

	t.Run("succeeds when publishing fails after commit", func(t *testing.T) {
		h := newHarness(t)
		h.publisher.publishFunc = func(ctx context.Context, evts ...event.DomainEvent) error {
			return errors.New("kafka unavailable")
		}
		h.notices.scheduleFunc = func(ctx context.Context, notices ...port.DueNotice) error {
			return errors.New("redis unavailable")
		}

		resp, err := h.generateSchedule().Execute(context.Background(), fixedTermRequest())

		require.NoError(t, err)
		assert.Equal(t, "L00001", resp.Loan.ID)
		assert.Len(t, h.periods.periods, 8)
	})
}
