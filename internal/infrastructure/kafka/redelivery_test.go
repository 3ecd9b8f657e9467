package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/application/usecase"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/service"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/kafka"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/lock"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/messaging"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/persistence/memory"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

type nopNotices struct{}

func (nopNotices) ScheduleDueNotices(context.Context, ...port.DueNotice) error { return nil }

func TestSettlementHandler_RedeliveryPostsOnce(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := usecase.NewSet(usecase.Deps{
		Store:       memory.NewStore(),
		Locker:      lock.NewLocal(time.Second),
		Publisher:   messaging.NewLogPublisher(logger),
		Notices:     nopNotices{},
		Clock:       clock.NewFixed(testutil.TestDisbursedAt),
		Logger:      logger,
		SweepPolicy: service.DefaultSweepPolicy(),
	})
	schedule, err := uc.GenerateSchedule.Execute(ctx, dto.GenerateScheduleRequest{
		BorrowerID:   testutil.TestBorrowerID,
		LoanType:     "FIXED_TERM",
		Principal:    testutil.Dec("20000"),
		InterestRate: testutil.Dec("7"),
		TermPeriods:  8,
		DisbursedAt:  testutil.TestDisbursedAt,
	})
	require.NoError(t, err)

	h := kafka.NewSettlementHandler(uc.ApplyPayment, 3, 0, discardLogger())
	msg := settlementMessage(t, kafka.Settlement{
		SettlementID: "S-1", PeriodRef: schedule.Periods[0].Ref, Amount: testutil.Dec("3900"),
	})
	require.NoError(t, h.Handle(ctx, msg))
	require.NoError(t, h.Handle(ctx, msg))

	detail, err := uc.GetLoan.Execute(ctx, dto.GetLoanRequest{LoanID: schedule.Loan.ID})
	require.NoError(t, err)
	testutil.AssertDecimal(t, "3900", detail.Loan.PaidAmount)
	testutil.AssertDecimal(t, "27300", detail.Loan.OutstandingBalance)
	assert.Equal(t, "PAID", detail.Periods[0].Status)
	assert.Equal(t, "UNPAID", detail.Periods[1].Status)

	ledger, err := uc.GetLoanLedger.Execute(ctx, dto.GetLoanRequest{LoanID: schedule.Loan.ID})
	require.NoError(t, err)
	assert.Len(t, ledger.Payments, 1)
}
