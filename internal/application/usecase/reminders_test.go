package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/application/usecase"
	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

func TestSendReminders_Execute(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "L00001", valueobject.LoanTypeFixedTerm, "20000", "7", 8)
	h.seed(t, "L00002", valueobject.LoanTypeOpenTerm, "50000", "5", 0)
	h.clock.Set(testutil.TestDisbursedAt.AddDate(0, 2, 7))
	h.escalate(t, "L00001-C1", valueobject.PeriodStatusOverdue)
	h.escalate(t, "L00001-C2", valueobject.PeriodStatusPastDue)
	h.escalate(t, "L00002-C1", valueobject.PeriodStatusOverdue)
	uc := usecase.NewSendRemindersUseCase(h.store, h.locker, h.publisher, h.clock, h.logger)

	resp, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"L00001-C1", "L00001-C2", "L00002-C1"}, resp.PeriodRefs)
	assert.Equal(t, []string{event.TypeOverdueReminder, event.TypeOverdueReminder, event.TypeOverdueReminder}, h.publisher.types())
	assert.Equal(t, h.clock.Now(), h.periods.periods["L00001-C1"].LastReminderAt())
	reminder := h.publisher.publishedEvents[0].(event.OverdueReminder)
	assert.Equal(t, 35, reminder.DaysLate)

	// Later the same day nothing is sent again.
	h.clock.Advance(3 * time.Hour)
	again, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.PeriodRefs)

	// The next day everything is reminded again.
	h.clock.Advance(24 * time.Hour)
	next, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, next.PeriodRefs, 3)
}

func TestSendReminders_LoanFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "L00001", valueobject.LoanTypeFixedTerm, "1000", "0", 2)
	h.seed(t, "L00002", valueobject.LoanTypeFixedTerm, "1000", "0", 2)
	h.escalate(t, "L00001-C1", valueobject.PeriodStatusPastDue)
	h.escalate(t, "L00002-C1", valueobject.PeriodStatusPastDue)
	h.locker.lockFunc = func(ctx context.Context, loanID string) (func(), error) {
		if loanID == "L00001" {
			return nil, errors.New("lock timeout")
		}
		return func() {}, nil
	}
	uc := usecase.NewSendRemindersUseCase(h.store, h.locker, h.publisher, h.clock, h.logger)

	resp, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"L00001"}, resp.Failures)
	assert.Equal(t, []string{"L00002-C1"}, resp.PeriodRefs)
}

func TestNotifyDue_Execute(t *testing.T) {
	t.Run("publishes a due soon event", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "L00001", valueobject.LoanTypeFixedTerm, "20000", "7", 8)
		uc := usecase.NewNotifyDueUseCase(h.store, h.publisher, h.clock, h.logger)

		resp, err := uc.Execute(context.Background(), dto.NotifyDueRequest{PeriodRef: "L00001-C1", DaysBefore: 2})

		require.NoError(t, err)
		assert.True(t, resp.Sent)
		require.Len(t, h.publisher.publishedEvents, 1)
		due := h.publisher.publishedEvents[0].(event.PeriodDueSoon)
		assert.Equal(t, 2, due.DaysBefore)
		testutil.AssertDecimal(t, "3900", due.PeriodBalance)
	})

	t.Run("skips a paid period", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "L00001", valueobject.LoanTypeFixedTerm, "1000", "0", 2)
		paid, _, err := h.periods.periods["L00001-C1"].ApplyPayment(testutil.Dec("500"), h.clock.Now())
		require.NoError(t, err)
		h.periods.periods["L00001-C1"] = paid
		uc := usecase.NewNotifyDueUseCase(h.store, h.publisher, h.clock, h.logger)

		resp, err := uc.Execute(context.Background(), dto.NotifyDueRequest{PeriodRef: "L00001-C1"})

		require.NoError(t, err)
		assert.False(t, resp.Sent)
		assert.Empty(t, h.publisher.publishedEvents)
	})

	t.Run("returns publish failures for retry", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "L00001", valueobject.LoanTypeFixedTerm, "1000", "0", 2)
		h.publisher.publishFunc = func(ctx context.Context, evts ...event.DomainEvent) error {
			return errors.New("kafka unavailable")
		}
		uc := usecase.NewNotifyDueUseCase(h.store, h.publisher, h.clock, h.logger)

		_, err := uc.Execute(context.Background(), dto.NotifyDueRequest{PeriodRef: "L00001-C1"})
		assert.ErrorContains(t, err, "publish events")

		_, err = uc.Execute(context.Background(), dto.NotifyDueRequest{PeriodRef: "nope"})
		assert.True(t, model.IsNotFound(err))
	})
}

func TestDueNotices(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "L00001", valueobject.LoanTypeFixedTerm, "1000", "0", 1)
	p := h.periods.periods["L00001-C1"]

	notices := usecase.DueNotices([]model.CollectionPeriod{p}, p.DueDate().Add(-36*time.Hour))

	require.Len(t, notices, 2)
	assert.Equal(t, 1, notices[0].DaysBefore)
	assert.Equal(t, 0, notices[1].DaysBefore)
	assert.Equal(t, p.DueDate(), notices[1].At)
}
