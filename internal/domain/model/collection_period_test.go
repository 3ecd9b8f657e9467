package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

func newPeriod(t *testing.T, amount string) model.CollectionPeriod {
	t.Helper()
	p, err := model.NewCollectionPeriod("L00001", testutil.TestBorrowerID, 1,
		testutil.TestDisbursedAt.AddDate(0, 1, 0), dec(amount), dec("0"), dec("7"), testutil.TestDisbursedAt)
	require.NoError(t, err)
	return p
}

func assertConserved(t *testing.T, p model.CollectionPeriod) {
	t.Helper()
	left := p.PaidAmount().Add(p.PeriodBalance())
	right := p.PeriodAmount().Add(p.Penalty())
	assert.True(t, left.Equal(right), "paid %s + balance %s != amount %s + penalty %s",
		p.PaidAmount(), p.PeriodBalance(), p.PeriodAmount(), p.Penalty())
}

func TestNewCollectionPeriod_Validation(t *testing.T) {
	_, err := model.NewCollectionPeriod("", "B", 1, time.Now(), dec("1"), dec("0"), dec("0"), time.Now())
	assert.True(t, model.IsInvalidInput(err))

	_, err = model.NewCollectionPeriod("L1", "B", 0, time.Now(), dec("1"), dec("0"), dec("0"), time.Now())
	assert.True(t, model.IsInvalidInput(err))

	_, err = model.NewCollectionPeriod("L1", "B", 1, time.Now(), dec("-1"), dec("0"), dec("0"), time.Now())
	assert.True(t, model.IsInvalidInput(err))
}

func TestCollectionPeriod_ApplyPayment(t *testing.T) {
	p := newPeriod(t, "3900")
	now := testutil.TestDisbursedAt.Add(48 * time.Hour)

	partial, alloc, err := p.ApplyPayment(dec("1000"), now)
	require.NoError(t, err)
	assert.Equal(t, valueobject.PeriodStatusPartial, partial.Status())
	assert.Equal(t, valueobject.PeriodStatusUnpaid, alloc.PriorStatus)
	testutil.AssertDecimal(t, "2900", partial.PeriodBalance())
	testutil.AssertDecimal(t, "1000", alloc.ScheduledPart)
	testutil.AssertDecimal(t, "0", alloc.PenaltyPart)
	assert.False(t, alloc.BecamePaid)
	assert.Equal(t, now, partial.LastPaidAt())
	assertConserved(t, partial)

	paid, alloc, err := partial.ApplyPayment(dec("2900"), now)
	require.NoError(t, err)
	assert.Equal(t, valueobject.PeriodStatusPaid, paid.Status())
	assert.True(t, alloc.BecamePaid)
	testutil.AssertDecimal(t, "0", paid.PeriodBalance())
	assertConserved(t, paid)

	_, _, err = paid.ApplyPayment(dec("1"), now)
	var stateErr *model.PeriodStateError
	assert.ErrorAs(t, err, &stateErr)
	assert.True(t, model.IsStateConflict(err))
}

func TestCollectionPeriod_ApplyPaymentBeyondBalance(t *testing.T) {
	p := newPeriod(t, "100")
	_, _, err := p.ApplyPayment(dec("100.01"), testutil.TestDisbursedAt)
	assert.Error(t, err)

	_, _, err = p.ApplyPayment(dec("-1"), testutil.TestDisbursedAt)
	assert.True(t, model.IsInvalidInput(err))
}

func TestCollectionPeriod_PenaltySettledAfterScheduledAmount(t *testing.T) {
	p := newPeriod(t, "3900")

	penalised, err := p.ApplyPenalty(dec("0.05"), dec("195"), testutil.TestDisbursedAt)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "4095", penalised.PeriodBalance())
	testutil.AssertDecimal(t, "195", penalised.UnpaidPenalty())
	assertConserved(t, penalised)

	_, err = penalised.ApplyPenalty(dec("0.05"), dec("195"), testutil.TestDisbursedAt)
	var already *model.PenaltyAlreadyAppliedError
	require.ErrorAs(t, err, &already)
	assert.True(t, model.IsStateConflict(err))

	after, alloc, err := penalised.ApplyPayment(dec("4000"), testutil.TestDisbursedAt)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "3900", alloc.ScheduledPart)
	testutil.AssertDecimal(t, "100", alloc.PenaltyPart)
	testutil.AssertDecimal(t, "95", after.UnpaidPenalty())
	testutil.AssertDecimal(t, "100", after.PenaltyPaid())
	assertConserved(t, after)
}

func TestCollectionPeriod_ApplyPenaltyOnPaidPeriod(t *testing.T) {
	paid, _, err := newPeriod(t, "100").ApplyPayment(dec("100"), testutil.TestDisbursedAt)
	require.NoError(t, err)

	_, err = paid.ApplyPenalty(dec("0.02"), dec("2"), testutil.TestDisbursedAt)
	assert.True(t, model.IsStateConflict(err))
}

func TestCollectionPeriod_Escalate(t *testing.T) {
	p := newPeriod(t, "3900")
	now := p.DueDate().Add(10 * 24 * time.Hour)

	pastDue, moved := p.Escalate(valueobject.PeriodStatusPastDue, 10, now)
	require.True(t, moved)
	assert.Equal(t, valueobject.PeriodStatusPastDue, pastDue.Status())
	assert.Equal(t, now, pastDue.StatusChangedAt())
	require.Len(t, pastDue.DomainEvents(), 1)
	escalated := pastDue.DomainEvents()[0].(event.PeriodTierEscalated)
	assert.Equal(t, "UNPAID", escalated.From)
	assert.Equal(t, "PAST_DUE", escalated.To)
	assert.Equal(t, 10, escalated.DaysLate)

	same, moved := pastDue.Escalate(valueobject.PeriodStatusPastDue, 11, now)
	assert.False(t, moved)
	assert.Equal(t, pastDue, same)

	_, moved = pastDue.Escalate(valueobject.PeriodStatusUnpaid, 0, now)
	assert.False(t, moved)
}

func TestCollectionPeriod_PartialPaymentResetsLatenessTier(t *testing.T) {
	p := newPeriod(t, "3900")
	now := p.DueDate().Add(10 * 24 * time.Hour)

	pastDue, moved := p.Escalate(valueobject.PeriodStatusPastDue, 10, now)
	require.True(t, moved)

	partial, alloc, err := pastDue.ClearEvents().ApplyPayment(dec("1000"), now)
	require.NoError(t, err)
	assert.Equal(t, valueobject.PeriodStatusPastDue, alloc.PriorStatus)
	assert.Equal(t, valueobject.PeriodStatusPartial, partial.Status())

	again, moved := partial.Escalate(valueobject.PeriodStatusPastDue, 11, now.Add(24*time.Hour))
	require.True(t, moved)
	require.Len(t, again.DomainEvents(), 1)
	escalated := again.DomainEvents()[0].(event.PeriodTierEscalated)
	assert.Equal(t, "PARTIAL", escalated.From)
	assert.Equal(t, "PAST_DUE", escalated.To)
}

func TestCollectionPeriod_MarkReminded(t *testing.T) {
	p := newPeriod(t, "3900")
	day := p.DueDate().Add(5 * 24 * time.Hour)

	_, ok := p.MarkReminded(day)
	assert.False(t, ok, "unpaid periods are not reminded")

	late, _ := p.Escalate(valueobject.PeriodStatusPastDue, 5, day)
	late = late.ClearEvents()

	reminded, ok := late.MarkReminded(day)
	require.True(t, ok)
	assert.Equal(t, day, reminded.LastReminderAt())
	assert.Equal(t, []string{event.TypeOverdueReminder}, eventTypes(reminded.DomainEvents()))

	_, ok = reminded.MarkReminded(day.Add(time.Hour))
	assert.False(t, ok, "one reminder per calendar day")

	_, ok = reminded.MarkReminded(day.Add(24 * time.Hour))
	assert.True(t, ok)
}

func TestReconstructCollectionPeriod_RejectsBrokenConservation(t *testing.T) {
	state := newPeriod(t, "3900").State()
	state.PaidAmount = dec("100")

	_, err := model.ReconstructCollectionPeriod(state)
	assert.ErrorIs(t, err, model.ErrConservation)

	state.PeriodBalance = dec("3800")
	rebuilt, err := model.ReconstructCollectionPeriod(state)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "3800", rebuilt.PeriodBalance())
}

func TestCollectionPeriod_WithNote(t *testing.T) {
	p := newPeriod(t, "10").WithNote("borrower travelling until Friday", testutil.TestDisbursedAt)
	assert.Equal(t, "borrower travelling until Friday", p.Note())
}
