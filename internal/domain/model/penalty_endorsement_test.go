package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

func TestNewPenaltyEndorsement(t *testing.T) {
	p := newPeriod(t, "3900")

	e, err := model.NewPenaltyEndorsement("PE00001", p, "  missed three visits ", testutil.TestOperatorID,
		dec("0"), dec("0"), testutil.TestDisbursedAt)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EndorsementStatusPending, e.Status())
	assert.Equal(t, "missed three visits", e.Reason())
	assert.Equal(t, p.Ref(), e.PeriodRef())
	assert.Equal(t, "L00001", e.LoanID())
	assert.Equal(t, valueobject.PeriodStatusUnpaid, e.TierAtRequest())
	assert.Equal(t, []string{event.TypeEndorsementRequested}, eventTypes(e.DomainEvents()))

	_, err = model.NewPenaltyEndorsement("PE00002", p, "   ", testutil.TestOperatorID, dec("0"), dec("0"), testutil.TestDisbursedAt)
	assert.True(t, model.IsInvalidInput(err))
}

func TestPenaltyEndorsement_ResolvesOnce(t *testing.T) {
	e, err := model.NewPenaltyEndorsement("PE00001", newPeriod(t, "3900"), "late", testutil.TestOperatorID,
		dec("0.05"), dec("195"), testutil.TestDisbursedAt)
	require.NoError(t, err)
	e = e.ClearEvents()

	approved, err := e.Approve(testutil.TestReviewerID, "ok", dec("0.02"), dec("78"), testutil.TestDisbursedAt)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EndorsementStatusApproved, approved.Status())
	testutil.AssertDecimal(t, "0.02", approved.AppliedRate())
	testutil.AssertDecimal(t, "78", approved.AppliedAmount())
	testutil.AssertDecimal(t, "195", approved.ProposedAmount())
	assert.Equal(t, testutil.TestReviewerID, approved.ReviewerID())
	assert.Equal(t, []string{event.TypeEndorsementResolved}, eventTypes(approved.DomainEvents()))

	_, err = approved.Reject(testutil.TestReviewerID, "changed my mind", testutil.TestDisbursedAt)
	var resolved *model.EndorsementResolvedError
	require.ErrorAs(t, err, &resolved)
	assert.Equal(t, "APPROVED", resolved.Status)
	assert.True(t, model.IsStateConflict(err))
}

func TestPenaltyEndorsement_RejectRequiresReviewer(t *testing.T) {
	e, err := model.NewPenaltyEndorsement("PE00001", newPeriod(t, "3900"), "late", "", dec("0"), dec("0"), testutil.TestDisbursedAt)
	require.NoError(t, err)

	_, err = e.Reject("", "", testutil.TestDisbursedAt)
	assert.True(t, model.IsInvalidInput(err))

	rejected, err := e.Reject(testutil.TestReviewerID, "paid in cash", testutil.TestDisbursedAt)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EndorsementStatusRejected, rejected.Status())
	testutil.AssertDecimal(t, "0", rejected.AppliedAmount())
}
