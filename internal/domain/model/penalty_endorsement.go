package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
)

// PenaltyEndorsement is a collector's request to penalise a late period,
// resolved exactly once by a reviewer.
type PenaltyEndorsement struct {
	id             string
	periodRef      string
	loanID         string
	reason         string
	requestedBy    string
	tierAtRequest  valueobject.PeriodStatus
	proposedRate   decimal.Decimal
	proposedAmount decimal.Decimal
	appliedRate    decimal.Decimal
	appliedAmount  decimal.Decimal
	status         valueobject.EndorsementStatus
	reviewerID     string
	remarks        string
	requestedAt    time.Time
	reviewedAt     time.Time
	domainEvents   []event.DomainEvent
}

// EndorsementState carries every persisted field of an endorsement.
type EndorsementState struct {
	ID             string
	PeriodRef      string
	LoanID         string
	Reason         string
	RequestedBy    string
	TierAtRequest  valueobject.PeriodStatus
	ProposedRate   decimal.Decimal
	ProposedAmount decimal.Decimal
	AppliedRate    decimal.Decimal
	AppliedAmount  decimal.Decimal
	Status         valueobject.EndorsementStatus
	ReviewerID     string
	Remarks        string
	RequestedAt    time.Time
	ReviewedAt     time.Time
}

// NewPenaltyEndorsement opens a PENDING endorsement against period with the
// rate and amount the period's tier implies right now.
func NewPenaltyEndorsement(
	id string, period CollectionPeriod, reason, requestedBy string,
	proposedRate, proposedAmount decimal.Decimal, now time.Time,
) (PenaltyEndorsement, error) {
	reason = strings.TrimSpace(reason)
	if id == "" {
		return PenaltyEndorsement{}, &ValidationError{Field: "endorsement_id", Message: "is required"}
	}
	if reason == "" {
		return PenaltyEndorsement{}, &ValidationError{Field: "reason", Message: "is required"}
	}

	e := PenaltyEndorsement{
		id:             id,
		periodRef:      period.Ref(),
		loanID:         period.LoanID(),
		reason:         reason,
		requestedBy:    requestedBy,
		tierAtRequest:  period.Status(),
		proposedRate:   proposedRate,
		proposedAmount: proposedAmount,
		appliedRate:    decimal.Zero,
		appliedAmount:  decimal.Zero,
		status:         valueobject.EndorsementStatusPending,
		requestedAt:    now,
	}
	e.domainEvents = append(e.domainEvents, event.NewEndorsementRequested(
		id, e.periodRef, e.loanID, reason, requestedBy, e.tierAtRequest.String(),
		proposedRate, proposedAmount, now,
	))
	return e, nil
}

// ReconstructPenaltyEndorsement rebuilds an endorsement from persistence.
func ReconstructPenaltyEndorsement(s EndorsementState) PenaltyEndorsement {
	return PenaltyEndorsement{
		id:             s.ID,
		periodRef:      s.PeriodRef,
		loanID:         s.LoanID,
		reason:         s.Reason,
		requestedBy:    s.RequestedBy,
		tierAtRequest:  s.TierAtRequest,
		proposedRate:   s.ProposedRate,
		proposedAmount: s.ProposedAmount,
		appliedRate:    s.AppliedRate,
		appliedAmount:  s.AppliedAmount,
		status:         s.Status,
		reviewerID:     s.ReviewerID,
		remarks:        s.Remarks,
		requestedAt:    s.RequestedAt,
		reviewedAt:     s.ReviewedAt,
	}
}

// Approve resolves the endorsement with the rate and amount actually applied.
func (e PenaltyEndorsement) Approve(reviewerID, remarks string, rate, amount decimal.Decimal, now time.Time) (PenaltyEndorsement, error) {
	return e.resolve(valueobject.EndorsementStatusApproved, reviewerID, remarks, rate, amount, now)
}

// Reject resolves the endorsement without touching the period or loan.
func (e PenaltyEndorsement) Reject(reviewerID, remarks string, now time.Time) (PenaltyEndorsement, error) {
	return e.resolve(valueobject.EndorsementStatusRejected, reviewerID, remarks, decimal.Zero, decimal.Zero, now)
}

func (e PenaltyEndorsement) resolve(
	status valueobject.EndorsementStatus, reviewerID, remarks string,
	rate, amount decimal.Decimal, now time.Time,
) (PenaltyEndorsement, error) {
	if e.status.IsTerminal() {
		return e, &EndorsementResolvedError{EndorsementID: e.id, Status: e.status.String()}
	}
	if reviewerID == "" {
		return e, &ValidationError{Field: "reviewer_id", Message: "is required"}
	}

	next := e
	next.status = status
	next.reviewerID = reviewerID
	next.remarks = remarks
	next.appliedRate = rate
	next.appliedAmount = amount
	next.reviewedAt = now
	next.domainEvents = copyEvents(e.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewEndorsementResolved(
		e.id, e.periodRef, e.loanID, status.String(), reviewerID, remarks, rate, amount, now,
	))
	return next, nil
}

func (e PenaltyEndorsement) ID() string                              { return e.id }
func (e PenaltyEndorsement) PeriodRef() string                       { return e.periodRef }
func (e PenaltyEndorsement) LoanID() string                          { return e.loanID }
func (e PenaltyEndorsement) Reason() string                          { return e.reason }
func (e PenaltyEndorsement) RequestedBy() string                     { return e.requestedBy }
func (e PenaltyEndorsement) TierAtRequest() valueobject.PeriodStatus { return e.tierAtRequest }
func (e PenaltyEndorsement) ProposedRate() decimal.Decimal           { return e.proposedRate }
func (e PenaltyEndorsement) ProposedAmount() decimal.Decimal         { return e.proposedAmount }
func (e PenaltyEndorsement) AppliedRate() decimal.Decimal            { return e.appliedRate }
func (e PenaltyEndorsement) AppliedAmount() decimal.Decimal          { return e.appliedAmount }
func (e PenaltyEndorsement) Status() valueobject.EndorsementStatus   { return e.status }
func (e PenaltyEndorsement) ReviewerID() string                      { return e.reviewerID }
func (e PenaltyEndorsement) Remarks() string                         { return e.remarks }
func (e PenaltyEndorsement) RequestedAt() time.Time                  { return e.requestedAt }
func (e PenaltyEndorsement) ReviewedAt() time.Time                   { return e.reviewedAt }
func (e PenaltyEndorsement) DomainEvents() []event.DomainEvent       { return e.domainEvents }

// State returns every persisted field.
func (e PenaltyEndorsement) State() EndorsementState {
	return EndorsementState{
		ID:             e.id,
		PeriodRef:      e.periodRef,
		LoanID:         e.loanID,
		Reason:         e.reason,
		RequestedBy:    e.requestedBy,
		TierAtRequest:  e.tierAtRequest,
		ProposedRate:   e.proposedRate,
		ProposedAmount: e.proposedAmount,
		AppliedRate:    e.appliedRate,
		AppliedAmount:  e.appliedAmount,
		Status:         e.status,
		ReviewerID:     e.reviewerID,
		Remarks:        e.remarks,
		RequestedAt:    e.requestedAt,
		ReviewedAt:     e.reviewedAt,
	}
}

// ClearEvents returns a copy with an empty event list.
func (e PenaltyEndorsement) ClearEvents() PenaltyEndorsement {
	next := e
	next.domainEvents = nil
	return next
}
