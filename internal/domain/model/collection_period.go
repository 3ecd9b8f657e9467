package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

// ErrConservation is returned when paid + balance would diverge from amount + penalty.
var ErrConservation = errors.New("period conservation violated")

// ---------------------------------------------------------------------------
// CollectionPeriod entity
// ---------------------------------------------------------------------------

// CollectionPeriod is one billing cycle of a loan. It is immutable; every
// mutation returns a copy and keeps paidAmount + periodBalance equal to
// periodAmount + penalty.
type CollectionPeriod struct {
	ref               string
	loanID            string
	borrowerID        string
	sequence          int
	dueDate           time.Time
	periodAmount      decimal.Decimal
	principalSnapshot decimal.Decimal
	interestRate      decimal.Decimal

	paidAmount      decimal.Decimal
	periodBalance   decimal.Decimal
	penalty         decimal.Decimal
	penaltyRate     decimal.Decimal
	status          valueobject.PeriodStatus
	note            string
	lastPaidAt      time.Time
	statusChangedAt time.Time
	lastReminderAt  time.Time
	createdAt       time.Time
	updatedAt       time.Time
	domainEvents    []event.DomainEvent
}

// PeriodState carries every persisted field of a collection period.
type PeriodState struct {
	Ref               string
	LoanID            string
	BorrowerID        string
	Sequence          int
	DueDate           time.Time
	PeriodAmount      decimal.Decimal
	PrincipalSnapshot decimal.Decimal
	InterestRate      decimal.Decimal
	PaidAmount        decimal.Decimal
	PeriodBalance     decimal.Decimal
	Penalty           decimal.Decimal
	PenaltyRate       decimal.Decimal
	Status            valueobject.PeriodStatus
	Note              string
	LastPaidAt        time.Time
	StatusChangedAt   time.Time
	LastReminderAt    time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PeriodAllocation describes how an amount landed inside one period.
type PeriodAllocation struct {
	Applied       decimal.Decimal
	ScheduledPart decimal.Decimal // installment or interest share
	PenaltyPart   decimal.Decimal
	PriorStatus   valueobject.PeriodStatus
	BalanceAfter  decimal.Decimal
	BecamePaid    bool
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewCollectionPeriod opens an UNPAID period owing amount.
func NewCollectionPeriod(
	loanID, borrowerID string, sequence int, dueDate time.Time,
	amount, principalSnapshot, rate decimal.Decimal, now time.Time,
) (CollectionPeriod, error) {
	if loanID == "" {
		return CollectionPeriod{}, &ValidationError{Field: "loan_id", Message: "is required"}
	}
	if sequence < 1 {
		return CollectionPeriod{}, &ValidationError{Field: "sequence", Message: "must start at 1"}
	}
	if amount.IsNegative() {
		return CollectionPeriod{}, &ValidationError{Field: "period_amount", Message: "must not be negative"}
	}

	return CollectionPeriod{
		ref:               PeriodRef(loanID, sequence),
		loanID:            loanID,
		borrowerID:        borrowerID,
		sequence:          sequence,
		dueDate:           dueDate,
		periodAmount:      amount,
		principalSnapshot: principalSnapshot,
		interestRate:      rate,
		paidAmount:        decimal.Zero,
		periodBalance:     amount,
		penalty:           decimal.Zero,
		penaltyRate:       decimal.Zero,
		status:            valueobject.PeriodStatusUnpaid,
		statusChangedAt:   now,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// ReconstructCollectionPeriod rebuilds a period from persistence and rejects
// rows that break conservation.
func ReconstructCollectionPeriod(s PeriodState) (CollectionPeriod, error) {
	p := CollectionPeriod{
		ref:               s.Ref,
		loanID:            s.LoanID,
		borrowerID:        s.BorrowerID,
		sequence:          s.Sequence,
		dueDate:           s.DueDate,
		periodAmount:      s.PeriodAmount,
		principalSnapshot: s.PrincipalSnapshot,
		interestRate:      s.InterestRate,
		paidAmount:        s.PaidAmount,
		periodBalance:     s.PeriodBalance,
		penalty:           s.Penalty,
		penaltyRate:       s.PenaltyRate,
		status:            s.Status,
		note:              s.Note,
		lastPaidAt:        s.LastPaidAt,
		statusChangedAt:   s.StatusChangedAt,
		lastReminderAt:    s.LastReminderAt,
		createdAt:         s.CreatedAt,
		updatedAt:         s.UpdatedAt,
	}
	if err := p.checkConservation(); err != nil {
		return CollectionPeriod{}, err
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// ApplyPayment takes amount (at most the period balance) into the period.
// The scheduled amount is settled before any penalty.
func (p CollectionPeriod) ApplyPayment(amount decimal.Decimal, now time.Time) (CollectionPeriod, PeriodAllocation, error) {
	if p.status.IsPaid() {
		return p, PeriodAllocation{}, &PeriodStateError{PeriodRef: p.ref, Status: p.status.String(), Reason: "already paid"}
	}
	if amount.IsNegative() {
		return p, PeriodAllocation{}, &InvalidAmountError{Field: "amount", Amount: amount}
	}
	if amount.GreaterThan(p.periodBalance) {
		return p, PeriodAllocation{}, fmt.Errorf("amount %s exceeds period %s balance %s",
			amount.StringFixed(2), p.ref, p.periodBalance.StringFixed(2))
	}

	scheduledLeft := money.NonNegative(p.periodAmount.Sub(p.paidAmount))
	scheduledPart := money.Min(amount, scheduledLeft)

	next := p
	next.paidAmount = p.paidAmount.Add(amount)
	next.periodBalance = p.periodBalance.Sub(amount)
	next.lastPaidAt = now
	next.updatedAt = now

	target := valueobject.PeriodStatusPartial
	if !next.periodBalance.IsPositive() {
		target = valueobject.PeriodStatusPaid
	}
	if !target.Equal(p.status) {
		next.status = target
		next.statusChangedAt = now
	}

	if err := next.checkConservation(); err != nil {
		return p, PeriodAllocation{}, err
	}

	return next, PeriodAllocation{
		Applied:       amount,
		ScheduledPart: scheduledPart,
		PenaltyPart:   amount.Sub(scheduledPart),
		PriorStatus:   p.status,
		BalanceAfter:  next.periodBalance,
		BecamePaid:    target.IsPaid(),
	}, nil
}

// Escalate moves the period forward to a later lateness tier. It reports
// false and leaves the period untouched for any other move.
func (p CollectionPeriod) Escalate(target valueobject.PeriodStatus, daysLate int, now time.Time) (CollectionPeriod, bool) {
	if !p.status.CanEscalateTo(target) {
		return p, false
	}
	next := p
	next.status = target
	next.statusChangedAt = now
	next.updatedAt = now
	next.domainEvents = copyEvents(p.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewPeriodTierEscalated(
		p.ref, p.loanID, p.borrowerID, p.status.String(), target.String(), daysLate, now,
	))
	return next, true
}

// ApplyPenalty posts a penalty once. A second call fails with
// PenaltyAlreadyAppliedError.
func (p CollectionPeriod) ApplyPenalty(rate, amount decimal.Decimal, now time.Time) (CollectionPeriod, error) {
	if p.status.IsPaid() {
		return p, &PeriodStateError{PeriodRef: p.ref, Status: p.status.String(), Reason: "cannot penalise a paid period"}
	}
	if p.HasPenalty() {
		return p, &PenaltyAlreadyAppliedError{PeriodRef: p.ref, Penalty: p.penalty}
	}
	if !amount.IsPositive() {
		return p, &InvalidAmountError{Field: "penalty", Amount: amount}
	}

	next := p
	next.penalty = amount
	next.penaltyRate = rate
	next.periodBalance = p.periodBalance.Add(amount)
	next.updatedAt = now
	if err := next.checkConservation(); err != nil {
		return p, err
	}
	return next, nil
}

// MarkReminded stamps a daily overdue reminder. It reports false when the
// period is not late or was already reminded on the same calendar day.
func (p CollectionPeriod) MarkReminded(now time.Time) (CollectionPeriod, bool) {
	if !p.status.IsLate() {
		return p, false
	}
	if !p.lastReminderAt.IsZero() && clock.SameDay(p.lastReminderAt, now, time.UTC) {
		return p, false
	}
	next := p
	next.lastReminderAt = now
	next.updatedAt = now
	next.domainEvents = copyEvents(p.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewOverdueReminder(
		p.ref, p.loanID, p.borrowerID, p.status.String(), p.DaysLate(now),
		p.dueDate, p.periodBalance, now,
	))
	return next, true
}

// WithNote replaces the collector note.
func (p CollectionPeriod) WithNote(note string, now time.Time) CollectionPeriod {
	next := p
	next.note = note
	next.updatedAt = now
	return next
}

// MarkGenerated records that this period rolled over from the previous one.
func (p CollectionPeriod) MarkGenerated(now time.Time) CollectionPeriod {
	next := p
	next.domainEvents = copyEvents(p.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewPeriodGenerated(
		p.ref, p.loanID, p.borrowerID, p.sequence, p.dueDate, p.periodAmount, now,
	))
	return next
}

func (p CollectionPeriod) checkConservation() error {
	if !p.paidAmount.Add(p.periodBalance).Equal(p.periodAmount.Add(p.penalty)) {
		return fmt.Errorf("%w: %s paid %s + balance %s != amount %s + penalty %s", ErrConservation, p.ref,
			p.paidAmount, p.periodBalance, p.periodAmount, p.penalty)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Derived values
// ---------------------------------------------------------------------------

// HasPenalty reports whether a penalty was already posted.
func (p CollectionPeriod) HasPenalty() bool { return p.penalty.IsPositive() }

// PenaltyPaid is the part of paidAmount that went beyond the scheduled amount.
func (p CollectionPeriod) PenaltyPaid() decimal.Decimal {
	return money.Min(money.NonNegative(p.paidAmount.Sub(p.periodAmount)), p.penalty)
}

// UnpaidPenalty is the posted penalty not yet settled.
func (p CollectionPeriod) UnpaidPenalty() decimal.Decimal {
	return p.penalty.Sub(p.PenaltyPaid())
}

// DaysLate is floor((now - dueDate) / 24h).
func (p CollectionPeriod) DaysLate(now time.Time) int {
	return clock.DaysLate(p.dueDate, now)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (p CollectionPeriod) Ref() string                        { return p.ref }
func (p CollectionPeriod) LoanID() string                     { return p.loanID }
func (p CollectionPeriod) BorrowerID() string                 { return p.borrowerID }
func (p CollectionPeriod) Sequence() int                      { return p.sequence }
func (p CollectionPeriod) DueDate() time.Time                 { return p.dueDate }
func (p CollectionPeriod) PeriodAmount() decimal.Decimal      { return p.periodAmount }
func (p CollectionPeriod) PrincipalSnapshot() decimal.Decimal { return p.principalSnapshot }
func (p CollectionPeriod) InterestRate() decimal.Decimal      { return p.interestRate }
func (p CollectionPeriod) PaidAmount() decimal.Decimal        { return p.paidAmount }
func (p CollectionPeriod) PeriodBalance() decimal.Decimal     { return p.periodBalance }
func (p CollectionPeriod) Penalty() decimal.Decimal           { return p.penalty }
func (p CollectionPeriod) PenaltyRate() decimal.Decimal       { return p.penaltyRate }
func (p CollectionPeriod) Status() valueobject.PeriodStatus   { return p.status }
func (p CollectionPeriod) Note() string                       { return p.note }
func (p CollectionPeriod) LastPaidAt() time.Time              { return p.lastPaidAt }
func (p CollectionPeriod) StatusChangedAt() time.Time         { return p.statusChangedAt }
func (p CollectionPeriod) LastReminderAt() time.Time          { return p.lastReminderAt }
func (p CollectionPeriod) CreatedAt() time.Time               { return p.createdAt }
func (p CollectionPeriod) UpdatedAt() time.Time               { return p.updatedAt }
func (p CollectionPeriod) DomainEvents() []event.DomainEvent  { return p.domainEvents }

// State returns every persisted field.
func (p CollectionPeriod) State() PeriodState {
	return PeriodState{
		Ref:               p.ref,
		LoanID:            p.loanID,
		BorrowerID:        p.borrowerID,
		Sequence:          p.sequence,
		DueDate:           p.dueDate,
		PeriodAmount:      p.periodAmount,
		PrincipalSnapshot: p.principalSnapshot,
		InterestRate:      p.interestRate,
		PaidAmount:        p.paidAmount,
		PeriodBalance:     p.periodBalance,
		Penalty:           p.penalty,
		PenaltyRate:       p.penaltyRate,
		Status:            p.status,
		Note:              p.note,
		LastPaidAt:        p.lastPaidAt,
		StatusChangedAt:   p.statusChangedAt,
		LastReminderAt:    p.lastReminderAt,
		CreatedAt:         p.createdAt,
		UpdatedAt:         p.updatedAt,
	}
}

// ClearEvents returns a copy with an empty event list.
func (p CollectionPeriod) ClearEvents() CollectionPeriod {
	next := p
	next.domainEvents = nil
	return next
}
