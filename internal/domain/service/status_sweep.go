package service

import (
	"errors"
	"time"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
)

// SweepPolicy holds the lateness thresholds in whole days.
type SweepPolicy struct {
	GraceDays   int
	OverdueDays int
}

// DefaultSweepPolicy is 3 days of grace and overdue from day 30.
func DefaultSweepPolicy() SweepPolicy {
	return SweepPolicy{GraceDays: 3, OverdueDays: 30}
}

// Validate rejects thresholds that leave no room for the PAST_DUE tier.
func (p SweepPolicy) Validate() error {
	if p.GraceDays < 0 {
		return errors.New("grace days must not be negative")
	}
	if p.OverdueDays <= p.GraceDays {
		return errors.New("overdue days must exceed grace days")
	}
	return nil
}

// StatusChange records one tier escalation made by the sweep.
type StatusChange struct {
	PeriodRef string
	LoanID    string
	From      valueobject.PeriodStatus
	To        valueobject.PeriodStatus
	DaysLate  int
}

// StatusSweeper re-tiers late periods.
type StatusSweeper struct {
	policy SweepPolicy
}

// NewStatusSweeper returns a sweeper for policy.
func NewStatusSweeper(policy SweepPolicy) *StatusSweeper {
	return &StatusSweeper{policy: policy}
}

// Policy returns the thresholds in use.
func (s *StatusSweeper) Policy() SweepPolicy { return s.policy }

// TargetTier returns the tier a period daysLate past due belongs in, or
// false while it is still inside the grace window.
func (s *StatusSweeper) TargetTier(daysLate int) (valueobject.PeriodStatus, bool) {
	switch {
	case daysLate <= s.policy.GraceDays:
		return valueobject.PeriodStatus{}, false
	case daysLate < s.policy.OverdueDays:
		return valueobject.PeriodStatusPastDue, true
	default:
		return valueobject.PeriodStatusOverdue, true
	}
}

// Sweep escalates every period that is later than its tier allows. It
// returns the full slice with changed periods replaced, plus the changes.
// Moves are forward only, so a second sweep at the same instant is a no-op.
func (s *StatusSweeper) Sweep(periods []model.CollectionPeriod, now time.Time) ([]model.CollectionPeriod, []StatusChange) {
	out := make([]model.CollectionPeriod, len(periods))
	copy(out, periods)

	var changes []StatusChange
	for i, p := range out {
		if p.Status().IsPaid() {
			continue
		}
		days := p.DaysLate(now)
		target, late := s.TargetTier(days)
		if !late {
			continue
		}
		next, moved := p.Escalate(target, days, now)
		if !moved {
			continue
		}
		out[i] = next
		changes = append(changes, StatusChange{
			PeriodRef: p.Ref(),
			LoanID:    p.LoanID(),
			From:      p.Status(),
			To:        target,
			DaysLate:  days,
		})
	}
	return out, changes
}
