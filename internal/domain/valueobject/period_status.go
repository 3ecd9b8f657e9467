package valueobject

import "fmt"

// ---------------------------------------------------------------------------
// PeriodStatus – lateness tier of a collection period
// ---------------------------------------------------------------------------

// PeriodStatus is the closed set of states a collection period can be in.
type PeriodStatus struct {
	value string
}

const (
	periodStatusUnpaid  = "UNPAID"
	periodStatusPartial = "PARTIAL"
	periodStatusPastDue = "PAST_DUE"
	periodStatusOverdue = "OVERDUE"
	periodStatusPaid    = "PAID"
)

var (
	PeriodStatusUnpaid  = PeriodStatus{value: periodStatusUnpaid}
	PeriodStatusPartial = PeriodStatus{value: periodStatusPartial}
	PeriodStatusPastDue = PeriodStatus{value: periodStatusPastDue}
	PeriodStatusOverdue = PeriodStatus{value: periodStatusOverdue}
	PeriodStatusPaid    = PeriodStatus{value: periodStatusPaid}
)

var validPeriodStatuses = map[string]PeriodStatus{
	periodStatusUnpaid:  PeriodStatusUnpaid,
	periodStatusPartial: PeriodStatusPartial,
	periodStatusPastDue: PeriodStatusPastDue,
	periodStatusOverdue: PeriodStatusOverdue,
	periodStatusPaid:    PeriodStatusPaid,
}

// lateness ranks order the tiers the sweep may move between.
var latenessRank = map[string]int{
	periodStatusUnpaid:  0,
	periodStatusPartial: 0,
	periodStatusPastDue: 1,
	periodStatusOverdue: 2,
}

// NewPeriodStatus creates a PeriodStatus from a raw string.
func NewPeriodStatus(s string) (PeriodStatus, error) {
	v, ok := validPeriodStatuses[s]
	if !ok {
		return PeriodStatus{}, fmt.Errorf("invalid period status: %q", s)
	}
	return v, nil
}

func (s PeriodStatus) String() string                { return s.value }
func (s PeriodStatus) IsZero() bool                  { return s.value == "" }
func (s PeriodStatus) Equal(other PeriodStatus) bool { return s.value == other.value }
func (s PeriodStatus) IsPaid() bool                  { return s.value == periodStatusPaid }

// IsLate reports whether the period sits in a penalty-bearing tier.
func (s PeriodStatus) IsLate() bool {
	return s.value == periodStatusPastDue || s.value == periodStatusOverdue
}

// CanEscalateTo reports whether moving to target is a forward lateness move.
// Paid is terminal and never a sweep target.
func (s PeriodStatus) CanEscalateTo(target PeriodStatus) bool {
	from, ok := latenessRank[s.value]
	if !ok {
		return false
	}
	to, ok := latenessRank[target.value]
	if !ok {
		return false
	}
	return to > from
}

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

// ErrInvalidStatusTransition is returned when a period or loan cannot move to the requested state.
var ErrInvalidStatusTransition = fmt.Errorf("invalid status transition")
