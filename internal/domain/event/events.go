package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

// Event type names as published on the ledger topic.
const (
	TypeLoanDisbursed        = "ledger.loan.disbursed"
	TypePeriodGenerated      = "ledger.period.generated"
	TypePaymentApplied       = "ledger.payment.applied"
	TypePenaltyApplied       = "ledger.penalty.applied"
	TypeTierEscalated        = "ledger.period.tier_escalated"
	TypeLoanClosed           = "ledger.loan.closed"
	TypeEndorsementRequested = "ledger.endorsement.requested"
	TypeEndorsementResolved  = "ledger.endorsement.resolved"
	TypeOverdueReminder      = "ledger.period.overdue_reminder"
	TypePeriodDueSoon        = "ledger.period.due_soon"
)

const (
	aggregateLoan        = "Loan"
	aggregatePeriod      = "CollectionPeriod"
	aggregateEndorsement = "PenaltyEndorsement"
)

// ---------------------------------------------------------------------------
// Loan Events
// ---------------------------------------------------------------------------

// LoanDisbursed is raised when a loan and its first schedule are created.
type LoanDisbursed struct {
	events.BaseEvent
	BorrowerID     string          `json:"borrower_id"`
	ApplicationID  string          `json:"application_id"`
	LoanType       string          `json:"loan_type"`
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TermPeriods    int             `json:"term_periods"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Currency       string          `json:"currency"`
	DisbursedAt    time.Time       `json:"disbursed_at"`
}

func NewLoanDisbursed(
	loanID, borrowerID, applicationID, loanType string,
	principal, rate decimal.Decimal, termPeriods int,
	initialBalance decimal.Decimal, currency string,
	disbursedAt, now time.Time,
) LoanDisbursed {
	return LoanDisbursed{
		BaseEvent:      events.NewBaseEvent(TypeLoanDisbursed, loanID, aggregateLoan, now),
		BorrowerID:     borrowerID,
		ApplicationID:  applicationID,
		LoanType:       loanType,
		Principal:      principal,
		InterestRate:   rate,
		TermPeriods:    termPeriods,
		InitialBalance: initialBalance,
		Currency:       currency,
		DisbursedAt:    disbursedAt,
	}
}

// PaymentApplied is raised once per ApplyPayment call that moved money.
type PaymentApplied struct {
	events.BaseEvent
	BorrowerID         string          `json:"borrower_id"`
	PeriodRef          string          `json:"period_ref"`
	Method             string          `json:"method"`
	Amount             decimal.Decimal `json:"amount"`
	Applied            decimal.Decimal `json:"applied"`
	Leftover           decimal.Decimal `json:"leftover_unapplied"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	PaymentRefs        []string        `json:"payment_refs"`
}

func NewPaymentApplied(
	loanID, borrowerID, periodRef, method string,
	amount, applied, leftover, outstanding decimal.Decimal,
	paymentRefs []string, now time.Time,
) PaymentApplied {
	return PaymentApplied{
		BaseEvent:          events.NewBaseEvent(TypePaymentApplied, loanID, aggregateLoan, now),
		BorrowerID:         borrowerID,
		PeriodRef:          periodRef,
		Method:             method,
		Amount:             amount,
		Applied:            applied,
		Leftover:           leftover,
		OutstandingBalance: outstanding,
		PaymentRefs:        paymentRefs,
	}
}

// PenaltyApplied is raised when an approved endorsement posts a penalty.
type PenaltyApplied struct {
	events.BaseEvent
	BorrowerID         string          `json:"borrower_id"`
	PeriodRef          string          `json:"period_ref"`
	EndorsementID      string          `json:"endorsement_id"`
	Rate               decimal.Decimal `json:"rate"`
	Amount             decimal.Decimal `json:"amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

func NewPenaltyApplied(
	loanID, borrowerID, periodRef, endorsementID string,
	rate, amount, outstanding decimal.Decimal, now time.Time,
) PenaltyApplied {
	return PenaltyApplied{
		BaseEvent:          events.NewBaseEvent(TypePenaltyApplied, loanID, aggregateLoan, now),
		BorrowerID:         borrowerID,
		PeriodRef:          periodRef,
		EndorsementID:      endorsementID,
		Rate:               rate,
		Amount:             amount,
		OutstandingBalance: outstanding,
	}
}

// LoanClosed is raised when every period of a loan is paid.
type LoanClosed struct {
	events.BaseEvent
	BorrowerID  string          `json:"borrower_id"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	CreditScore decimal.Decimal `json:"credit_score"`
}

func NewLoanClosed(loanID, borrowerID string, paid, score decimal.Decimal, now time.Time) LoanClosed {
	return LoanClosed{
		BaseEvent:   events.NewBaseEvent(TypeLoanClosed, loanID, aggregateLoan, now),
		BorrowerID:  borrowerID,
		PaidAmount:  paid,
		CreditScore: score,
	}
}

// ---------------------------------------------------------------------------
// Collection Period Events
// ---------------------------------------------------------------------------

// PeriodGenerated is raised when an open-term loan rolls into its next period.
type PeriodGenerated struct {
	events.BaseEvent
	LoanID       string          `json:"loan_id"`
	BorrowerID   string          `json:"borrower_id"`
	Sequence     int             `json:"sequence"`
	DueDate      time.Time       `json:"due_date"`
	PeriodAmount decimal.Decimal `json:"period_amount"`
}

func NewPeriodGenerated(
	periodRef, loanID, borrowerID string, sequence int,
	dueDate time.Time, amount decimal.Decimal, now time.Time,
) PeriodGenerated {
	return PeriodGenerated{
		BaseEvent:    events.NewBaseEvent(TypePeriodGenerated, periodRef, aggregatePeriod, now),
		LoanID:       loanID,
		BorrowerID:   borrowerID,
		Sequence:     sequence,
		DueDate:      dueDate,
		PeriodAmount: amount,
	}
}

// PeriodTierEscalated is raised when the sweep moves a period to a later tier.
type PeriodTierEscalated struct {
	events.BaseEvent
	LoanID     string `json:"loan_id"`
	BorrowerID string `json:"borrower_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	DaysLate   int    `json:"days_late"`
}

func NewPeriodTierEscalated(periodRef, loanID, borrowerID, from, to string, daysLate int, now time.Time) PeriodTierEscalated {
	return PeriodTierEscalated{
		BaseEvent:  events.NewBaseEvent(TypeTierEscalated, periodRef, aggregatePeriod, now),
		LoanID:     loanID,
		BorrowerID: borrowerID,
		From:       from,
		To:         to,
		DaysLate:   daysLate,
	}
}

// OverdueReminder asks the notification collaborator to nudge a late borrower.
type OverdueReminder struct {
	events.BaseEvent
	LoanID        string          `json:"loan_id"`
	BorrowerID    string          `json:"borrower_id"`
	Status        string          `json:"status"`
	DaysLate      int             `json:"days_late"`
	DueDate       time.Time       `json:"due_date"`
	PeriodBalance decimal.Decimal `json:"period_balance"`
}

func NewOverdueReminder(
	periodRef, loanID, borrowerID, status string, daysLate int,
	dueDate time.Time, balance decimal.Decimal, now time.Time,
) OverdueReminder {
	return OverdueReminder{
		BaseEvent:     events.NewBaseEvent(TypeOverdueReminder, periodRef, aggregatePeriod, now),
		LoanID:        loanID,
		BorrowerID:    borrowerID,
		Status:        status,
		DaysLate:      daysLate,
		DueDate:       dueDate,
		PeriodBalance: balance,
	}
}

// PeriodDueSoon is raised by the scheduled notices before a due date.
type PeriodDueSoon struct {
	events.BaseEvent
	LoanID        string          `json:"loan_id"`
	BorrowerID    string          `json:"borrower_id"`
	DaysBefore    int             `json:"days_before"`
	DueDate       time.Time       `json:"due_date"`
	PeriodBalance decimal.Decimal `json:"period_balance"`
}

func NewPeriodDueSoon(
	periodRef, loanID, borrowerID string, daysBefore int,
	dueDate time.Time, balance decimal.Decimal, now time.Time,
) PeriodDueSoon {
	return PeriodDueSoon{
		BaseEvent:     events.NewBaseEvent(TypePeriodDueSoon, periodRef, aggregatePeriod, now),
		LoanID:        loanID,
		BorrowerID:    borrowerID,
		DaysBefore:    daysBefore,
		DueDate:       dueDate,
		PeriodBalance: balance,
	}
}

// ---------------------------------------------------------------------------
// Endorsement Events
// ---------------------------------------------------------------------------

// EndorsementRequested is raised when a collector proposes a penalty.
type EndorsementRequested struct {
	events.BaseEvent
	PeriodRef      string          `json:"period_ref"`
	LoanID         string          `json:"loan_id"`
	Reason         string          `json:"reason"`
	RequestedBy    string          `json:"requested_by"`
	Tier           string          `json:"tier"`
	ProposedRate   decimal.Decimal `json:"proposed_rate"`
	ProposedAmount decimal.Decimal `json:"proposed_amount"`
}

func NewEndorsementRequested(
	endorsementID, periodRef, loanID, reason, requestedBy, tier string,
	rate, amount decimal.Decimal, now time.Time,
) EndorsementRequested {
	return EndorsementRequested{
		BaseEvent:      events.NewBaseEvent(TypeEndorsementRequested, endorsementID, aggregateEndorsement, now),
		PeriodRef:      periodRef,
		LoanID:         loanID,
		Reason:         reason,
		RequestedBy:    requestedBy,
		Tier:           tier,
		ProposedRate:   rate,
		ProposedAmount: amount,
	}
}

// EndorsementResolved is raised when a reviewer approves or rejects.
type EndorsementResolved struct {
	events.BaseEvent
	PeriodRef     string          `json:"period_ref"`
	LoanID        string          `json:"loan_id"`
	Status        string          `json:"status"`
	ReviewerID    string          `json:"reviewer_id"`
	Remarks       string          `json:"remarks,omitempty"`
	AppliedRate   decimal.Decimal `json:"applied_rate"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
}

func NewEndorsementResolved(
	endorsementID, periodRef, loanID, status, reviewerID, remarks string,
	rate, amount decimal.Decimal, now time.Time,
) EndorsementResolved {
	return EndorsementResolved{
		BaseEvent:     events.NewBaseEvent(TypeEndorsementResolved, endorsementID, aggregateEndorsement, now),
		PeriodRef:     periodRef,
		LoanID:        loanID,
		Status:        status,
		ReviewerID:    reviewerID,
		Remarks:       remarks,
		AppliedRate:   rate,
		AppliedAmount: amount,
	}
}
