package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// GenerateScheduleRequest carries the terms of a freshly disbursed loan.
// LoanID is generated when empty.
type GenerateScheduleRequest struct {
	LoanID        string          `json:"loan_id,omitempty"`
	ApplicationID string          `json:"application_id"`
	BorrowerID    string          `json:"borrower_id" validate:"required"`
	LoanType      string          `json:"loan_type" validate:"required,oneof=FIXED_TERM OPEN_TERM"`
	Principal     decimal.Decimal `json:"principal"`
	InterestRate  decimal.Decimal `json:"interest_rate"`
	TermPeriods   int             `json:"term_periods" validate:"gte=0"`
	Currency      string          `json:"currency,omitempty"`
	DisbursedAt   time.Time       `json:"disbursed_at"`
}

// ApplyPaymentRequest is one confirmed payment against a period.
type ApplyPaymentRequest struct {
	PeriodRef  string          `json:"period_ref" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method" validate:"required"`
	ReceivedBy string          `json:"received_by,omitempty"`
	// SettlementID makes the request idempotent; a repeat is rejected with
	// model.DuplicateSettlementError.
	SettlementID string `json:"settlement_id,omitempty"`
}

// RequestEndorsementRequest asks for a penalty on a late period.
type RequestEndorsementRequest struct {
	PeriodRef   string `json:"period_ref" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// ResolveEndorsementRequest approves or rejects a pending endorsement.
type ResolveEndorsementRequest struct {
	EndorsementID string `json:"endorsement_id" validate:"required"`
	Approve       bool   `json:"approve"`
	ReviewerID    string `json:"reviewer_id,omitempty"`
	Remarks       string `json:"remarks,omitempty"`
}

// ListEndorsementsRequest filters endorsements by status. Empty means PENDING.
type ListEndorsementsRequest struct {
	Status string `json:"status,omitempty"`
}

// GetLoanRequest identifies a loan to retrieve.
type GetLoanRequest struct {
	LoanID string `json:"loan_id" validate:"required"`
}

// GetBorrowerPaymentsRequest identifies a borrower's payment history.
type GetBorrowerPaymentsRequest struct {
	BorrowerID string `json:"borrower_id" validate:"required"`
}

// QuoteDisbursementRequest prices a prospective loan.
type QuoteDisbursementRequest struct {
	LoanType        string          `json:"loan_type" validate:"required,oneof=FIXED_TERM OPEN_TERM"`
	Principal       decimal.Decimal `json:"principal"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	TermPeriods     int             `json:"term_periods" validate:"gte=0"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Currency        string          `json:"currency,omitempty"`
}

// UpdatePeriodNoteRequest replaces the collector note on a period.
type UpdatePeriodNoteRequest struct {
	PeriodRef string `json:"period_ref" validate:"required"`
	Note      string `json:"note" validate:"max=1000"`
}

// NotifyDueRequest is a scheduled due-date notice firing.
type NotifyDueRequest struct {
	PeriodRef  string `json:"period_ref"`
	DaysBefore int    `json:"days_before"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// LoanResponse is the external representation of a loan.
type LoanResponse struct {
	ID                 string          `json:"id"`
	ApplicationID      string          `json:"application_id,omitempty"`
	BorrowerID         string          `json:"borrower_id"`
	LoanType           string          `json:"loan_type"`
	Principal          decimal.Decimal `json:"principal"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	TermPeriods        int             `json:"term_periods"`
	Currency           string          `json:"currency"`
	DisbursedAt        time.Time       `json:"disbursed_at"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	CreditScore        decimal.Decimal `json:"credit_score"`
	Status             string          `json:"status"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// PeriodResponse represents a single collection period.
type PeriodResponse struct {
	Ref               string          `json:"ref"`
	LoanID            string          `json:"loan_id"`
	BorrowerID        string          `json:"borrower_id"`
	Sequence          int             `json:"sequence"`
	DueDate           time.Time       `json:"due_date"`
	PeriodAmount      decimal.Decimal `json:"period_amount"`
	PrincipalSnapshot decimal.Decimal `json:"principal_snapshot"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	PeriodBalance     decimal.Decimal `json:"period_balance"`
	Penalty           decimal.Decimal `json:"penalty"`
	PenaltyRate       decimal.Decimal `json:"penalty_rate"`
	Status            string          `json:"status"`
	Note              string          `json:"note,omitempty"`
	LastPaidAt        *time.Time      `json:"last_paid_at,omitempty"`
	StatusChangedAt   time.Time       `json:"status_changed_at"`
}

// PaymentRecordResponse is one line of the payment ledger.
type PaymentRecordResponse struct {
	Ref              string          `json:"ref"`
	LoanID           string          `json:"loan_id"`
	BorrowerID       string          `json:"borrower_id"`
	PeriodRef        string          `json:"period_ref"`
	Sequence         int             `json:"sequence"`
	Amount           decimal.Decimal `json:"amount"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	PenaltyPortion   decimal.Decimal `json:"penalty_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	Method           string          `json:"method"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	PriorStatus      string          `json:"prior_status"`
	ReceivedBy       string          `json:"received_by,omitempty"`
	PaidAt           time.Time       `json:"paid_at"`
}

// EndorsementResponse is the external representation of a penalty endorsement.
type EndorsementResponse struct {
	ID             string          `json:"id"`
	PeriodRef      string          `json:"period_ref"`
	LoanID         string          `json:"loan_id"`
	Reason         string          `json:"reason"`
	RequestedBy    string          `json:"requested_by,omitempty"`
	TierAtRequest  string          `json:"tier_at_request"`
	ProposedRate   decimal.Decimal `json:"proposed_rate"`
	ProposedAmount decimal.Decimal `json:"proposed_amount"`
	AppliedRate    decimal.Decimal `json:"applied_rate"`
	AppliedAmount  decimal.Decimal `json:"applied_amount"`
	Status         string          `json:"status"`
	ReviewerID     string          `json:"reviewer_id,omitempty"`
	Remarks        string          `json:"remarks,omitempty"`
	RequestedAt    time.Time       `json:"requested_at"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
}

// ScheduleResponse is a loan together with its opening schedule.
type ScheduleResponse struct {
	Loan    LoanResponse     `json:"loan"`
	Periods []PeriodResponse `json:"periods"`
}

// PaymentResponse is the outcome of one ApplyPayment call.
type PaymentResponse struct {
	LoanID             string                  `json:"loan_id"`
	PeriodsTouched     []PeriodResponse        `json:"periods_touched"`
	PeriodsGenerated   []PeriodResponse        `json:"periods_generated,omitempty"`
	PaymentRecords     []PaymentRecordResponse `json:"payment_records"`
	AmountApplied      decimal.Decimal         `json:"amount_applied"`
	LeftoverUnapplied  decimal.Decimal         `json:"leftover_unapplied"`
	ScoreDelta         decimal.Decimal         `json:"score_delta"`
	CreditScore        decimal.Decimal         `json:"credit_score"`
	LoanStatus         string                  `json:"loan_status"`
	OutstandingBalance decimal.Decimal         `json:"outstanding_balance"`
}

// StatusChangeResponse is one escalation made by a sweep.
type StatusChangeResponse struct {
	PeriodRef string `json:"period_ref"`
	LoanID    string `json:"loan_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	DaysLate  int    `json:"days_late"`
}

// SweepFailure reports a loan the sweep could not process.
type SweepFailure struct {
	LoanID string `json:"loan_id"`
	Error  string `json:"error"`
}

// SweepResponse summarises a status sweep run.
type SweepResponse struct {
	SweptAt     time.Time              `json:"swept_at"`
	LoansSwept  int                    `json:"loans_swept"`
	Changes     []StatusChangeResponse `json:"changes"`
	Failures    []SweepFailure         `json:"failures,omitempty"`
	LoansClosed []string               `json:"loans_closed,omitempty"`
}

// LoanDetailResponse is a loan and its periods.
type LoanDetailResponse struct {
	Loan    LoanResponse     `json:"loan"`
	Periods []PeriodResponse `json:"periods"`
}

// LedgerResponse is a loan, its periods and its payment history.
type LedgerResponse struct {
	Loan     LoanResponse            `json:"loan"`
	Periods  []PeriodResponse        `json:"periods"`
	Payments []PaymentRecordResponse `json:"payments"`
}

// QuoteResponse is a disbursement quote.
type QuoteResponse struct {
	LoanType          string          `json:"loan_type"`
	Currency          string          `json:"currency"`
	Principal         decimal.Decimal `json:"principal"`
	ServiceFee        decimal.Decimal `json:"service_fee"`
	PreviousBalance   decimal.Decimal `json:"previous_balance"`
	NetReleased       decimal.Decimal `json:"net_released"`
	InterestPerPeriod decimal.Decimal `json:"interest_per_period"`
	TotalInterest     decimal.Decimal `json:"total_interest"`
	TotalPayable      decimal.Decimal `json:"total_payable"`
	Installment       decimal.Decimal `json:"installment"`
}

// ReminderResponse lists the periods reminded in one run.
type ReminderResponse struct {
	RunAt      time.Time `json:"run_at"`
	PeriodRefs []string  `json:"period_refs"`
	Failures   []string  `json:"failures,omitempty"`
}

// NotifyDueResponse reports whether a due notice was raised.
type NotifyDueResponse struct {
	PeriodRef string `json:"period_ref"`
	Sent      bool   `json:"sent"`
	Reason    string `json:"reason,omitempty"`
}
