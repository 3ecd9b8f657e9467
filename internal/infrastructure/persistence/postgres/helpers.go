package postgres

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

// scannable is satisfied by pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// pgTime scans a nullable timestamptz; NULL leaves the zero time.
type pgTime struct {
	t time.Time
}

func (p *pgTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		p.t = v.UTC()
	case nil:
		p.t = time.Time{}
	default:
		return fmt.Errorf("pgTime: cannot scan %T", src)
	}
	return nil
}

func (p pgTime) Time() time.Time { return p.t }

// nullTime writes the zero time as NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// loanRow is the raw column set of the loans table.
type loanRow struct {
	id, applicationID, borrowerID, loanType string
	principal, interestRate                 decimal.Decimal
	termPeriods                             int
	currency                                string
	disbursedAt                             time.Time
	paidAmount, outstanding, creditScore    decimal.Decimal
	status                                  string
	version                                 int
	createdAt, updatedAt                    time.Time
}

func (r loanRow) toModel() (model.Loan, error) {
	loanType, err := valueobject.NewLoanType(r.loanType)
	if err != nil {
		return model.Loan{}, fmt.Errorf("parse loan type: %w", err)
	}
	status, err := valueobject.NewLoanStatus(r.status)
	if err != nil {
		return model.Loan{}, fmt.Errorf("parse loan status: %w", err)
	}
	currency, err := money.NewCurrency(r.currency)
	if err != nil {
		return model.Loan{}, fmt.Errorf("parse currency: %w", err)
	}
	return model.ReconstructLoan(model.LoanTerms{
		ID:            r.id,
		ApplicationID: r.applicationID,
		BorrowerID:    r.borrowerID,
		Type:          loanType,
		Principal:     r.principal,
		InterestRate:  r.interestRate,
		TermPeriods:   r.termPeriods,
		Currency:      currency,
		DisbursedAt:   r.disbursedAt.UTC(),
	}, model.LoanState{
		PaidAmount:         r.paidAmount,
		OutstandingBalance: r.outstanding,
		CreditScore:        r.creditScore,
		Status:             status,
		Version:            r.version,
		CreatedAt:          r.createdAt.UTC(),
		UpdatedAt:          r.updatedAt.UTC(),
	}), nil
}

// periodRow is the raw column set of the collection_periods table.
type periodRow struct {
	state                    model.PeriodState
	status                   string
	lastPaidAt, lastRemindAt pgTime
}

func (r periodRow) toModel() (model.CollectionPeriod, error) {
	status, err := valueobject.NewPeriodStatus(r.status)
	if err != nil {
		return model.CollectionPeriod{}, fmt.Errorf("parse period status: %w", err)
	}
	s := r.state
	s.Status = status
	s.LastPaidAt = r.lastPaidAt.Time()
	s.LastReminderAt = r.lastRemindAt.Time()
	s.DueDate = s.DueDate.UTC()
	s.StatusChangedAt = s.StatusChangedAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return model.ReconstructCollectionPeriod(s)
}

// paymentRow is the raw column set of the payment_records table.
type paymentRow struct {
	line                model.PaymentLine
	method, priorStatus string
}

func (r paymentRow) toModel() (model.PaymentRecord, error) {
	method, err := valueobject.NewPaymentMethod(r.method)
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("parse payment method: %w", err)
	}
	prior, err := valueobject.NewPeriodStatus(r.priorStatus)
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("parse prior status: %w", err)
	}
	line := r.line
	line.Method = method
	line.PriorStatus = prior
	line.PaidAt = line.PaidAt.UTC()
	return model.ReconstructPaymentRecord(line), nil
}

// endorsementRow is the raw column set of the penalty_endorsements table.
type endorsementRow struct {
	state        model.EndorsementState
	tier, status string
	reviewedAt   pgTime
}

func (r endorsementRow) toModel() (model.PenaltyEndorsement, error) {
	tier, err := valueobject.NewPeriodStatus(r.tier)
	if err != nil {
		return model.PenaltyEndorsement{}, fmt.Errorf("parse tier: %w", err)
	}
	status, err := valueobject.NewEndorsementStatus(r.status)
	if err != nil {
		return model.PenaltyEndorsement{}, fmt.Errorf("parse endorsement status: %w", err)
	}
	s := r.state
	s.TierAtRequest = tier
	s.Status = status
	s.ReviewedAt = r.reviewedAt.Time()
	s.RequestedAt = s.RequestedAt.UTC()
	return model.ReconstructPenaltyEndorsement(s), nil
}
