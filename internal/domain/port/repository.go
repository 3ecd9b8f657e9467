package port

import (
	"context"
	"time"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// LoanRepository persists and retrieves loans. Save fails with
// model.ConcurrencyConflictError when the stored version moved on.
type LoanRepository interface {
	Save(ctx context.Context, loan model.Loan) error
	FindByID(ctx context.Context, id string) (model.Loan, error)
	FindByBorrowerID(ctx context.Context, borrowerID string) ([]model.Loan, error)
	NextLoanNumber(ctx context.Context) (int64, error)
}

// PeriodRepository persists and retrieves collection periods.
type PeriodRepository interface {
	SaveAll(ctx context.Context, periods ...model.CollectionPeriod) error
	FindByRef(ctx context.Context, ref string) (model.CollectionPeriod, error)
	FindByLoanID(ctx context.Context, loanID string) ([]model.CollectionPeriod, error)
	// LoanIDsWithOpenPeriods lists active loans holding at least one non-PAID
	// period due before dueBefore.
	LoanIDsWithOpenPeriods(ctx context.Context, dueBefore time.Time) ([]string, error)
	FindByStatuses(ctx context.Context, statuses ...valueobject.PeriodStatus) ([]model.CollectionPeriod, error)
}

// PaymentRepository is the append-only payment ledger. Find methods return
// newest first.
type PaymentRepository interface {
	Append(ctx context.Context, records ...model.PaymentRecord) error
	FindByLoanID(ctx context.Context, loanID string) ([]model.PaymentRecord, error)
	FindByBorrowerID(ctx context.Context, borrowerID string) ([]model.PaymentRecord, error)
}

// EndorsementRepository persists penalty endorsements.
type EndorsementRepository interface {
	Save(ctx context.Context, e model.PenaltyEndorsement) error
	FindByID(ctx context.Context, id string) (model.PenaltyEndorsement, error)
	FindByStatus(ctx context.Context, status valueobject.EndorsementStatus) ([]model.PenaltyEndorsement, error)
	NextEndorsementNumber(ctx context.Context) (int64, error)
}

// SettlementRepository remembers which gateway settlements were posted.
// Record fails with model.DuplicateSettlementError for a known ID.
type SettlementRepository interface {
	Record(ctx context.Context, settlementID, loanID string, at time.Time) error
}

// Repositories groups the repositories that share one unit of work.
type Repositories struct {
	Loans        LoanRepository
	Periods      PeriodRepository
	Payments     PaymentRepository
	Endorsements EndorsementRepository
	Settlements  SettlementRepository
}

// LedgerStore hands out repositories outside and inside a transaction.
// WithinTx commits when fn returns nil and rolls back otherwise.
type LedgerStore interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

// ---------------------------------------------------------------------------
// Concurrency port
// ---------------------------------------------------------------------------

// LoanLocker serialises mutations per loan. Lock blocks until the loan is
// free or the context ends; a timeout surfaces as model.ConcurrencyConflictError.
type LoanLocker interface {
	Lock(ctx context.Context, loanID string) (unlock func(), err error)
}

// ---------------------------------------------------------------------------
// Event publisher port
// ---------------------------------------------------------------------------

// EventPublisher publishes domain events to external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}

// ---------------------------------------------------------------------------
// Scheduling port
// ---------------------------------------------------------------------------

// DueNotice is a single reminder to raise before a period falls due.
type DueNotice struct {
	PeriodRef  string
	DaysBefore int
	At         time.Time
}

// NotificationScheduler queues due-date notices for later delivery.
type NotificationScheduler interface {
	ScheduleDueNotices(ctx context.Context, notices ...DueNotice) error
}
