package usecase

import (
	"log/slog"

	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/service"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
)

// Deps are the adapters shared by every use case.
type Deps struct {
	Store       port.LedgerStore
	Locker      port.LoanLocker
	Publisher   port.EventPublisher
	Notices     port.NotificationScheduler
	Clock       clock.Clock
	Logger      *slog.Logger
	SweepPolicy service.SweepPolicy
}

// Set holds one instance of every ledger use case.
type Set struct {
	GenerateSchedule    *GenerateScheduleUseCase
	ApplyPayment        *ApplyPaymentUseCase
	SweepStatuses       *SweepStatusesUseCase
	RequestEndorsement  *RequestEndorsementUseCase
	ResolveEndorsement  *ResolveEndorsementUseCase
	ListEndorsements    *ListEndorsementsUseCase
	GetLoan             *GetLoanUseCase
	GetLoanLedger       *GetLoanLedgerUseCase
	GetBorrowerPayments *GetBorrowerPaymentsUseCase
	QuoteDisbursement   *QuoteDisbursementUseCase
	SendReminders       *SendRemindersUseCase
	NotifyDue           *NotifyDueUseCase
	UpdatePeriodNote    *UpdatePeriodNoteUseCase
}

// NewSet wires every use case against d.
func NewSet(d Deps) *Set {
	allocator := service.NewPaymentAllocator()
	calculator := service.NewPenaltyCalculator()
	sweeper := service.NewStatusSweeper(d.SweepPolicy)

	return &Set{
		GenerateSchedule:    NewGenerateScheduleUseCase(d.Store, d.Locker, d.Publisher, d.Notices, d.Clock, d.Logger),
		ApplyPayment:        NewApplyPaymentUseCase(d.Store, d.Locker, d.Publisher, d.Notices, allocator, d.Clock, d.Logger),
		SweepStatuses:       NewSweepStatusesUseCase(d.Store, d.Locker, d.Publisher, sweeper, d.Clock, d.Logger),
		RequestEndorsement:  NewRequestEndorsementUseCase(d.Store, d.Locker, d.Publisher, calculator, d.Clock, d.Logger),
		ResolveEndorsement:  NewResolveEndorsementUseCase(d.Store, d.Locker, d.Publisher, calculator, d.Clock, d.Logger),
		ListEndorsements:    NewListEndorsementsUseCase(d.Store),
		GetLoan:             NewGetLoanUseCase(d.Store),
		GetLoanLedger:       NewGetLoanLedgerUseCase(d.Store),
		GetBorrowerPayments: NewGetBorrowerPaymentsUseCase(d.Store),
		QuoteDisbursement:   NewQuoteDisbursementUseCase(),
		SendReminders:       NewSendRemindersUseCase(d.Store, d.Locker, d.Publisher, d.Clock, d.Logger),
		NotifyDue:           NewNotifyDueUseCase(d.Store, d.Publisher, d.Clock, d.Logger),
		UpdatePeriodNote:    NewUpdatePeriodNoteUseCase(d.Store, d.Locker, d.Clock, d.Logger),
	}
}
