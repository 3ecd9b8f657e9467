package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/service"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
	"github.com/bibbank/microfinance-ledger/pkg/events"
)

// ApplyPaymentUseCase allocates a confirmed payment against a loan's schedule.
type ApplyPaymentUseCase struct {
	store     port.LedgerStore
	locker    port.LoanLocker
	publisher port.EventPublisher
	notices   port.NotificationScheduler
	allocator *service.PaymentAllocator
	clock     clock.Clock
	logger    *slog.Logger
}

// NewApplyPaymentUseCase wires dependencies.
func NewApplyPaymentUseCase(
	store port.LedgerStore,
	locker port.LoanLocker,
	publisher port.EventPublisher,
	notices port.NotificationScheduler,
	allocator *service.PaymentAllocator,
	clk clock.Clock,
	logger *slog.Logger,
) *ApplyPaymentUseCase {
	return &ApplyPaymentUseCase{
		store:     store,
		locker:    locker,
		publisher: publisher,
		notices:   notices,
		allocator: allocator,
		clock:     clk,
		logger:    logger,
	}
}

// Execute applies the payment all-or-nothing under the loan lock.
func (uc *ApplyPaymentUseCase) Execute(
	ctx context.Context,
	req dto.ApplyPaymentRequest,
) (resp dto.PaymentResponse, err error) {
	ctx, span := startSpan(ctx, "ApplyPayment",
		attribute.String("period_ref", req.PeriodRef),
		attribute.String("amount", req.Amount.String()),
		attribute.String("settlement_id", req.SettlementID))
	defer func() { finishSpan(span, err) }()

	// 1. Validate the request.
	if !req.Amount.IsPositive() {
		return dto.PaymentResponse{}, &model.InvalidAmountError{Field: "amount", Amount: req.Amount}
	}
	method, err := parseMethod(req.Method)
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	// 2. Resolve the owning loan.
	target, err := uc.store.Repositories().Periods.FindByRef(ctx, req.PeriodRef)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("find period: %w", err)
	}
	loanID := target.LoanID()

	// 3. Allocate and persist in one transaction.
	var alloc service.Allocation
	err = withLoanLock(ctx, uc.locker, loanID, func() error {
		return uc.store.WithinTx(ctx, func(repos port.Repositories) error {
			if req.SettlementID != "" {
				if err := repos.Settlements.Record(ctx, req.SettlementID, loanID, uc.clock.Now()); err != nil {
					return fmt.Errorf("record settlement: %w", err)
				}
			}
			loan, err := repos.Loans.FindByID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			periods, err := repos.Periods.FindByLoanID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find periods: %w", err)
			}

			alloc, err = uc.allocator.Allocate(service.AllocationRequest{
				Loan:       loan,
				Periods:    periods,
				PeriodRef:  req.PeriodRef,
				Amount:     req.Amount,
				Method:     method,
				ReceivedBy: req.ReceivedBy,
				At:         uc.clock.Now(),
			})
			if err != nil {
				return fmt.Errorf("allocate payment: %w", err)
			}

			if err := repos.Loans.Save(ctx, alloc.Loan); err != nil {
				return fmt.Errorf("save loan: %w", err)
			}
			changed := append(append([]model.CollectionPeriod{}, alloc.Touched...), alloc.Generated...)
			if err := repos.Periods.SaveAll(ctx, changed...); err != nil {
				return fmt.Errorf("save periods: %w", err)
			}
			if err := repos.Payments.Append(ctx, alloc.Records...); err != nil {
				return fmt.Errorf("append payments: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	// 4. Publish and queue notices for continuation periods.
	var collector events.EventCollector
	collector.Record(alloc.Loan.DomainEvents()...)
	for _, p := range alloc.Generated {
		collector.Record(p.DomainEvents()...)
	}
	publishCommitted(ctx, uc.publisher, uc.logger, collector.ClearEvents())
	scheduleDueNotices(ctx, uc.notices, uc.logger, alloc.Generated, uc.clock.Now())

	uc.logger.InfoContext(ctx, "payment applied",
		"loan_id", loanID,
		"period_ref", req.PeriodRef,
		"amount", req.Amount.String(),
		"applied", alloc.Applied.String(),
		"leftover", alloc.Leftover.String(),
		"loan_status", alloc.Loan.Status().String(),
	)

	return dto.PaymentResponse{
		LoanID:             loanID,
		PeriodsTouched:     toPeriodResponses(alloc.Touched),
		PeriodsGenerated:   toPeriodResponses(alloc.Generated),
		PaymentRecords:     toPaymentResponses(alloc.Records),
		AmountApplied:      alloc.Applied,
		LeftoverUnapplied:  alloc.Leftover,
		ScoreDelta:         alloc.ScoreDelta,
		CreditScore:        alloc.Loan.CreditScore(),
		LoanStatus:         alloc.Loan.Status().String(),
		OutstandingBalance: alloc.Loan.OutstandingBalance(),
	}, nil
}
