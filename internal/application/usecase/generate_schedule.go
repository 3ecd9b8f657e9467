package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
	"github.com/bibbank/microfinance-ledger/pkg/events"
)

// GenerateScheduleUseCase books a disbursed loan and its opening schedule.
type GenerateScheduleUseCase struct {
	store     port.LedgerStore
	locker    port.LoanLocker
	publisher port.EventPublisher
	notices   port.NotificationScheduler
	clock     clock.Clock
	logger    *slog.Logger
}

// NewGenerateScheduleUseCase wires dependencies.
func NewGenerateScheduleUseCase(
	store port.LedgerStore,
	locker port.LoanLocker,
	publisher port.EventPublisher,
	notices port.NotificationScheduler,
	clk clock.Clock,
	logger *slog.Logger,
) *GenerateScheduleUseCase {
	return &GenerateScheduleUseCase{
		store:     store,
		locker:    locker,
		publisher: publisher,
		notices:   notices,
		clock:     clk,
		logger:    logger,
	}
}

// Execute creates the loan and its periods in one transaction.
func (uc *GenerateScheduleUseCase) Execute(
	ctx context.Context,
	req dto.GenerateScheduleRequest,
) (resp dto.ScheduleResponse, err error) {
	ctx, span := startSpan(ctx, "GenerateSchedule", attribute.String("borrower_id", req.BorrowerID))
	defer func() { finishSpan(span, err) }()

	now := uc.clock.Now()

	// 1. Parse the terms.
	loanType, err := parseLoanType(req.LoanType)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("parse terms: %w", err)
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("parse terms: %w", err)
	}

	// 2. Assign a loan ID when none was supplied.
	loanID := req.LoanID
	if loanID == "" {
		n, err := uc.store.Repositories().Loans.NextLoanNumber(ctx)
		if err != nil {
			return dto.ScheduleResponse{}, fmt.Errorf("next loan number: %w", err)
		}
		loanID = model.FormatLoanID(n)
	}
	span.SetAttributes(attribute.String("loan_id", loanID))

	// 3. Build the aggregate and its schedule.
	loan, err := model.NewLoan(model.LoanTerms{
		ID:            loanID,
		ApplicationID: req.ApplicationID,
		BorrowerID:    req.BorrowerID,
		Type:          loanType,
		Principal:     req.Principal,
		InterestRate:  req.InterestRate,
		TermPeriods:   req.TermPeriods,
		Currency:      currency,
		DisbursedAt:   req.DisbursedAt,
	}, now)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("create loan: %w", err)
	}
	periods, err := model.BuildSchedule(loan, now)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("build schedule: %w", err)
	}

	// 4. Persist under the loan lock, refusing to overwrite an existing schedule.
	err = withLoanLock(ctx, uc.locker, loanID, func() error {
		return uc.store.WithinTx(ctx, func(repos port.Repositories) error {
			if _, err := repos.Loans.FindByID(ctx, loanID); err == nil {
				return &model.DuplicateScheduleError{LoanID: loanID}
			} else if !model.IsNotFound(err) {
				return fmt.Errorf("find loan: %w", err)
			}
			existing, err := repos.Periods.FindByLoanID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find periods: %w", err)
			}
			if len(existing) > 0 {
				return &model.DuplicateScheduleError{LoanID: loanID}
			}

			if err := repos.Loans.Save(ctx, loan); err != nil {
				return fmt.Errorf("save loan: %w", err)
			}
			if err := repos.Periods.SaveAll(ctx, periods...); err != nil {
				return fmt.Errorf("save periods: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return dto.ScheduleResponse{}, err
	}

	// 5. Publish and queue due-date notices.
	var collector events.EventCollector
	collector.Record(loan.DomainEvents()...)
	publishCommitted(ctx, uc.publisher, uc.logger, collector.ClearEvents())
	scheduleDueNotices(ctx, uc.notices, uc.logger, periods, now)

	uc.logger.InfoContext(ctx, "schedule generated",
		"loan_id", loanID, "loan_type", loanType.String(), "periods", len(periods))

	return dto.ScheduleResponse{
		Loan:    toLoanResponse(loan.ClearEvents()),
		Periods: toPeriodResponses(periods),
	}, nil
}
