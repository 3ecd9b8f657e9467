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

// ResolveEndorsementUseCase approves or rejects a pending endorsement.
type ResolveEndorsementUseCase struct {
	store      port.LedgerStore
	locker     port.LoanLocker
	publisher  port.EventPublisher
	calculator *service.PenaltyCalculator
	clock      clock.Clock
	logger     *slog.Logger
}

// NewResolveEndorsementUseCase wires dependencies.
func NewResolveEndorsementUseCase(
	store port.LedgerStore,
	locker port.LoanLocker,
	publisher port.EventPublisher,
	calculator *service.PenaltyCalculator,
	clk clock.Clock,
	logger *slog.Logger,
) *ResolveEndorsementUseCase {
	return &ResolveEndorsementUseCase{
		store:      store,
		locker:     locker,
		publisher:  publisher,
		calculator: calculator,
		clock:      clk,
		logger:     logger,
	}
}

// Execute resolves the endorsement once. Approval prices the penalty from
// the tier the period is in now, which may differ from the proposal.
func (uc *ResolveEndorsementUseCase) Execute(
	ctx context.Context,
	req dto.ResolveEndorsementRequest,
) (resp dto.EndorsementResponse, err error) {
	ctx, span := startSpan(ctx, "ResolveEndorsement",
		attribute.String("endorsement_id", req.EndorsementID),
		attribute.Bool("approve", req.Approve))
	defer func() { finishSpan(span, err) }()

	now := uc.clock.Now()

	// 1. Resolve the owning loan.
	current, err := uc.store.Repositories().Endorsements.FindByID(ctx, req.EndorsementID)
	if err != nil {
		return dto.EndorsementResponse{}, fmt.Errorf("find endorsement: %w", err)
	}
	loanID := current.LoanID()

	// 2. Resolve under the loan lock.
	var collector events.EventCollector
	var resolved model.PenaltyEndorsement
	err = withLoanLock(ctx, uc.locker, loanID, func() error {
		return uc.store.WithinTx(ctx, func(repos port.Repositories) error {
			e, err := repos.Endorsements.FindByID(ctx, req.EndorsementID)
			if err != nil {
				return fmt.Errorf("find endorsement: %w", err)
			}
			if e.Status().IsTerminal() {
				return &model.EndorsementResolvedError{EndorsementID: e.ID(), Status: e.Status().String()}
			}

			if !req.Approve {
				resolved, err = e.Reject(req.ReviewerID, req.Remarks, now)
				if err != nil {
					return fmt.Errorf("reject endorsement: %w", err)
				}
				if err := repos.Endorsements.Save(ctx, resolved); err != nil {
					return fmt.Errorf("save endorsement: %w", err)
				}
				collector.Record(resolved.DomainEvents()...)
				return nil
			}

			loan, err := repos.Loans.FindByID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			period, err := repos.Periods.FindByRef(ctx, e.PeriodRef())
			if err != nil {
				return fmt.Errorf("find period: %w", err)
			}

			nextLoan, nextPeriod, quote, err := uc.calculator.Apply(loan, period, e.ID(), now)
			if err != nil {
				return fmt.Errorf("apply penalty: %w", err)
			}
			resolved, err = e.Approve(req.ReviewerID, req.Remarks, quote.Rate, quote.Amount, now)
			if err != nil {
				return fmt.Errorf("approve endorsement: %w", err)
			}

			if quote.Amount.IsPositive() {
				if err := repos.Loans.Save(ctx, nextLoan); err != nil {
					return fmt.Errorf("save loan: %w", err)
				}
				if err := repos.Periods.SaveAll(ctx, nextPeriod); err != nil {
					return fmt.Errorf("save period: %w", err)
				}
				collector.Record(nextLoan.DomainEvents()...)
			}
			if err := repos.Endorsements.Save(ctx, resolved); err != nil {
				return fmt.Errorf("save endorsement: %w", err)
			}
			collector.Record(resolved.DomainEvents()...)
			return nil
		})
	})
	if err != nil {
		return dto.EndorsementResponse{}, err
	}

	// 3. Publish.
	publishCommitted(ctx, uc.publisher, uc.logger, collector.ClearEvents())

	uc.logger.InfoContext(ctx, "penalty endorsement resolved",
		"endorsement_id", resolved.ID(),
		"status", resolved.Status().String(),
		"applied_amount", resolved.AppliedAmount().String(),
		"reviewer_id", resolved.ReviewerID(),
	)
	return toEndorsementResponse(resolved), nil
}
