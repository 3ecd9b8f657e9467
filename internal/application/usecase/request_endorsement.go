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
)

// RequestEndorsementUseCase opens a penalty endorsement for a late period.
type RequestEndorsementUseCase struct {
	store      port.LedgerStore
	locker     port.LoanLocker
	publisher  port.EventPublisher
	calculator *service.PenaltyCalculator
	clock      clock.Clock
	logger     *slog.Logger
}

// NewRequestEndorsementUseCase wires dependencies.
func NewRequestEndorsementUseCase(
	store port.LedgerStore,
	locker port.LoanLocker,
	publisher port.EventPublisher,
	calculator *service.PenaltyCalculator,
	clk clock.Clock,
	logger *slog.Logger,
) *RequestEndorsementUseCase {
	return &RequestEndorsementUseCase{
		store:      store,
		locker:     locker,
		publisher:  publisher,
		calculator: calculator,
		clock:      clk,
		logger:     logger,
	}
}

// Execute records a PENDING endorsement priced at the period's current tier.
func (uc *RequestEndorsementUseCase) Execute(
	ctx context.Context,
	req dto.RequestEndorsementRequest,
) (resp dto.EndorsementResponse, err error) {
	ctx, span := startSpan(ctx, "RequestPenaltyEndorsement", attribute.String("period_ref", req.PeriodRef))
	defer func() { finishSpan(span, err) }()

	now := uc.clock.Now()

	// 1. Resolve the owning loan.
	target, err := uc.store.Repositories().Periods.FindByRef(ctx, req.PeriodRef)
	if err != nil {
		return dto.EndorsementResponse{}, fmt.Errorf("find period: %w", err)
	}
	loanID := target.LoanID()

	// 2. Check eligibility and save under the loan lock.
	var endorsement model.PenaltyEndorsement
	err = withLoanLock(ctx, uc.locker, loanID, func() error {
		return uc.store.WithinTx(ctx, func(repos port.Repositories) error {
			loan, err := repos.Loans.FindByID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			if loan.Status().IsClosed() {
				return &model.LoanClosedError{LoanID: loanID}
			}
			period, err := repos.Periods.FindByRef(ctx, req.PeriodRef)
			if err != nil {
				return fmt.Errorf("find period: %w", err)
			}
			if period.Status().IsPaid() {
				return &model.PeriodStateError{
					PeriodRef: period.Ref(), Status: period.Status().String(), Reason: "cannot penalise a paid period",
				}
			}
			if period.HasPenalty() {
				return &model.PenaltyAlreadyAppliedError{PeriodRef: period.Ref(), Penalty: period.Penalty()}
			}

			n, err := repos.Endorsements.NextEndorsementNumber(ctx)
			if err != nil {
				return fmt.Errorf("next endorsement number: %w", err)
			}
			quote := uc.calculator.Quote(period)
			endorsement, err = model.NewPenaltyEndorsement(
				model.FormatEndorsementID(n), period, req.Reason, req.RequestedBy,
				quote.Rate, quote.Amount, now,
			)
			if err != nil {
				return fmt.Errorf("create endorsement: %w", err)
			}
			if err := repos.Endorsements.Save(ctx, endorsement); err != nil {
				return fmt.Errorf("save endorsement: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return dto.EndorsementResponse{}, err
	}

	// 3. Publish.
	publishCommitted(ctx, uc.publisher, uc.logger, endorsement.DomainEvents())

	uc.logger.InfoContext(ctx, "penalty endorsement requested",
		"endorsement_id", endorsement.ID(),
		"period_ref", endorsement.PeriodRef(),
		"tier", endorsement.TierAtRequest().String(),
		"proposed_amount", endorsement.ProposedAmount().String(),
	)
	return toEndorsementResponse(endorsement), nil
}
