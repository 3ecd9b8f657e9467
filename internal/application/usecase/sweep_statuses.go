package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/service"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
	"github.com/bibbank/microfinance-ledger/pkg/events"
)

// SweepStatusesUseCase re-tiers late periods across every active loan.
type SweepStatusesUseCase struct {
	store     port.LedgerStore
	locker    port.LoanLocker
	publisher port.EventPublisher
	sweeper   *service.StatusSweeper
	clock     clock.Clock
	logger    *slog.Logger
}

// NewSweepStatusesUseCase wires dependencies.
func NewSweepStatusesUseCase(
	store port.LedgerStore,
	locker port.LoanLocker,
	publisher port.EventPublisher,
	sweeper *service.StatusSweeper,
	clk clock.Clock,
	logger *slog.Logger,
) *SweepStatusesUseCase {
	return &SweepStatusesUseCase{
		store:     store,
		locker:    locker,
		publisher: publisher,
		sweeper:   sweeper,
		clock:     clk,
		logger:    logger,
	}
}

type loanSweep struct {
	changes []service.StatusChange
	closed  bool
	events  []event.DomainEvent
}

// Execute sweeps each loan in its own transaction. A failing loan is
// reported in the response and does not stop the others.
func (uc *SweepStatusesUseCase) Execute(ctx context.Context) (resp dto.SweepResponse, err error) {
	ctx, span := startSpan(ctx, "SweepStatuses")
	defer func() { finishSpan(span, err) }()

	now := uc.clock.Now()
	resp = dto.SweepResponse{SweptAt: now, Changes: []dto.StatusChangeResponse{}}

	// Periods still inside grace cannot move, so only look at those due before it ends.
	cutoff := now.Add(-time.Duration(uc.sweeper.Policy().GraceDays) * clock.Day)
	loanIDs, err := uc.store.Repositories().Periods.LoanIDsWithOpenPeriods(ctx, cutoff)
	if err != nil {
		return dto.SweepResponse{}, fmt.Errorf("list loans: %w", err)
	}
	span.SetAttributes(attribute.Int("loans", len(loanIDs)))

	for _, loanID := range loanIDs {
		if err := ctx.Err(); err != nil {
			return resp, fmt.Errorf("sweep interrupted: %w", err)
		}

		result, err := uc.sweepLoan(ctx, loanID, now)
		if err != nil {
			uc.logger.WarnContext(ctx, "sweep loan failed", "loan_id", loanID, "error", err)
			resp.Failures = append(resp.Failures, dto.SweepFailure{LoanID: loanID, Error: err.Error()})
			continue
		}
		resp.LoansSwept++
		resp.Changes = append(resp.Changes, toStatusChangeResponses(result.changes)...)
		if result.closed {
			resp.LoansClosed = append(resp.LoansClosed, loanID)
		}
		publishCommitted(ctx, uc.publisher, uc.logger, result.events)
	}

	uc.logger.InfoContext(ctx, "status sweep finished",
		"loans", resp.LoansSwept, "changes", len(resp.Changes), "failures", len(resp.Failures))
	return resp, nil
}

func (uc *SweepStatusesUseCase) sweepLoan(ctx context.Context, loanID string, now time.Time) (loanSweep, error) {
	var out loanSweep
	err := withLoanLock(ctx, uc.locker, loanID, func() error {
		return uc.store.WithinTx(ctx, func(repos port.Repositories) error {
			loan, err := repos.Loans.FindByID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			if loan.Status().IsClosed() {
				return nil
			}
			periods, err := repos.Periods.FindByLoanID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find periods: %w", err)
			}

			swept, changes := uc.sweeper.Sweep(periods, now)
			if len(changes) == 0 {
				return nil
			}

			changedRefs := make(map[string]struct{}, len(changes))
			for _, c := range changes {
				changedRefs[c.PeriodRef] = struct{}{}
			}
			var changed []model.CollectionPeriod
			var collector events.EventCollector
			for _, p := range swept {
				if _, ok := changedRefs[p.Ref()]; ok {
					changed = append(changed, p)
					collector.Record(p.DomainEvents()...)
				}
			}
			if err := repos.Periods.SaveAll(ctx, changed...); err != nil {
				return fmt.Errorf("save periods: %w", err)
			}

			derived := loan.WithStatus(service.DeriveLoanStatus(swept), now)
			if !derived.Status().Equal(loan.Status()) {
				if err := repos.Loans.Save(ctx, derived); err != nil {
					return fmt.Errorf("save loan: %w", err)
				}
				collector.Record(derived.DomainEvents()...)
				out.closed = derived.Status().IsClosed()
			}

			out.changes = changes
			out.events = collector.ClearEvents()
			return nil
		})
	})
	if err != nil {
		return loanSweep{}, err
	}
	return out, nil
}
