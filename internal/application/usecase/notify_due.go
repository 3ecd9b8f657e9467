package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
)

// NotifyDueUseCase raises a due_soon event when a scheduled notice fires.
type NotifyDueUseCase struct {
	store     port.LedgerStore
	publisher port.EventPublisher
	clock     clock.Clock
	logger    *slog.Logger
}

// NewNotifyDueUseCase wires dependencies.
func NewNotifyDueUseCase(
	store port.LedgerStore,
	publisher port.EventPublisher,
	clk clock.Clock,
	logger *slog.Logger,
) *NotifyDueUseCase {
	return &NotifyDueUseCase{
		store:     store,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Execute publishes the notice unless the period was paid in the meantime.
// Unlike the other writers, a publish failure is returned so the task retries.
func (uc *NotifyDueUseCase) Execute(ctx context.Context, req dto.NotifyDueRequest) (dto.NotifyDueResponse, error) {
	period, err := uc.store.Repositories().Periods.FindByRef(ctx, req.PeriodRef)
	if err != nil {
		return dto.NotifyDueResponse{}, fmt.Errorf("find period: %w", err)
	}
	if period.Status().IsPaid() {
		return dto.NotifyDueResponse{PeriodRef: req.PeriodRef, Reason: "period already paid"}, nil
	}

	evt := event.NewPeriodDueSoon(
		period.Ref(), period.LoanID(), period.BorrowerID(), req.DaysBefore,
		period.DueDate(), period.PeriodBalance(), uc.clock.Now(),
	)
	if err := uc.publisher.Publish(ctx, evt); err != nil {
		return dto.NotifyDueResponse{}, fmt.Errorf("publish events: %w", err)
	}

	uc.logger.InfoContext(ctx, "due notice sent", "period_ref", period.Ref(), "days_before", req.DaysBefore)
	return dto.NotifyDueResponse{PeriodRef: period.Ref(), Sent: true}, nil
}
