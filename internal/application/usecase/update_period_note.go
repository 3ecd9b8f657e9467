package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
)

// UpdatePeriodNoteUseCase replaces the collector note on a period.
type UpdatePeriodNoteUseCase struct {
	store  port.LedgerStore
	locker port.LoanLocker
	clock  clock.Clock
	logger *slog.Logger
}

// NewUpdatePeriodNoteUseCase wires dependencies.
func NewUpdatePeriodNoteUseCase(
	store port.LedgerStore,
	locker port.LoanLocker,
	clk clock.Clock,
	logger *slog.Logger,
) *UpdatePeriodNoteUseCase {
	return &UpdatePeriodNoteUseCase{store: store, locker: locker, clock: clk, logger: logger}
}

// Execute saves the note and returns the updated period.
func (uc *UpdatePeriodNoteUseCase) Execute(ctx context.Context, req dto.UpdatePeriodNoteRequest) (dto.PeriodResponse, error) {
	target, err := uc.store.Repositories().Periods.FindByRef(ctx, req.PeriodRef)
	if err != nil {
		return dto.PeriodResponse{}, fmt.Errorf("find period: %w", err)
	}

	var updated model.CollectionPeriod
	err = withLoanLock(ctx, uc.locker, target.LoanID(), func() error {
		return uc.store.WithinTx(ctx, func(repos port.Repositories) error {
			p, err := repos.Periods.FindByRef(ctx, req.PeriodRef)
			if err != nil {
				return fmt.Errorf("find period: %w", err)
			}
			updated = p.WithNote(strings.TrimSpace(req.Note), uc.clock.Now())
			if err := repos.Periods.SaveAll(ctx, updated); err != nil {
				return fmt.Errorf("save period: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return dto.PeriodResponse{}, err
	}

	uc.logger.InfoContext(ctx, "period note updated", "period_ref", req.PeriodRef)
	return toPeriodResponse(updated), nil
}
