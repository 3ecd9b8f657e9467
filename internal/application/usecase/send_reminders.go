package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
)

// SendRemindersUseCase raises at most one overdue reminder per late period
// per calendar day.
type SendRemindersUseCase struct {
	store     port.LedgerStore
	locker    port.LoanLocker
	publisher port.EventPublisher
	clock     clock.Clock
	logger    *slog.Logger
}

// NewSendRemindersUseCase wires dependencies.
func NewSendRemindersUseCase(
	store port.LedgerStore,
	locker port.LoanLocker,
	publisher port.EventPublisher,
	clk clock.Clock,
	logger *slog.Logger,
) *SendRemindersUseCase {
	return &SendRemindersUseCase{
		store:     store,
		locker:    locker,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Execute stamps and announces every PAST_DUE and OVERDUE period not yet
// reminded today.
func (uc *SendRemindersUseCase) Execute(ctx context.Context) (resp dto.ReminderResponse, err error) {
	ctx, span := startSpan(ctx, "SendOverdueReminders")
	defer func() { finishSpan(span, err) }()

	now := uc.clock.Now()
	resp = dto.ReminderResponse{RunAt: now, PeriodRefs: []string{}}

	late, err := uc.store.Repositories().Periods.FindByStatuses(ctx,
		valueobject.PeriodStatusPastDue, valueobject.PeriodStatusOverdue)
	if err != nil {
		return dto.ReminderResponse{}, fmt.Errorf("find late periods: %w", err)
	}

	byLoan := make(map[string][]string)
	for _, p := range late {
		byLoan[p.LoanID()] = append(byLoan[p.LoanID()], p.Ref())
	}
	loanIDs := make([]string, 0, len(byLoan))
	for id := range byLoan {
		loanIDs = append(loanIDs, id)
	}
	sort.Strings(loanIDs)

	for _, loanID := range loanIDs {
		refs, evts, err := uc.remindLoan(ctx, loanID, byLoan[loanID], now)
		if err != nil {
			uc.logger.WarnContext(ctx, "reminders failed", "loan_id", loanID, "error", err)
			resp.Failures = append(resp.Failures, loanID)
			continue
		}
		resp.PeriodRefs = append(resp.PeriodRefs, refs...)
		publishCommitted(ctx, uc.publisher, uc.logger, evts)
	}

	uc.logger.InfoContext(ctx, "overdue reminders sent", "count", len(resp.PeriodRefs))
	return resp, nil
}

func (uc *SendRemindersUseCase) remindLoan(
	ctx context.Context, loanID string, refs []string, now time.Time,
) ([]string, []event.DomainEvent, error) {
	var (
		reminded []string
		evts     []event.DomainEvent
	)
	err := withLoanLock(ctx, uc.locker, loanID, func() error {
		return uc.store.WithinTx(ctx, func(repos port.Repositories) error {
			var changed []model.CollectionPeriod
			for _, ref := range refs {
				p, err := repos.Periods.FindByRef(ctx, ref)
				if err != nil {
					return fmt.Errorf("find period: %w", err)
				}
				next, ok := p.MarkReminded(now)
				if !ok {
					continue
				}
				changed = append(changed, next)
				reminded = append(reminded, ref)
				evts = append(evts, next.DomainEvents()...)
			}
			if len(changed) == 0 {
				return nil
			}
			if err := repos.Periods.SaveAll(ctx, changed...); err != nil {
				return fmt.Errorf("save periods: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return reminded, evts, nil
}
