package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
)

// StatusSweeper is satisfied by usecase.SweepStatusesUseCase.
type StatusSweeper interface {
	Execute(ctx context.Context) (dto.SweepResponse, error)
}

// ReminderSender is satisfied by usecase.SendRemindersUseCase.
type ReminderSender interface {
	Execute(ctx context.Context) (dto.ReminderResponse, error)
}

// DueNotifier is satisfied by usecase.NotifyDueUseCase.
type DueNotifier interface {
	Execute(ctx context.Context, req dto.NotifyDueRequest) (dto.NotifyDueResponse, error)
}

// Handlers adapts ledger use cases to asynq task handlers.
type Handlers struct {
	sweeper  StatusSweeper
	reminder ReminderSender
	notifier DueNotifier
	logger   *slog.Logger
}

// NewHandlers wires the use cases.
func NewHandlers(sweeper StatusSweeper, reminder ReminderSender, notifier DueNotifier, logger *slog.Logger) *Handlers {
	return &Handlers{sweeper: sweeper, reminder: reminder, notifier: notifier, logger: logger}
}

// TaskHandlers lists the handlers for WorkerConfig.
func (h *Handlers) TaskHandlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskSweepStatuses, Handler: h.HandleSweepStatuses},
		{Type: TaskOverdueReminders, Handler: h.HandleOverdueReminders},
		{Type: TaskDueNotice, Handler: h.HandleDueNotice},
	}
}

// HandleSweepStatuses runs one sweep. Per-loan failures are logged; the next
// run picks those loans up again.
func (h *Handlers) HandleSweepStatuses(ctx context.Context, _ *asynq.Task) error {
	resp, err := h.sweeper.Execute(ctx)
	if err != nil {
		return fmt.Errorf("sweep statuses: %w", err)
	}
	for _, f := range resp.Failures {
		h.logger.WarnContext(ctx, "sweep skipped loan", "loan_id", f.LoanID, "error", f.Error)
	}
	return nil
}

// HandleOverdueReminders runs the daily reminder pass.
func (h *Handlers) HandleOverdueReminders(ctx context.Context, _ *asynq.Task) error {
	resp, err := h.reminder.Execute(ctx)
	if err != nil {
		return fmt.Errorf("send reminders: %w", err)
	}
	if len(resp.Failures) > 0 {
		h.logger.WarnContext(ctx, "reminders skipped loans", "loan_ids", resp.Failures)
	}
	return nil
}

// HandleDueNotice delivers one due-soon notice. Unknown periods and bad
// payloads are not retried.
func (h *Handlers) HandleDueNotice(ctx context.Context, t *asynq.Task) error {
	var payload DueNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.PeriodRef == "" {
		return asynq.SkipRetry
	}

	resp, err := h.notifier.Execute(ctx, dto.NotifyDueRequest{
		PeriodRef:  payload.PeriodRef,
		DaysBefore: payload.DaysBefore,
	})
	if err != nil {
		if model.IsNotFound(err) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return fmt.Errorf("notify due: %w", err)
	}
	if !resp.Sent {
		h.logger.DebugContext(ctx, "due notice skipped", "period_ref", payload.PeriodRef, "reason", resp.Reason)
	}
	return nil
}
