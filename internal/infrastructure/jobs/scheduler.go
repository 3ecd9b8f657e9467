package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/bibbank/microfinance-ledger/internal/domain/port"
)

// Enqueuer is the subset of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotificationScheduler implements port.NotificationScheduler by queueing
// due-notice tasks to run at each notice's instant.
type NotificationScheduler struct {
	client Enqueuer
}

// NewNotificationScheduler creates a scheduler on client.
func NewNotificationScheduler(client Enqueuer) *NotificationScheduler {
	return &NotificationScheduler{client: client}
}

// ScheduleDueNotices queues every notice. Notices already queued are skipped.
func (s *NotificationScheduler) ScheduleDueNotices(ctx context.Context, notices ...port.DueNotice) error {
	var errs []error
	for _, n := range notices {
		payload := DueNoticePayload{PeriodRef: n.PeriodRef, DaysBefore: n.DaysBefore}
		task, err := NewDueNoticeTask(payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("build task %s: %w", n.PeriodRef, err))
			continue
		}
		_, err = s.client.EnqueueContext(ctx, task,
			asynq.Queue(QueueDefault),
			asynq.ProcessAt(n.At),
			asynq.TaskID(dueNoticeTaskID(payload)),
			asynq.Retention(noticeRetention),
			asynq.MaxRetry(5),
		)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			errs = append(errs, fmt.Errorf("enqueue notice %s/%d: %w", n.PeriodRef, n.DaysBefore, err))
		}
	}
	return errors.Join(errs...)
}
