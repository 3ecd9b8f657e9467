// Package jobs runs the ledger's scheduled and delayed work on asynq.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue every ledger task is enqueued on.
	QueueDefault = "ledger"

	// TaskSweepStatuses escalates late periods.
	TaskSweepStatuses = "ledger:sweep_statuses"
	// TaskOverdueReminders sends the daily reminder for late periods.
	TaskOverdueReminders = "ledger:overdue_reminders"
	// TaskDueNotice announces an upcoming due date for one period.
	TaskDueNotice = "ledger:due_notice"
)

// DueNoticePayload identifies one due-soon notice.
type DueNoticePayload struct {
	PeriodRef  string `json:"period_ref"`
	DaysBefore int    `json:"days_before"`
}

// NewSweepStatusesTask constructs the cron sweep task.
func NewSweepStatusesTask() *asynq.Task {
	return asynq.NewTask(TaskSweepStatuses, nil)
}

// NewOverdueRemindersTask constructs the cron reminder task.
func NewOverdueRemindersTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueReminders, nil)
}

// NewDueNoticeTask constructs a due-soon notice task.
func NewDueNoticeTask(payload DueNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDueNotice, data), nil
}

// dueNoticeTaskID makes scheduling idempotent: the same notice is only
// queued once however often the period is saved.
func dueNoticeTaskID(p DueNoticePayload) string {
	return fmt.Sprintf("due:%s:%d", p.PeriodRef, p.DaysBefore)
}

// noticeRetention keeps finished notice IDs long enough to reject a
// re-schedule of the same notice.
const noticeRetention = 7 * 24 * time.Hour
