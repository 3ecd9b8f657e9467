package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/jobs"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

type enqueued struct {
	task *asynq.Task
	opts []asynq.Option
}

type mockEnqueuer struct {
	enqueueFunc func(task *asynq.Task) error
	enqueued    []enqueued
}

func (m *mockEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(task); err != nil {
			return nil, err
		}
	}
	m.enqueued = append(m.enqueued, enqueued{task: task, opts: opts})
	return &asynq.TaskInfo{}, nil
}

func option(opts []asynq.Option, typ asynq.OptionType) (any, bool) {
	for _, o := range opts {
		if o.Type() == typ {
			return o.Value(), true
		}
	}
	return nil, false
}

func TestNotificationScheduler_ScheduleDueNotices(t *testing.T) {
	client := &mockEnqueuer{}
	s := jobs.NewNotificationScheduler(client)
	at := testutil.TestDisbursedAt.AddDate(0, 1, -3)

	err := s.ScheduleDueNotices(context.Background(),
		port.DueNotice{PeriodRef: "L00001-C1", DaysBefore: 3, At: at},
		port.DueNotice{PeriodRef: "L00001-C1", DaysBefore: 0, At: at.AddDate(0, 0, 3)},
	)

	require.NoError(t, err)
	require.Len(t, client.enqueued, 2)
	first := client.enqueued[0]
	assert.Equal(t, jobs.TaskDueNotice, first.task.Type())

	var payload jobs.DueNoticePayload
	require.NoError(t, json.Unmarshal(first.task.Payload(), &payload))
	assert.Equal(t, jobs.DueNoticePayload{PeriodRef: "L00001-C1", DaysBefore: 3}, payload)

	processAt, ok := option(first.opts, asynq.ProcessAtOpt)
	require.True(t, ok)
	assert.Equal(t, at, processAt.(time.Time))
	id, ok := option(first.opts, asynq.TaskIDOpt)
	require.True(t, ok)
	assert.Equal(t, "due:L00001-C1:3", id)
	queue, ok := option(first.opts, asynq.QueueOpt)
	require.True(t, ok)
	assert.Equal(t, jobs.QueueDefault, queue)
}

func TestNotificationScheduler_DuplicateIsIgnored(t *testing.T) {
	client := &mockEnqueuer{enqueueFunc: func(*asynq.Task) error { return asynq.ErrTaskIDConflict }}
	s := jobs.NewNotificationScheduler(client)

	err := s.ScheduleDueNotices(context.Background(),
		port.DueNotice{PeriodRef: "L00001-C1", DaysBefore: 1, At: testutil.TestDisbursedAt})

	assert.NoError(t, err)
}

func TestNotificationScheduler_ReportsEveryFailure(t *testing.T) {
	calls := 0
	client := &mockEnqueuer{enqueueFunc: func(*asynq.Task) error {
		calls++
		return errors.New("redis down")
	}}
	s := jobs.NewNotificationScheduler(client)

	err := s.ScheduleDueNotices(context.Background(),
		port.DueNotice{PeriodRef: "L00001-C1", DaysBefore: 1, At: testutil.TestDisbursedAt},
		port.DueNotice{PeriodRef: "L00001-C2", DaysBefore: 1, At: testutil.TestDisbursedAt},
	)

	assert.Equal(t, 2, calls)
	assert.ErrorContains(t, err, "L00001-C1/1")
	assert.ErrorContains(t, err, "L00001-C2/1")
}
