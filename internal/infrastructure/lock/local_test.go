package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/lock"
)

func TestLocal_SerialisesPerLoan(t *testing.T) {
	locker := lock.NewLocal(0)
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "L00001")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestLocal_DistinctLoansDoNotBlock(t *testing.T) {
	locker := lock.NewLocal(50 * time.Millisecond)
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "L00001")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "L00002")
	require.NoError(t, err)
	unlockB()
}

func TestLocal_Timeout(t *testing.T) {
	locker := lock.NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "L00001")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "L00001")
	assert.True(t, model.IsRetryable(err))

	unlock()
	unlock() // second call is a no-op

	again, err := locker.Lock(ctx, "L00001")
	require.NoError(t, err)
	again()
}

func TestLocal_ContextCancelled(t *testing.T) {
	locker := lock.NewLocal(0)
	unlock, err := locker.Lock(context.Background(), "L00001")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "L00001")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
