// Package lock provides port.LoanLocker implementations.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
)

// Local is an in-process keyed mutex. It only serialises callers within one
// replica.
type Local struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
}

type slot struct {
	ch      chan struct{}
	waiters int
}

// NewLocal creates a Local locker. A zero timeout waits as long as the
// caller's context allows.
func NewLocal(timeout time.Duration) *Local {
	return &Local{slots: make(map[string]*slot), timeout: timeout}
}

// Lock acquires the loan's slot.
func (l *Local) Lock(ctx context.Context, loanID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[loanID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[loanID] = s
	}
	s.waiters++
	l.mu.Unlock()

	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	select {
	case s.ch <- struct{}{}:
	case <-waitCtx.Done():
		l.release(loanID, s, false)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &model.ConcurrencyConflictError{LoanID: loanID, Reason: "lock wait timed out"}
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(loanID, s, true) }) }, nil
}

func (l *Local) release(loanID string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, loanID)
	}
}
