package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// errLockLost is logged when a lease expired before release.
var errLockLost = errors.New("lock lease lost before release")

// RedisOptions tune the lease.
type RedisOptions struct {
	Prefix string
	TTL    time.Duration // lease length; must outlive one unit of work
	Wait   time.Duration // how long Lock retries before giving up
	Retry  time.Duration // pause between attempts
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.Prefix == "" {
		o.Prefix = "ledger:lock:loan:"
	}
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.Wait <= 0 {
		o.Wait = 5 * time.Second
	}
	if o.Retry <= 0 {
		o.Retry = 50 * time.Millisecond
	}
	return o
}

// Redis is a lease lock shared by every replica: SET NX PX to acquire, a
// token-checked DEL to release.
type Redis struct {
	client redis.UniversalClient
	opts   RedisOptions
	logger *slog.Logger
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client redis.UniversalClient, opts RedisOptions, logger *slog.Logger) *Redis {
	return &Redis{client: client, opts: opts.withDefaults(), logger: logger}
}

// Lock retries until the lease is taken, Wait elapses or ctx ends.
func (r *Redis) Lock(ctx context.Context, loanID string) (func(), error) {
	key := r.opts.Prefix + loanID
	token := uuid.NewString()
	deadline := time.Now().Add(r.opts.Wait)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return func() { r.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, &model.ConcurrencyConflictError{LoanID: loanID, Reason: "lock wait timed out"}
		}

		timer := time.NewTimer(r.opts.Retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Redis) release(key, token string) {
	// The caller's context may already be done.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
	if err != nil {
		r.logger.Error("release loan lock", "key", key, "error", err)
		return
	}
	if n == 0 {
		r.logger.Warn("release loan lock", "key", key, "error", errLockLost)
	}
}
