package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	pgstore "github.com/bibbank/microfinance-ledger/pkg/postgres"
)

// Store implements port.LedgerStore on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a PostgreSQL-backed ledger store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repositories returns repositories that run each statement on the pool.
func (s *Store) Repositories() port.Repositories {
	return repositories(s.pool)
}

// WithinTx runs fn with repositories bound to one transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repos port.Repositories) error) error {
	return pgstore.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(repositories(tx))
	})
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return pgstore.HealthCheck(ctx, s.pool)
}

func repositories(q pgstore.Querier) port.Repositories {
	return port.Repositories{
		Loans:        &LoanRepo{q: q},
		Periods:      &PeriodRepo{q: q},
		Payments:     &PaymentRepo{q: q},
		Endorsements: &EndorsementRepo{q: q},
		Settlements:  &SettlementRepo{q: q},
	}
}
