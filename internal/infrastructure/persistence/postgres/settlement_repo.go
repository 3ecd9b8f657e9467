package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	pgstore "github.com/bibbank/microfinance-ledger/pkg/postgres"
)

// SettlementRepo implements port.SettlementRepository.
type SettlementRepo struct {
	q pgstore.Querier
}

// Record claims settlementID. The row commits or rolls back with the payment
// it guards.
func (r *SettlementRepo) Record(ctx context.Context, settlementID, loanID string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO processed_settlements (settlement_id, loan_id, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (settlement_id) DO NOTHING`,
		settlementID, loanID, at,
	)
	if err != nil {
		return fmt.Errorf("record settlement %s: %w", settlementID, err)
	}
	if tag.RowsAffected() == 0 {
		return &model.DuplicateSettlementError{SettlementID: settlementID}
	}
	return nil
}
