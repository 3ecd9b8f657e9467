package postgres

import (
	"context"
	"fmt"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	pgstore "github.com/bibbank/microfinance-ledger/pkg/postgres"
)

const paymentColumns = `
	ref, loan_id, borrower_id, period_ref, sequence, amount,
	interest_portion, penalty_portion, principal_portion,
	method, balance_after, prior_status, received_by, paid_at`

// PaymentRepo implements port.PaymentRepository. Rows are never updated.
type PaymentRepo struct {
	q pgstore.Querier
}

// Append inserts records in order.
func (r *PaymentRepo) Append(ctx context.Context, records ...model.PaymentRecord) error {
	query := `INSERT INTO payment_records (` + paymentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	for _, rec := range records {
		_, err := r.q.Exec(ctx, query,
			rec.Ref(), rec.LoanID(), rec.BorrowerID(), rec.PeriodRef(), rec.Sequence(), rec.Amount(),
			rec.InterestPortion(), rec.PenaltyPortion(), rec.PrincipalPortion(),
			rec.Method().String(), rec.BalanceAfter(), rec.PriorStatus().String(), rec.ReceivedBy(), rec.PaidAt(),
		)
		if err != nil {
			if pgstore.IsUniqueViolation(err) {
				return &model.ValidationError{Field: "payment_ref", Message: "duplicate " + rec.Ref()}
			}
			return fmt.Errorf("append payment %s: %w", rec.Ref(), err)
		}
	}
	return nil
}

// FindByLoanID lists a loan's payments, newest first.
func (r *PaymentRepo) FindByLoanID(ctx context.Context, loanID string) ([]model.PaymentRecord, error) {
	return r.query(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE loan_id = $1 ORDER BY id DESC`, loanID)
}

// FindByBorrowerID lists a borrower's payments across loans, newest first.
func (r *PaymentRepo) FindByBorrowerID(ctx context.Context, borrowerID string) ([]model.PaymentRecord, error) {
	return r.query(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE borrower_id = $1 ORDER BY id DESC`, borrowerID)
}

func (r *PaymentRepo) query(ctx context.Context, sql string, args ...any) ([]model.PaymentRecord, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var records []model.PaymentRecord
	for rows.Next() {
		var pr paymentRow
		l := &pr.line
		if err := rows.Scan(
			&l.Ref, &l.LoanID, &l.BorrowerID, &l.PeriodRef, &l.Sequence, &l.Amount,
			&l.InterestPortion, &l.PenaltyPortion, &l.PrincipalPortion,
			&pr.method, &l.BalanceAfter, &pr.priorStatus, &l.ReceivedBy, &l.PaidAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		rec, err := pr.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
