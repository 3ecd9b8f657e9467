package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	pgstore "github.com/bibbank/microfinance-ledger/pkg/postgres"
)

const loanColumns = `
	id, application_id, borrower_id, loan_type,
	principal, interest_rate, term_periods, currency, disbursed_at,
	paid_amount, outstanding_balance, credit_score, status,
	version, created_at, updated_at`

// LoanRepo implements port.LoanRepository.
type LoanRepo struct {
	q pgstore.Querier
}

// Save inserts a new loan or updates an existing one when the stored version
// still matches.
func (r *LoanRepo) Save(ctx context.Context, loan model.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			paid_amount         = EXCLUDED.paid_amount,
			outstanding_balance = EXCLUDED.outstanding_balance,
			credit_score        = EXCLUDED.credit_score,
			status              = EXCLUDED.status,
			version             = loans.version + 1,
			updated_at          = EXCLUDED.updated_at
		WHERE loans.version = $14
	`
	tag, err := r.q.Exec(ctx, query,
		loan.ID(), loan.ApplicationID(), loan.BorrowerID(), loan.Type().String(),
		loan.Principal(), loan.InterestRate(), loan.TermPeriods(), loan.Currency().Code(), loan.DisbursedAt(),
		loan.PaidAmount(), loan.OutstandingBalance(), loan.CreditScore(), loan.Status().String(),
		loan.Version(), loan.CreatedAt(), loan.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &model.ConcurrencyConflictError{LoanID: loan.ID(), Reason: fmt.Sprintf("version %d is stale", loan.Version())}
	}
	return nil
}

// FindByID retrieves a loan by its ID.
func (r *LoanRepo) FindByID(ctx context.Context, id string) (model.Loan, error) {
	row := r.q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	loan, err := scanLoan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Loan{}, &model.LoanNotFoundError{LoanID: id}
	}
	return loan, err
}

// FindByBorrowerID retrieves all loans of a borrower, newest first.
func (r *LoanRepo) FindByBorrowerID(ctx context.Context, borrowerID string) ([]model.Loan, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE borrower_id = $1 ORDER BY disbursed_at DESC, id DESC`,
		borrowerID)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// NextLoanNumber draws from loan_number_seq.
func (r *LoanRepo) NextLoanNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT nextval('loan_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("next loan number: %w", err)
	}
	return n, nil
}

func scanLoan(s scannable) (model.Loan, error) {
	var r loanRow
	err := s.Scan(
		&r.id, &r.applicationID, &r.borrowerID, &r.loanType,
		&r.principal, &r.interestRate, &r.termPeriods, &r.currency, &r.disbursedAt,
		&r.paidAmount, &r.outstanding, &r.creditScore, &r.status,
		&r.version, &r.createdAt, &r.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Loan{}, err
		}
		return model.Loan{}, fmt.Errorf("scan loan: %w", err)
	}
	return r.toModel()
}
