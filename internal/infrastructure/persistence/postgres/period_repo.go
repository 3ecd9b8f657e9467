package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	pgstore "github.com/bibbank/microfinance-ledger/pkg/postgres"
)

const periodColumns = `
	ref, loan_id, borrower_id, sequence, due_date,
	period_amount, principal_snapshot, interest_rate,
	paid_amount, period_balance, penalty, penalty_rate,
	status, note, last_paid_at, status_changed_at, last_reminder_at,
	created_at, updated_at`

// PeriodRepo implements port.PeriodRepository.
type PeriodRepo struct {
	q pgstore.Querier
}

// SaveAll upserts each period. Terms columns never change after insert.
func (r *PeriodRepo) SaveAll(ctx context.Context, periods ...model.CollectionPeriod) error {
	query := `
		INSERT INTO collection_periods (` + periodColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (ref) DO UPDATE SET
			paid_amount       = EXCLUDED.paid_amount,
			period_balance    = EXCLUDED.period_balance,
			penalty           = EXCLUDED.penalty,
			penalty_rate      = EXCLUDED.penalty_rate,
			status            = EXCLUDED.status,
			note              = EXCLUDED.note,
			last_paid_at      = EXCLUDED.last_paid_at,
			status_changed_at = EXCLUDED.status_changed_at,
			last_reminder_at  = EXCLUDED.last_reminder_at,
			updated_at        = EXCLUDED.updated_at
	`
	for _, p := range periods {
		_, err := r.q.Exec(ctx, query,
			p.Ref(), p.LoanID(), p.BorrowerID(), p.Sequence(), p.DueDate(),
			p.PeriodAmount(), p.PrincipalSnapshot(), p.InterestRate(),
			p.PaidAmount(), p.PeriodBalance(), p.Penalty(), p.PenaltyRate(),
			p.Status().String(), p.Note(), nullTime(p.LastPaidAt()), p.StatusChangedAt(), nullTime(p.LastReminderAt()),
			p.CreatedAt(), p.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("save period %s: %w", p.Ref(), err)
		}
	}
	return nil
}

// FindByRef retrieves one period.
func (r *PeriodRepo) FindByRef(ctx context.Context, ref string) (model.CollectionPeriod, error) {
	row := r.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM collection_periods WHERE ref = $1`, ref)
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CollectionPeriod{}, &model.PeriodNotFoundError{PeriodRef: ref}
	}
	return p, err
}

// FindByLoanID retrieves a loan's periods in sequence order.
func (r *PeriodRepo) FindByLoanID(ctx context.Context, loanID string) ([]model.CollectionPeriod, error) {
	return r.query(ctx,
		`SELECT `+periodColumns+` FROM collection_periods WHERE loan_id = $1 ORDER BY sequence`,
		loanID)
}

// LoanIDsWithOpenPeriods lists active loans with an unpaid period due before dueBefore.
func (r *PeriodRepo) LoanIDsWithOpenPeriods(ctx context.Context, dueBefore time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT p.loan_id
		FROM collection_periods p
		JOIN loans l ON l.id = p.loan_id
		WHERE l.status <> $1 AND p.status <> $2 AND p.due_date < $3
		ORDER BY p.loan_id
	`
	rows, err := r.q.Query(ctx, query,
		valueobject.LoanStatusClosed.String(), valueobject.PeriodStatusPaid.String(), dueBefore)
	if err != nil {
		return nil, fmt.Errorf("query open loans: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan loan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindByStatuses retrieves every period in one of the given statuses.
func (r *PeriodRepo) FindByStatuses(ctx context.Context, statuses ...valueobject.PeriodStatus) ([]model.CollectionPeriod, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.String())
	}
	return r.query(ctx,
		`SELECT `+periodColumns+` FROM collection_periods WHERE status = ANY($1) ORDER BY loan_id, sequence`,
		names)
}

func (r *PeriodRepo) query(ctx context.Context, sql string, args ...any) ([]model.CollectionPeriod, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	var periods []model.CollectionPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func scanPeriod(s scannable) (model.CollectionPeriod, error) {
	var r periodRow
	st := &r.state
	err := s.Scan(
		&st.Ref, &st.LoanID, &st.BorrowerID, &st.Sequence, &st.DueDate,
		&st.PeriodAmount, &st.PrincipalSnapshot, &st.InterestRate,
		&st.PaidAmount, &st.PeriodBalance, &st.Penalty, &st.PenaltyRate,
		&r.status, &st.Note, &r.lastPaidAt, &st.StatusChangedAt, &r.lastRemindAt,
		&st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CollectionPeriod{}, err
		}
		return model.CollectionPeriod{}, fmt.Errorf("scan period: %w", err)
	}
	return r.toModel()
}
