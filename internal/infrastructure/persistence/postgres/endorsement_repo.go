package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	pgstore "github.com/bibbank/microfinance-ledger/pkg/postgres"
)

const endorsementColumns = `
	id, period_ref, loan_id, reason, requested_by, tier_at_request,
	proposed_rate, proposed_amount, applied_rate, applied_amount,
	status, reviewer_id, remarks, requested_at, reviewed_at`

// EndorsementRepo implements port.EndorsementRepository.
type EndorsementRepo struct {
	q pgstore.Querier
}

// Save upserts an endorsement; only the review columns change after insert.
func (r *EndorsementRepo) Save(ctx context.Context, e model.PenaltyEndorsement) error {
	query := `
		INSERT INTO penalty_endorsements (` + endorsementColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			applied_rate   = EXCLUDED.applied_rate,
			applied_amount = EXCLUDED.applied_amount,
			status         = EXCLUDED.status,
			reviewer_id    = EXCLUDED.reviewer_id,
			remarks        = EXCLUDED.remarks,
			reviewed_at    = EXCLUDED.reviewed_at
	`
	_, err := r.q.Exec(ctx, query,
		e.ID(), e.PeriodRef(), e.LoanID(), e.Reason(), e.RequestedBy(), e.TierAtRequest().String(),
		e.ProposedRate(), e.ProposedAmount(), e.AppliedRate(), e.AppliedAmount(),
		e.Status().String(), e.ReviewerID(), e.Remarks(), e.RequestedAt(), nullTime(e.ReviewedAt()),
	)
	if err != nil {
		return fmt.Errorf("save endorsement: %w", err)
	}
	return nil
}

// FindByID retrieves one endorsement.
func (r *EndorsementRepo) FindByID(ctx context.Context, id string) (model.PenaltyEndorsement, error) {
	row := r.q.QueryRow(ctx, `SELECT `+endorsementColumns+` FROM penalty_endorsements WHERE id = $1`, id)
	e, err := scanEndorsement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PenaltyEndorsement{}, &model.EndorsementNotFoundError{EndorsementID: id}
	}
	return e, err
}

// FindByStatus lists endorsements in one status, oldest request first.
func (r *EndorsementRepo) FindByStatus(ctx context.Context, status valueobject.EndorsementStatus) ([]model.PenaltyEndorsement, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+endorsementColumns+` FROM penalty_endorsements WHERE status = $1 ORDER BY requested_at, id`,
		status.String())
	if err != nil {
		return nil, fmt.Errorf("query endorsements: %w", err)
	}
	defer rows.Close()

	var out []model.PenaltyEndorsement
	for rows.Next() {
		e, err := scanEndorsement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NextEndorsementNumber draws from endorsement_number_seq.
func (r *EndorsementRepo) NextEndorsementNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT nextval('endorsement_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("next endorsement number: %w", err)
	}
	return n, nil
}

func scanEndorsement(s scannable) (model.PenaltyEndorsement, error) {
	var r endorsementRow
	st := &r.state
	err := s.Scan(
		&st.ID, &st.PeriodRef, &st.LoanID, &st.Reason, &st.RequestedBy, &r.tier,
		&st.ProposedRate, &st.ProposedAmount, &st.AppliedRate, &st.AppliedAmount,
		&r.status, &st.ReviewerID, &st.Remarks, &st.RequestedAt, &r.reviewedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PenaltyEndorsement{}, err
		}
		return model.PenaltyEndorsement{}, fmt.Errorf("scan endorsement: %w", err)
	}
	return r.toModel()
}
