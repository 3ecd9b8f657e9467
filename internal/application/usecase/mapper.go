package usecase

import (
	"time"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/service"
)

func toLoanResponse(l model.Loan) dto.LoanResponse {
	return dto.LoanResponse{
		ID:                 l.ID(),
		ApplicationID:      l.ApplicationID(),
		BorrowerID:         l.BorrowerID(),
		LoanType:           l.Type().String(),
		Principal:          l.Principal(),
		InterestRate:       l.InterestRate(),
		TermPeriods:        l.TermPeriods(),
		Currency:           l.Currency().Code(),
		DisbursedAt:        l.DisbursedAt(),
		PaidAmount:         l.PaidAmount(),
		OutstandingBalance: l.OutstandingBalance(),
		CreditScore:        l.CreditScore(),
		Status:             l.Status().String(),
		Version:            l.Version(),
		CreatedAt:          l.CreatedAt(),
		UpdatedAt:          l.UpdatedAt(),
	}
}

func toPeriodResponse(p model.CollectionPeriod) dto.PeriodResponse {
	return dto.PeriodResponse{
		Ref:               p.Ref(),
		LoanID:            p.LoanID(),
		BorrowerID:        p.BorrowerID(),
		Sequence:          p.Sequence(),
		DueDate:           p.DueDate(),
		PeriodAmount:      p.PeriodAmount(),
		PrincipalSnapshot: p.PrincipalSnapshot(),
		InterestRate:      p.InterestRate(),
		PaidAmount:        p.PaidAmount(),
		PeriodBalance:     p.PeriodBalance(),
		Penalty:           p.Penalty(),
		PenaltyRate:       p.PenaltyRate(),
		Status:            p.Status().String(),
		Note:              p.Note(),
		LastPaidAt:        optionalTime(p.LastPaidAt()),
		StatusChangedAt:   p.StatusChangedAt(),
	}
}

func toPeriodResponses(periods []model.CollectionPeriod) []dto.PeriodResponse {
	out := make([]dto.PeriodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodResponse(p))
	}
	return out
}

func toPaymentResponses(records []model.PaymentRecord) []dto.PaymentRecordResponse {
	out := make([]dto.PaymentRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.PaymentRecordResponse{
			Ref:              r.Ref(),
			LoanID:           r.LoanID(),
			BorrowerID:       r.BorrowerID(),
			PeriodRef:        r.PeriodRef(),
			Sequence:         r.Sequence(),
			Amount:           r.Amount(),
			InterestPortion:  r.InterestPortion(),
			PenaltyPortion:   r.PenaltyPortion(),
			PrincipalPortion: r.PrincipalPortion(),
			Method:           r.Method().String(),
			BalanceAfter:     r.BalanceAfter(),
			PriorStatus:      r.PriorStatus().String(),
			ReceivedBy:       r.ReceivedBy(),
			PaidAt:           r.PaidAt(),
		})
	}
	return out
}

func toEndorsementResponse(e model.PenaltyEndorsement) dto.EndorsementResponse {
	return dto.EndorsementResponse{
		ID:             e.ID(),
		PeriodRef:      e.PeriodRef(),
		LoanID:         e.LoanID(),
		Reason:         e.Reason(),
		RequestedBy:    e.RequestedBy(),
		TierAtRequest:  e.TierAtRequest().String(),
		ProposedRate:   e.ProposedRate(),
		ProposedAmount: e.ProposedAmount(),
		AppliedRate:    e.AppliedRate(),
		AppliedAmount:  e.AppliedAmount(),
		Status:         e.Status().String(),
		ReviewerID:     e.ReviewerID(),
		Remarks:        e.Remarks(),
		RequestedAt:    e.RequestedAt(),
		ReviewedAt:     optionalTime(e.ReviewedAt()),
	}
}

func toStatusChangeResponses(changes []service.StatusChange) []dto.StatusChangeResponse {
	out := make([]dto.StatusChangeResponse, 0, len(changes))
	for _, c := range changes {
		out = append(out, dto.StatusChangeResponse{
			PeriodRef: c.PeriodRef,
			LoanID:    c.LoanID,
			From:      c.From.String(),
			To:        c.To.String(),
			DaysLate:  c.DaysLate,
		})
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
